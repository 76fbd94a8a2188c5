package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// StartActivityInput payload of a new activity. Only the fields of the service's kind are used.
type StartActivityInput struct {
	OperationID   *int64             `json:"operacao_id"`
	Notes         *string            `json:"observacoes"`
	Origin        *string            `json:"origem"`
	Destination   *string            `json:"destino"`
	StartOdometer *float64           `json:"km_inicial"`
	Reason        *string            `json:"motivo"`
	RefuelType    *models.RefuelType `json:"tipo_abastecimento"`
}

type travelStart struct {
	Origin        *string  `json:"origem" validate:"omitempty,max=255"`
	Destination   *string  `json:"destino" validate:"omitempty,max=255"`
	StartOdometer *float64 `json:"km_inicial" validate:"required,gte=0"`
}

type waitStart struct {
	Reason string `json:"motivo" validate:"required"`
}

type refuelStart struct {
	RefuelType models.RefuelType `json:"tipo_abastecimento" validate:"required,oneof=AGUA COMBUSTIVEL"`
}

// FinishActivityInput payload of a finish call
type FinishActivityInput struct {
	Notes           *string  `json:"observacoes"`
	EndOdometer     *float64 `json:"km_final"`
	DurationSeconds *int64   `json:"duracao_segundos" validate:"omitempty,gte=0"`
}

// FinishResult outcome of a finish. Activity is nil when the record was closed but could not
// be read back; Message and DurationSeconds describe the close in that case.
type FinishResult struct {
	Activity        *models.Activity
	Message         string
	DurationSeconds int64
}

// ActivityService lifecycle of one activity kind: closed -> open -> closed, per team.
type ActivityService struct {
	Deps
	kind models.ActivityKind
}

// NewActivityService creates the service for kind.
func NewActivityService(kind models.ActivityKind, d Deps) *ActivityService {
	if !kind.Valid() {
		panic(fmt.Sprintf("service: unknown activity kind %q", kind))
	}
	return &ActivityService{Deps: d.withDefaults(), kind: kind}
}

// Kind returns the activity kind handled by s.
func (s *ActivityService) Kind() models.ActivityKind {
	return s.kind
}

func (s *ActivityService) op(verb string) string {
	return verb + " " + string(s.kind)
}

// Start opens an activity for the active team.
func (s *ActivityService) Start(ctx context.Context, in StartActivityInput) (*models.Activity, error) {
	op := s.op("start")

	a := &models.Activity{Kind: s.kind, Notes: blankToNil(in.Notes)}
	if v := s.validateStart(in, a); len(v) > 0 {
		return nil, validationError(op, v)
	}

	team, err := s.Cache.ActiveTeam(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, preconditionError(op, "no active team")
		}
		return nil, storeError(s.Logger, op, err, "", "")
	}
	a.TeamID = team.ID

	a.OperationID = in.OperationID
	if a.OperationID == nil {
		active, err := s.Cache.ActiveOperation(ctx)
		switch {
		case err == nil:
			a.OperationID = &active.ID
		case !errors.Is(err, store.ErrNotFound):
			return nil, storeError(s.Logger, op, err, "", "")
		}
	}
	a.StartTime = s.Now()

	created, err := s.Store.StartActivity(ctx, a)
	if err != nil {
		return nil, storeError(s.Logger, op, err, "", fmt.Sprintf("team already has an open %s record", s.kind))
	}
	s.Metrics.ActivityStarted(string(s.kind))

	s.Logger.Info("Activity started",
		zap.String("kind", string(s.kind)),
		zap.Int64("activity_id", created.ID),
		zap.Int64("team_id", created.TeamID),
	)
	s.Events.Publish(EventActivityStarted, activityEvent{Kind: s.kind, Activity: created})
	return created, nil
}

// validateStart checks the kind-specific fields and copies them into a. Every violation is reported.
func (s *ActivityService) validateStart(in StartActivityInput, a *models.Activity) []string {
	var errs []string
	switch s.kind {
	case models.ActivityTravel:
		v := travelStart{
			Origin:        blankToNil(in.Origin),
			Destination:   blankToNil(in.Destination),
			StartOdometer: in.StartOdometer,
		}
		errs = violations(v)
		a.Origin, a.Destination, a.StartOdometer = v.Origin, v.Destination, v.StartOdometer
	case models.ActivityWait:
		var v waitStart
		if r := trimPtr(in.Reason); r != nil {
			v.Reason = *r
		}
		errs = violations(v)
		a.Reason = &v.Reason
	case models.ActivityRefuel:
		var v refuelStart
		if in.RefuelType != nil {
			v.RefuelType = *in.RefuelType
		}
		errs = violations(v)
		a.RefuelType = &v.RefuelType
	}
	if in.OperationID != nil && *in.OperationID <= 0 {
		errs = append(errs, "operacao_id must be a positive id")
	}
	return errs
}

// Finish closes an open activity. Notes are only overwritten when supplied.
func (s *ActivityService) Finish(ctx context.Context, id int64, in FinishActivityInput) (*FinishResult, error) {
	op := s.op("finish")

	if v := violations(in); len(v) > 0 {
		return nil, validationError(op, v)
	}

	current, err := s.Store.GetActivity(ctx, s.kind, id)
	if err != nil {
		return nil, storeError(s.Logger, op, err, fmt.Sprintf("%s record not found", s.kind), "")
	}
	if !current.IsOpen() {
		return nil, conflictError(op, "activity already finished")
	}

	now := s.Now()
	duration := int64(now.Sub(current.StartTime).Seconds())
	if duration < 0 {
		duration = 0
	}

	params := store.FinishParams{EndTime: now, Notes: blankToNil(in.Notes)}
	if s.kind == models.ActivityTravel {
		var details []string
		switch {
		case in.EndOdometer == nil:
			details = append(details, "km_final is required")
		case current.StartOdometer != nil && *in.EndOdometer < *current.StartOdometer:
			details = append(details, "km_final must be greater than or equal to km_inicial")
		}
		if len(details) > 0 {
			return nil, validationError(op, details)
		}
		params.EndOdometer = in.EndOdometer
		if in.DurationSeconds != nil {
			duration = *in.DurationSeconds
		}
	}
	params.DurationSeconds = duration

	if err := s.Store.FinishActivity(ctx, s.kind, id, params); err != nil {
		return nil, storeError(s.Logger, op, err, fmt.Sprintf("%s record not found", s.kind), "activity already finished")
	}
	s.Metrics.ActivityFinished(string(s.kind))

	s.Logger.Info("Activity finished",
		zap.String("kind", string(s.kind)),
		zap.Int64("activity_id", id),
		zap.Int64("duration_seconds", duration),
	)

	updated, err := s.Store.GetActivity(ctx, s.kind, id)
	if err != nil {
		s.Logger.Warn("Activity finished but read-back failed",
			zap.String("kind", string(s.kind)),
			zap.Int64("activity_id", id),
			zap.Error(err),
		)
		return &FinishResult{Message: "activity finished", DurationSeconds: duration}, nil
	}
	s.Events.Publish(EventActivityFinished, activityEvent{Kind: s.kind, Activity: updated})
	return &FinishResult{Activity: updated, DurationSeconds: duration}, nil
}

// Active returns the open record of a team. A nil teamID means the active team.
func (s *ActivityService) Active(ctx context.Context, teamID *int64) (*models.Activity, error) {
	op := s.op("get open")

	if teamID == nil {
		team, err := s.Cache.ActiveTeam(ctx)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, preconditionError(op, "no active team")
			}
			return nil, storeError(s.Logger, op, err, "", "")
		}
		teamID = &team.ID
	}

	a, err := s.Store.GetOpenActivity(ctx, s.kind, *teamID)
	if err != nil {
		return nil, storeError(s.Logger, op, err, fmt.Sprintf("no open %s record", s.kind), "")
	}
	return a, nil
}

// Get returns a record by id.
func (s *ActivityService) Get(ctx context.Context, id int64) (*models.Activity, error) {
	a, err := s.Store.GetActivity(ctx, s.kind, id)
	if err != nil {
		return nil, storeError(s.Logger, s.op("get"), err, fmt.Sprintf("%s record not found", s.kind), "")
	}
	return a, nil
}

// List pages records by start time, newest first. Only explicit filters narrow the result.
func (s *ActivityService) List(ctx context.Context, f models.ActivityFilter, page, limit int) ([]*models.Activity, models.Pagination, error) {
	op := s.op("list")
	page, limit = normalizePage(page, limit)
	p := models.NewPagination(page, limit, 0)

	total, err := s.Store.CountActivities(ctx, s.kind, f)
	if err != nil {
		return nil, p, storeError(s.Logger, op, err, "", "")
	}
	list, err := s.Store.ListActivities(ctx, s.kind, f, limit, p.Offset())
	if err != nil {
		return nil, p, storeError(s.Logger, op, err, "", "")
	}
	if list == nil {
		list = []*models.Activity{}
	}
	return list, models.NewPagination(page, limit, total), nil
}

// activityEvent realtime payload; the kind is not part of the record itself.
type activityEvent struct {
	Kind     models.ActivityKind `json:"tipo"`
	Activity *models.Activity    `json:"registro"`
}
