package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/state"
	"github.com/langchou/fieldops/internal/store"
)

// StartOperationInput payload of a new operation
type StartOperationInput struct {
	Kind  models.OperationKind `json:"tipo" validate:"required,oneof=TERMICA TESTE_ESTANQUEIDADE LIMPEZA PIG"`
	Well  *string              `json:"poco" validate:"omitempty,max=100"`
	City  *string              `json:"cidade" validate:"omitempty,max=100"`
	Notes *string              `json:"observacoes"`
}

// SetStageInput payload of a stage change
type SetStageInput struct {
	Stage models.Stage `json:"etapa" validate:"required,oneof=MOBILIZANDO OPERANDO DESMOBILIZANDO AGUARDANDO FINALIZADA"`
}

// OperationService operation lifecycle
type OperationService struct {
	Deps
	machine *state.Machine

	// serializes stage changes so cache updates land in commit order
	stageMu sync.Mutex
}

// NewOperationService creates an operation service evaluating stages with machine.
func NewOperationService(d Deps, machine *state.Machine) *OperationService {
	if machine == nil {
		machine = state.NewMachine(state.PolicyPermissive)
	}
	return &OperationService{Deps: d.withDefaults(), machine: machine}
}

// StartOperation opens an operation for the active team in stage MOBILIZANDO.
func (s *OperationService) StartOperation(ctx context.Context, in StartOperationInput) (*models.Operation, error) {
	const op = "start operation"

	team, err := s.Cache.ActiveTeam(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, preconditionError(op, "no active team")
		}
		return nil, storeError(s.Logger, op, err, "", "")
	}

	if _, err := s.Cache.ActiveOperation(ctx); err == nil {
		return nil, conflictError(op, "an operation is already active")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeError(s.Logger, op, err, "", "")
	}

	in.Well = blankToNil(in.Well)
	in.City = blankToNil(in.City)
	in.Notes = blankToNil(in.Notes)
	if v := violations(in); len(v) > 0 {
		return nil, validationError(op, v)
	}

	operation := &models.Operation{
		TeamID:    team.ID,
		Kind:      in.Kind,
		Well:      in.Well,
		City:      in.City,
		Notes:     in.Notes,
		Stage:     models.StageMobilizing,
		StartedAt: s.Now(),
	}
	if err := s.Store.CreateActiveOperation(ctx, operation); err != nil {
		return nil, storeError(s.Logger, op, err, "", "an operation is already active")
	}
	s.Cache.SetActiveOperation(operation)
	s.Metrics.SetOperationActive(true)

	s.Logger.Info("Operation started",
		zap.Int64("operation_id", operation.ID),
		zap.Int64("team_id", team.ID),
		zap.String("kind", string(operation.Kind)),
	)
	s.Events.Publish(EventOperationStarted, operation)
	return operation, nil
}

// SetStage moves the active operation to a new stage. FINALIZADA closes it.
func (s *OperationService) SetStage(ctx context.Context, id int64, in SetStageInput) (*models.Operation, error) {
	const op = "set operation stage"

	if v := violations(in); len(v) > 0 {
		return nil, validationError(op, v)
	}

	s.stageMu.Lock()
	defer s.stageMu.Unlock()

	active, err := s.Cache.ActiveOperation(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, conflictError(op, "not the active operation")
	case err != nil:
		return nil, storeError(s.Logger, op, err, "", "")
	case active.ID != id:
		return nil, conflictError(op, "not the active operation")
	}

	if err := s.machine.Transition(ctx, active.Stage, in.Stage); err != nil {
		if errors.Is(err, state.ErrForbidden) || errors.Is(err, state.ErrTerminal) {
			return nil, &Error{
				Kind:    KindConflict,
				Op:      op,
				Message: fmt.Sprintf("cannot move from %s to %s", active.Stage, in.Stage),
				Err:     err,
			}
		}
		return nil, &Error{Kind: KindInternal, Op: op, Message: op + " failed", Err: err}
	}

	var finishedAt *time.Time
	if in.Stage == models.StageFinished {
		now := s.Now()
		finishedAt = &now
	}

	updated, err := s.Store.UpdateOperationStage(ctx, id, active.Stage, in.Stage, finishedAt)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrConflict) {
			// changed behind our back; the next read reloads from the store
			s.Cache.ClearActiveOperation()
		}
		return nil, storeError(s.Logger, op, err, "operation not found", "operation stage changed concurrently, retry")
	}

	if updated.IsActive() {
		s.Cache.SetActiveOperation(updated)
	} else {
		s.Cache.ClearActiveOperation()
		s.Metrics.SetOperationActive(false)
	}

	if active.Stage != updated.Stage {
		s.Metrics.StageChanged(string(active.Stage), string(updated.Stage))
		s.Logger.Info("Operation stage changed",
			zap.Int64("operation_id", id),
			zap.String("from", string(active.Stage)),
			zap.String("to", string(updated.Stage)),
		)
		s.Events.Publish(EventOperationStageChanged, updated)
	}
	return updated, nil
}

// ActiveOperation returns the active, unfinished operation.
func (s *OperationService) ActiveOperation(ctx context.Context) (*models.Operation, error) {
	operation, err := s.Cache.ActiveOperation(ctx)
	if err != nil {
		return nil, storeError(s.Logger, "get active operation", err, "no active operation", "")
	}
	return operation, nil
}

// GetOperation returns an operation by id.
func (s *OperationService) GetOperation(ctx context.Context, id int64) (*models.Operation, error) {
	operation, err := s.Store.GetOperation(ctx, id)
	if err != nil {
		return nil, storeError(s.Logger, "get operation", err, "operation not found", "")
	}
	return operation, nil
}

// ListOperations pages operations, newest first.
func (s *OperationService) ListOperations(ctx context.Context, page, limit int) ([]*models.Operation, models.Pagination, error) {
	const op = "list operations"
	page, limit = normalizePage(page, limit)
	p := models.NewPagination(page, limit, 0)

	total, err := s.Store.CountOperations(ctx)
	if err != nil {
		return nil, p, storeError(s.Logger, op, err, "", "")
	}
	ops, err := s.Store.ListOperations(ctx, limit, p.Offset())
	if err != nil {
		return nil, p, storeError(s.Logger, op, err, "", "")
	}
	if ops == nil {
		ops = []*models.Operation{}
	}
	return ops, models.NewPagination(page, limit, total), nil
}
