// Package service implements team registration, the operation stage workflow and the
// activity lifecycle on top of the store and the active-state cache.
package service

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/langchou/fieldops/internal/metrics"
	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/state"
	"github.com/langchou/fieldops/internal/store"
)

// Realtime event types.
const (
	EventTeamRegistered        = "team_registered"
	EventOperationStarted      = "operation_started"
	EventOperationStageChanged = "operation_stage_changed"
	EventActivityStarted       = "activity_started"
	EventActivityFinished      = "activity_finished"
)

// Publisher receives state-change events. Delivery is best effort.
type Publisher interface {
	Publish(eventType string, data any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, any) {}

// Deps collaborators shared by every service
type Deps struct {
	Logger  *zap.Logger
	Store   store.Store
	Cache   *state.Cache
	Events  Publisher
	Metrics *metrics.Metrics
	// Now defaults to time.Now in UTC.
	Now func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Cache == nil {
		d.Cache = state.NewCache(d.Store)
	}
	if d.Events == nil {
		d.Events = nopPublisher{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// Services every service of the application, wired to the same cache.
type Services struct {
	Teams      *TeamService
	Operations *OperationService
	Activities map[models.ActivityKind]*ActivityService
}

// New wires all services.
func New(d Deps, policy state.Policy) *Services {
	d = d.withDefaults()
	activities := make(map[models.ActivityKind]*ActivityService, len(models.ActivityKinds))
	for _, kind := range models.ActivityKinds {
		activities[kind] = NewActivityService(kind, d)
	}
	return &Services{
		Teams:      NewTeamService(d),
		Operations: NewOperationService(d, state.NewMachine(policy)),
		Activities: activities,
	}
}

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
	maxOffset    = math.MaxInt32
)

// normalizePage clamps paging parameters to sane values.
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = defaultPage
	}
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	// keep (page-1)*limit a valid OFFSET on every backend
	if maxPage := maxOffset/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit
}
