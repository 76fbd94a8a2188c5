// Package store defines the persistence contract of the service.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/langchou/fieldops/internal/models"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would break a single-active invariant.
	ErrConflict = errors.New("conflict")
	// ErrReference is returned when a foreign key points at a missing row.
	ErrReference = errors.New("invalid reference")
)

// TeamStore persists teams.
type TeamStore interface {
	// CreateActiveTeam deactivates every team and inserts t as the active one, atomically.
	CreateActiveTeam(ctx context.Context, t *models.Team) error
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	GetLatestActiveTeam(ctx context.Context) (*models.Team, error)
	ListTeams(ctx context.Context, limit, offset int) ([]*models.Team, error)
	CountTeams(ctx context.Context) (int64, error)
}

// OperationStore persists operations.
type OperationStore interface {
	// CreateActiveOperation inserts op as the active operation. ErrConflict if one exists.
	CreateActiveOperation(ctx context.Context, op *models.Operation) error
	GetOperation(ctx context.Context, id int64) (*models.Operation, error)
	GetLatestActiveOperation(ctx context.Context) (*models.Operation, error)
	// UpdateOperationStage moves an active operation from stage from to stage to. A non-nil
	// finishedAt closes the operation. ErrNotFound when the operation is missing or closed,
	// ErrConflict when it is active but no longer at from.
	UpdateOperationStage(ctx context.Context, id int64, from, to models.Stage, finishedAt *time.Time) (*models.Operation, error)
	ListOperations(ctx context.Context, limit, offset int) ([]*models.Operation, error)
	CountOperations(ctx context.Context) (int64, error)
}

// FinishParams values written when an activity is closed.
type FinishParams struct {
	EndTime         time.Time
	DurationSeconds int64
	Notes           *string
	EndOdometer     *float64
}

// ActivityStore persists the four activity kinds.
type ActivityStore interface {
	// StartActivity inserts an open record and reads it back. ErrConflict if the team already has one open.
	StartActivity(ctx context.Context, a *models.Activity) (*models.Activity, error)
	// FinishActivity closes an open record. ErrNotFound for unknown ids, ErrConflict if already closed.
	FinishActivity(ctx context.Context, kind models.ActivityKind, id int64, p FinishParams) error
	GetActivity(ctx context.Context, kind models.ActivityKind, id int64) (*models.Activity, error)
	GetOpenActivity(ctx context.Context, kind models.ActivityKind, teamID int64) (*models.Activity, error)
	ListActivities(ctx context.Context, kind models.ActivityKind, f models.ActivityFilter, limit, offset int) ([]*models.Activity, error)
	CountActivities(ctx context.Context, kind models.ActivityKind, f models.ActivityFilter) (int64, error)
}

// Store is the full persistence layer.
type Store interface {
	TeamStore
	OperationStore
	ActivityStore

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// StaleStage classifies a stage update that matched no row, given the operation as it is now.
func StaleStage(current *models.Operation) error {
	if current.IsActive() {
		return fmt.Errorf("%w: operation %d is at stage %s", ErrConflict, current.ID, current.Stage)
	}
	return ErrNotFound
}
