package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// ActivityRepository data access for travel, wait, meal and refuel records
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates an activity repository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// StartActivity inserts an open activity and reads it back in the same transaction.
func (r *ActivityRepository) StartActivity(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	var created *models.Activity
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var open int64
		if err := tx.QueryRow(ctx, rebind(store.QueryOpenActivityExists(a.Kind)), a.TeamID).Scan(&open); err != nil {
			return fmt.Errorf("check open %s: %w", a.Kind, err)
		}
		if open > 0 {
			return store.ErrConflict
		}
		query, args := store.QueryInsertActivity(a)
		var id int64
		if err := tx.QueryRow(ctx, rebind(query), args...).Scan(&id); err != nil {
			return fmt.Errorf("insert %s: %w", a.Kind, err)
		}
		var err error
		created, err = getActivity(ctx, tx, a.Kind, rebind(store.QueryActivityByID(a.Kind)), id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

// FinishActivity closes an open activity.
func (r *ActivityRepository) FinishActivity(ctx context.Context, kind models.ActivityKind, id int64, p store.FinishParams) error {
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		query, args := store.QueryFinishActivity(kind, id, p)
		tag, err := tx.Exec(ctx, rebind(query), args...)
		if err != nil {
			return fmt.Errorf("finish %s: %w", kind, err)
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		// nothing updated: either missing or already closed
		var open bool
		if err := tx.QueryRow(ctx, rebind(store.QueryActivityState(kind)), id).Scan(&open); err != nil {
			return fmt.Errorf("finish %s: %w", kind, mapError(err))
		}
		return store.ErrConflict
	})
	return mapError(err)
}

// GetActivity returns an activity by id.
func (r *ActivityRepository) GetActivity(ctx context.Context, kind models.ActivityKind, id int64) (*models.Activity, error) {
	return getActivity(ctx, r.db.Pool, kind, rebind(store.QueryActivityByID(kind)), id)
}

// GetOpenActivity returns the open activity of a team.
func (r *ActivityRepository) GetOpenActivity(ctx context.Context, kind models.ActivityKind, teamID int64) (*models.Activity, error) {
	return getActivity(ctx, r.db.Pool, kind, rebind(store.QueryOpenActivity(kind)), teamID)
}

// ListActivities pages activities by start time descending.
func (r *ActivityRepository) ListActivities(ctx context.Context, kind models.ActivityKind, f models.ActivityFilter, limit, offset int) ([]*models.Activity, error) {
	query, args := store.QueryListActivities(kind, f, limit, offset)
	rows, err := r.db.Pool.Query(ctx, rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByNameLax[models.Activity])
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", kind, err)
	}
	for _, a := range list {
		a.Kind = kind
		a.Derive()
	}
	return list, nil
}

// CountActivities counts activities matching f.
func (r *ActivityRepository) CountActivities(ctx context.Context, kind models.ActivityKind, f models.ActivityFilter) (int64, error) {
	query, args := store.QueryCountActivities(kind, f)
	var count int64
	if err := r.db.Pool.QueryRow(ctx, rebind(query), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return count, nil
}

func getActivity(ctx context.Context, q querier, kind models.ActivityKind, query string, args ...any) (*models.Activity, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, err)
	}
	a, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByNameLax[models.Activity])
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, mapError(err))
	}
	a.Kind = kind
	a.Derive()
	return a, nil
}
