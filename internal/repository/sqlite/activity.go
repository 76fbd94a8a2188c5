package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// StartActivity inserts an open activity and reads it back in the same transaction.
func (s *Store) StartActivity(ctx context.Context, a *models.Activity) (*models.Activity, error) {
	var created *models.Activity
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		var open int64
		if err := tx.GetContext(ctx, &open, store.QueryOpenActivityExists(a.Kind), a.TeamID); err != nil {
			return fmt.Errorf("check open %s: %w", a.Kind, err)
		}
		if open > 0 {
			return store.ErrConflict
		}
		query, args := store.QueryInsertActivity(a)
		s.trace(query, args...)
		var id int64
		if err := tx.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			return fmt.Errorf("insert %s: %w", a.Kind, err)
		}
		var err error
		created, err = s.getActivity(ctx, tx, a.Kind, store.QueryActivityByID(a.Kind), id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return created, nil
}

// FinishActivity closes an open activity.
func (s *Store) FinishActivity(ctx context.Context, kind models.ActivityKind, id int64, p store.FinishParams) error {
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		query, args := store.QueryFinishActivity(kind, id, p)
		s.trace(query, args...)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("finish %s: %w", kind, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("finish %s: %w", kind, err)
		}
		if n > 0 {
			return nil
		}
		var open bool
		if err := tx.GetContext(ctx, &open, store.QueryActivityState(kind), id); err != nil {
			return fmt.Errorf("finish %s: %w", kind, mapError(err))
		}
		return store.ErrConflict
	})
	return mapError(err)
}

// GetActivity returns an activity by id.
func (s *Store) GetActivity(ctx context.Context, kind models.ActivityKind, id int64) (*models.Activity, error) {
	return s.getActivity(ctx, s.db, kind, store.QueryActivityByID(kind), id)
}

// GetOpenActivity returns the open activity of a team.
func (s *Store) GetOpenActivity(ctx context.Context, kind models.ActivityKind, teamID int64) (*models.Activity, error) {
	return s.getActivity(ctx, s.db, kind, store.QueryOpenActivity(kind), teamID)
}

// ListActivities pages activities by start time descending.
func (s *Store) ListActivities(ctx context.Context, kind models.ActivityKind, f models.ActivityFilter, limit, offset int) ([]*models.Activity, error) {
	query, args := store.QueryListActivities(kind, f, limit, offset)
	s.trace(query, args...)
	list := []*models.Activity{}
	if err := s.db.SelectContext(ctx, &list, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	for _, a := range list {
		a.Kind = kind
		a.Derive()
	}
	return list, nil
}

// CountActivities counts activities matching f.
func (s *Store) CountActivities(ctx context.Context, kind models.ActivityKind, f models.ActivityFilter) (int64, error) {
	query, args := store.QueryCountActivities(kind, f)
	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return count, nil
}

func (s *Store) getActivity(ctx context.Context, q sqlx.QueryerContext, kind models.ActivityKind, query string, args ...any) (*models.Activity, error) {
	var a models.Activity
	s.trace(query, args...)
	if err := sqlx.GetContext(ctx, q, &a, query, args...); err != nil {
		return nil, fmt.Errorf("get %s: %w", kind, mapError(err))
	}
	a.Kind = kind
	a.Derive()
	return &a, nil
}
