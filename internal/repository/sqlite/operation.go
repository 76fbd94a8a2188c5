package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// CreateActiveOperation inserts op unless an active operation already exists.
func (s *Store) CreateActiveOperation(ctx context.Context, op *models.Operation) error {
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		var active int64
		if err := tx.GetContext(ctx, &active, store.QueryActiveOperationExists); err != nil {
			return fmt.Errorf("check active operation: %w", err)
		}
		if active > 0 {
			return store.ErrConflict
		}
		op.Status = models.StatusActive
		args := []any{op.TeamID, op.Kind, op.Well, op.City, op.Notes, op.Status, op.Stage, op.StartedAt}
		s.trace(store.QueryInsertOperation, args...)
		if err := tx.QueryRowxContext(ctx, store.QueryInsertOperation, args...).Scan(&op.ID); err != nil {
			return fmt.Errorf("insert operation: %w", err)
		}
		return nil
	})
	return mapError(err)
}

// GetOperation returns an operation by id.
func (s *Store) GetOperation(ctx context.Context, id int64) (*models.Operation, error) {
	return s.getOperation(ctx, s.db, store.QueryOperationByID, id)
}

// GetLatestActiveOperation returns the newest operation that is active and not finished.
func (s *Store) GetLatestActiveOperation(ctx context.Context) (*models.Operation, error) {
	return s.getOperation(ctx, s.db, store.QueryLatestActiveOperation)
}

// UpdateOperationStage moves an active operation from one stage to another, closing it when finishedAt is set.
func (s *Store) UpdateOperationStage(ctx context.Context, id int64, from, to models.Stage, finishedAt *time.Time) (*models.Operation, error) {
	var op *models.Operation
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		var (
			query string
			args  []any
		)
		if finishedAt != nil {
			query, args = store.QueryFinishOperation, []any{to, *finishedAt, id, from}
		} else {
			query, args = store.QuerySetOperationStage, []any{to, id, from}
		}
		s.trace(query, args...)
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update operation stage: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update operation stage: %w", err)
		}
		if n == 0 {
			current, err := s.getOperation(ctx, tx, store.QueryOperationByID, id)
			if err != nil {
				return err
			}
			return store.StaleStage(current)
		}
		op, err = s.getOperation(ctx, tx, store.QueryOperationByID, id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return op, nil
}

// ListOperations pages operations by id descending.
func (s *Store) ListOperations(ctx context.Context, limit, offset int) ([]*models.Operation, error) {
	ops := []*models.Operation{}
	s.trace(store.QueryListOperations, limit, offset)
	if err := s.db.SelectContext(ctx, &ops, store.QueryListOperations, limit, offset); err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	return ops, nil
}

// CountOperations counts all operations.
func (s *Store) CountOperations(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, store.QueryCountOperations); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return count, nil
}

func (s *Store) getOperation(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*models.Operation, error) {
	var op models.Operation
	s.trace(query, args...)
	if err := sqlx.GetContext(ctx, q, &op, query, args...); err != nil {
		return nil, fmt.Errorf("get operation: %w", mapError(err))
	}
	return &op, nil
}
