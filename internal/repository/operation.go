package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// OperationRepository operation data access
type OperationRepository struct {
	db *DB
}

// NewOperationRepository creates an operation repository.
func NewOperationRepository(db *DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// CreateActiveOperation inserts op unless an active operation already exists.
// The partial unique index on status closes the window between check and insert.
func (r *OperationRepository) CreateActiveOperation(ctx context.Context, op *models.Operation) error {
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var active int64
		if err := tx.QueryRow(ctx, store.QueryActiveOperationExists).Scan(&active); err != nil {
			return fmt.Errorf("check active operation: %w", err)
		}
		if active > 0 {
			return store.ErrConflict
		}
		op.Status = models.StatusActive
		err := tx.QueryRow(ctx, rebind(store.QueryInsertOperation),
			op.TeamID,
			op.Kind,
			op.Well,
			op.City,
			op.Notes,
			op.Status,
			op.Stage,
			op.StartedAt,
		).Scan(&op.ID)
		if err != nil {
			return fmt.Errorf("insert operation: %w", err)
		}
		return nil
	})
	return mapError(err)
}

// GetOperation returns an operation by id.
func (r *OperationRepository) GetOperation(ctx context.Context, id int64) (*models.Operation, error) {
	return getOperation(ctx, r.db.Pool, rebind(store.QueryOperationByID), id)
}

// GetLatestActiveOperation returns the newest operation that is active and not finished.
func (r *OperationRepository) GetLatestActiveOperation(ctx context.Context) (*models.Operation, error) {
	return getOperation(ctx, r.db.Pool, store.QueryLatestActiveOperation)
}

// UpdateOperationStage moves an active operation from one stage to another, closing it when finishedAt is set.
func (r *OperationRepository) UpdateOperationStage(ctx context.Context, id int64, from, to models.Stage, finishedAt *time.Time) (*models.Operation, error) {
	var op *models.Operation
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var (
			query string
			args  []any
		)
		if finishedAt != nil {
			query, args = store.QueryFinishOperation, []any{to, *finishedAt, id, from}
		} else {
			query, args = store.QuerySetOperationStage, []any{to, id, from}
		}
		tag, err := tx.Exec(ctx, rebind(query), args...)
		if err != nil {
			return fmt.Errorf("update operation stage: %w", err)
		}
		if tag.RowsAffected() == 0 {
			current, err := getOperation(ctx, tx, rebind(store.QueryOperationByID), id)
			if err != nil {
				return err
			}
			return store.StaleStage(current)
		}
		op, err = getOperation(ctx, tx, rebind(store.QueryOperationByID), id)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}
	return op, nil
}

// ListOperations pages operations by id descending.
func (r *OperationRepository) ListOperations(ctx context.Context, limit, offset int) ([]*models.Operation, error) {
	rows, err := r.db.Pool.Query(ctx, rebind(store.QueryListOperations), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list operations: %w", err)
	}
	ops, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Operation])
	if err != nil {
		return nil, fmt.Errorf("scan operations: %w", err)
	}
	return ops, nil
}

// CountOperations counts all operations.
func (r *OperationRepository) CountOperations(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.Pool.QueryRow(ctx, store.QueryCountOperations).Scan(&count); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return count, nil
}

func getOperation(ctx context.Context, q querier, query string, args ...any) (*models.Operation, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get operation: %w", err)
	}
	op, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Operation])
	if err != nil {
		return nil, fmt.Errorf("get operation: %w", mapError(err))
	}
	return op, nil
}
