package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// TeamRepository team data access
type TeamRepository struct {
	db *DB
}

// NewTeamRepository creates a team repository.
func NewTeamRepository(db *DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// CreateActiveTeam deactivates every team and inserts team as active in one transaction.
func (r *TeamRepository) CreateActiveTeam(ctx context.Context, team *models.Team) error {
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, store.QueryDeactivateTeams); err != nil {
			return fmt.Errorf("deactivate teams: %w", err)
		}
		team.Status = models.StatusActive
		err := tx.QueryRow(ctx, rebind(store.QueryInsertTeam),
			team.Operator,
			team.Assistant,
			team.Unit,
			team.Plate,
			team.Status,
			team.CreatedAt,
		).Scan(&team.ID)
		if err != nil {
			return fmt.Errorf("insert team: %w", err)
		}
		return nil
	})
	return mapError(err)
}

// GetTeam returns a team by id.
func (r *TeamRepository) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	return r.one(ctx, rebind(store.QueryTeamByID), id)
}

// GetLatestActiveTeam returns the most recently created active team.
func (r *TeamRepository) GetLatestActiveTeam(ctx context.Context) (*models.Team, error) {
	return r.one(ctx, store.QueryLatestActiveTeam)
}

// ListTeams pages teams by id descending.
func (r *TeamRepository) ListTeams(ctx context.Context, limit, offset int) ([]*models.Team, error) {
	rows, err := r.db.Pool.Query(ctx, rebind(store.QueryListTeams), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Team])
	if err != nil {
		return nil, fmt.Errorf("scan teams: %w", err)
	}
	return teams, nil
}

// CountTeams counts all teams.
func (r *TeamRepository) CountTeams(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.Pool.QueryRow(ctx, store.QueryCountTeams).Scan(&count); err != nil {
		return 0, fmt.Errorf("count teams: %w", err)
	}
	return count, nil
}

func (r *TeamRepository) one(ctx context.Context, query string, args ...any) (*models.Team, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get team: %w", err)
	}
	team, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[models.Team])
	if err != nil {
		return nil, fmt.Errorf("get team: %w", mapError(err))
	}
	return team, nil
}
