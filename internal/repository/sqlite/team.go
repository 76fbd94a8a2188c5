package sqlite

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// CreateActiveTeam deactivates every team and inserts team as active in one transaction.
func (s *Store) CreateActiveTeam(ctx context.Context, team *models.Team) error {
	err := s.transaction(ctx, func(tx *sqlx.Tx) error {
		s.trace(store.QueryDeactivateTeams)
		if _, err := tx.ExecContext(ctx, store.QueryDeactivateTeams); err != nil {
			return fmt.Errorf("deactivate teams: %w", err)
		}
		team.Status = models.StatusActive
		args := []any{team.Operator, team.Assistant, team.Unit, team.Plate, team.Status, team.CreatedAt}
		s.trace(store.QueryInsertTeam, args...)
		if err := tx.QueryRowxContext(ctx, store.QueryInsertTeam, args...).Scan(&team.ID); err != nil {
			return fmt.Errorf("insert team: %w", err)
		}
		return nil
	})
	return mapError(err)
}

// GetTeam returns a team by id.
func (s *Store) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var t models.Team
	s.trace(store.QueryTeamByID, id)
	if err := s.db.GetContext(ctx, &t, store.QueryTeamByID, id); err != nil {
		return nil, fmt.Errorf("get team: %w", mapError(err))
	}
	return &t, nil
}

// GetLatestActiveTeam returns the most recently created active team.
func (s *Store) GetLatestActiveTeam(ctx context.Context) (*models.Team, error) {
	var t models.Team
	s.trace(store.QueryLatestActiveTeam)
	if err := s.db.GetContext(ctx, &t, store.QueryLatestActiveTeam); err != nil {
		return nil, fmt.Errorf("get active team: %w", mapError(err))
	}
	return &t, nil
}

// ListTeams pages teams by id descending.
func (s *Store) ListTeams(ctx context.Context, limit, offset int) ([]*models.Team, error) {
	teams := []*models.Team{}
	s.trace(store.QueryListTeams, limit, offset)
	if err := s.db.SelectContext(ctx, &teams, store.QueryListTeams, limit, offset); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return teams, nil
}

// CountTeams counts all teams.
func (s *Store) CountTeams(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.GetContext(ctx, &count, store.QueryCountTeams); err != nil {
		return 0, fmt.Errorf("count teams: %w", err)
	}
	return count, nil
}
