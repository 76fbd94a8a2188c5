package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/langchou/fieldops/internal/models"
)

// RegisterTeamInput payload of a team registration
type RegisterTeamInput struct {
	Operator  string `json:"operador" validate:"min=2,max=100"`
	Assistant string `json:"auxiliar" validate:"min=2,max=100"`
	Unit      string `json:"unidade" validate:"min=2,max=100"`
	Plate     string `json:"placa" validate:"min=3,max=20"`
}

// TeamService team registration and lookup
type TeamService struct {
	Deps
}

// NewTeamService creates a team service.
func NewTeamService(d Deps) *TeamService {
	return &TeamService{Deps: d.withDefaults()}
}

// RegisterTeam creates the new active team. Every previous team becomes inactive.
func (s *TeamService) RegisterTeam(ctx context.Context, in RegisterTeamInput) (*models.Team, error) {
	const op = "register team"

	in.Operator = strings.TrimSpace(in.Operator)
	in.Assistant = strings.TrimSpace(in.Assistant)
	in.Unit = strings.TrimSpace(in.Unit)
	in.Plate = strings.TrimSpace(in.Plate)
	if v := violations(in); len(v) > 0 {
		return nil, validationError(op, v)
	}

	team := &models.Team{
		Operator:  in.Operator,
		Assistant: in.Assistant,
		Unit:      in.Unit,
		Plate:     in.Plate,
		CreatedAt: s.Now(),
	}
	if err := s.Store.CreateActiveTeam(ctx, team); err != nil {
		return nil, storeError(s.Logger, op, err, "team not found", "team registration conflicted, retry")
	}
	s.Cache.SetActiveTeam(team)

	s.Logger.Info("Team registered",
		zap.Int64("team_id", team.ID),
		zap.String("operator", team.Operator),
		zap.String("plate", team.Plate),
	)
	s.Events.Publish(EventTeamRegistered, team)
	return team, nil
}

// ActiveTeam returns the active team.
func (s *TeamService) ActiveTeam(ctx context.Context) (*models.Team, error) {
	team, err := s.Cache.ActiveTeam(ctx)
	if err != nil {
		return nil, storeError(s.Logger, "get active team", err, "no active team", "")
	}
	return team, nil
}

// GetTeam returns a team by id.
func (s *TeamService) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	team, err := s.Store.GetTeam(ctx, id)
	if err != nil {
		return nil, storeError(s.Logger, "get team", err, "team not found", "")
	}
	return team, nil
}

// ListTeams pages teams, newest first.
func (s *TeamService) ListTeams(ctx context.Context, page, limit int) ([]*models.Team, models.Pagination, error) {
	const op = "list teams"
	page, limit = normalizePage(page, limit)
	p := models.NewPagination(page, limit, 0)

	total, err := s.Store.CountTeams(ctx)
	if err != nil {
		return nil, p, storeError(s.Logger, op, err, "", "")
	}
	teams, err := s.Store.ListTeams(ctx, limit, p.Offset())
	if err != nil {
		return nil, p, storeError(s.Logger, op, err, "", "")
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	return teams, models.NewPagination(page, limit, total), nil
}
