package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/repository/sqlite"
	"github.com/langchou/fieldops/internal/store"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	is := is.New(t)
	ctx := context.Background()
	s, err := sqlite.Open(ctx, ":memory:", nil)
	is.NoErr(err)
	t.Cleanup(func() { _ = s.Close() })
	is.NoErr(s.Migrate(ctx))
	return s
}

func seedTeam(t *testing.T, s *sqlite.Store, operator string, at time.Time) *models.Team {
	t.Helper()
	team := &models.Team{Operator: operator, Assistant: "Bruno", Unit: "UTE-01", Plate: "ABC1D23", CreatedAt: at}
	if err := s.CreateActiveTeam(context.Background(), team); err != nil {
		t.Fatalf("create team: %v", err)
	}
	return team
}

func TestMigrateIsIdempotent(t *testing.T) {
	is := is.New(t)
	s := newStore(t)
	is.NoErr(s.Migrate(context.Background()))
}

func TestCreateActiveTeamDeactivatesPrevious(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()

	first := seedTeam(t, s, "Ana", now)
	second := seedTeam(t, s, "Carla", now.Add(time.Second))
	is.True(second.ID > first.ID)

	active, err := s.GetLatestActiveTeam(ctx)
	is.NoErr(err)
	is.Equal(active.ID, second.ID)
	is.Equal(active.Operator, "Carla")

	old, err := s.GetTeam(ctx, first.ID)
	is.NoErr(err)
	is.Equal(old.Status, models.StatusInactive)

	count, err := s.CountTeams(ctx)
	is.NoErr(err)
	is.Equal(count, int64(2))

	teams, err := s.ListTeams(ctx, 10, 0)
	is.NoErr(err)
	is.Equal(len(teams), 2)
	is.Equal(teams[0].ID, second.ID) // newest first
}

func TestGetTeamNotFound(t *testing.T) {
	is := is.New(t)
	s := newStore(t)
	_, err := s.GetTeam(context.Background(), 42)
	is.True(errors.Is(err, store.ErrNotFound))

	_, err = s.GetLatestActiveTeam(context.Background())
	is.True(errors.Is(err, store.ErrNotFound))
}

func TestSingleActiveOperation(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()
	team := seedTeam(t, s, "Ana", now)

	well := "7-MGP-98"
	op := &models.Operation{TeamID: team.ID, Kind: models.OperationThermal, Well: &well, Stage: models.StageMobilizing, StartedAt: now}
	is.NoErr(s.CreateActiveOperation(ctx, op))
	is.True(op.ID > 0)
	is.Equal(op.Status, models.StatusActive)

	second := &models.Operation{TeamID: team.ID, Kind: models.OperationPig, Stage: models.StageMobilizing, StartedAt: now}
	err := s.CreateActiveOperation(ctx, second)
	is.True(errors.Is(err, store.ErrConflict))

	active, err := s.GetLatestActiveOperation(ctx)
	is.NoErr(err)
	is.Equal(active.ID, op.ID)
	is.Equal(*active.Well, well)
	is.Equal(active.City, nil)
}

func TestUpdateOperationStage(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()
	team := seedTeam(t, s, "Ana", now)

	op := &models.Operation{TeamID: team.ID, Kind: models.OperationCleaning, Stage: models.StageMobilizing, StartedAt: now}
	is.NoErr(s.CreateActiveOperation(ctx, op))

	updated, err := s.UpdateOperationStage(ctx, op.ID, models.StageMobilizing, models.StageOperating, nil)
	is.NoErr(err)
	is.Equal(updated.Stage, models.StageOperating)

	// a writer still expecting the old stage loses
	_, err = s.UpdateOperationStage(ctx, op.ID, models.StageMobilizing, models.StageDemobilizing, nil)
	is.True(errors.Is(err, store.ErrConflict))
	current, err := s.GetOperation(ctx, op.ID)
	is.NoErr(err)
	is.Equal(current.Stage, models.StageOperating)
	is.Equal(updated.Status, models.StatusActive)
	is.Equal(updated.FinishedAt, nil)

	end := now.Add(time.Hour)
	finished, err := s.UpdateOperationStage(ctx, op.ID, models.StageOperating, models.StageFinished, &end)
	is.NoErr(err)
	is.Equal(finished.Stage, models.StageFinished)
	is.Equal(finished.Status, models.StatusInactive)
	is.True(finished.FinishedAt != nil)
	is.True(finished.FinishedAt.Equal(end))

	// closed operations are no longer writable
	_, err = s.UpdateOperationStage(ctx, op.ID, models.StageFinished, models.StageOperating, nil)
	is.True(errors.Is(err, store.ErrNotFound))

	_, err = s.GetLatestActiveOperation(ctx)
	is.True(errors.Is(err, store.ErrNotFound))

	// a new operation may start once the previous one is closed
	next := &models.Operation{TeamID: team.ID, Kind: models.OperationPig, Stage: models.StageMobilizing, StartedAt: end}
	is.NoErr(s.CreateActiveOperation(ctx, next))

	ops, err := s.ListOperations(ctx, 10, 0)
	is.NoErr(err)
	is.Equal(len(ops), 2)
	is.Equal(ops[0].ID, next.ID)
}

func TestActivityLifecycle(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Second)
	team := seedTeam(t, s, "Ana", now)

	city := "Mossoró"
	op := &models.Operation{TeamID: team.ID, Kind: models.OperationThermal, City: &city, Stage: models.StageMobilizing, StartedAt: now}
	is.NoErr(s.CreateActiveOperation(ctx, op))

	origin, dest := "Base", "Poço 12"
	km := 1200.5
	a, err := s.StartActivity(ctx, &models.Activity{
		Kind:          models.ActivityTravel,
		TeamID:        team.ID,
		OperationID:   &op.ID,
		StartTime:     now,
		Origin:        &origin,
		Destination:   &dest,
		StartOdometer: &km,
	})
	is.NoErr(err)
	is.True(a.IsOpen())
	is.Equal(a.Kind, models.ActivityTravel)
	is.Equal(*a.OperationKind, string(models.OperationThermal))
	is.Equal(*a.OperationCity, city)

	_, err = s.StartActivity(ctx, &models.Activity{Kind: models.ActivityTravel, TeamID: team.ID, StartTime: now, StartOdometer: &km})
	is.True(errors.Is(err, store.ErrConflict)) // one open travel per team

	// other kinds are independent
	reason := "liberação"
	_, err = s.StartActivity(ctx, &models.Activity{Kind: models.ActivityWait, TeamID: team.ID, StartTime: now, Reason: &reason})
	is.NoErr(err)

	open, err := s.GetOpenActivity(ctx, models.ActivityTravel, team.ID)
	is.NoErr(err)
	is.Equal(open.ID, a.ID)

	end := now.Add(90 * time.Minute)
	kmEnd := 1260.0
	notes := "sem ocorrências"
	err = s.FinishActivity(ctx, models.ActivityTravel, a.ID, store.FinishParams{
		EndTime: end, DurationSeconds: 5400, Notes: &notes, EndOdometer: &kmEnd,
	})
	is.NoErr(err)

	done, err := s.GetActivity(ctx, models.ActivityTravel, a.ID)
	is.NoErr(err)
	is.True(!done.IsOpen())
	is.True(done.EndTime.Equal(end))
	is.Equal(*done.DurationSeconds, int64(5400))
	is.Equal(*done.Notes, notes)
	is.Equal(*done.DistanceKm, 59.5)

	err = s.FinishActivity(ctx, models.ActivityTravel, a.ID, store.FinishParams{EndTime: end})
	is.True(errors.Is(err, store.ErrConflict)) // already finished

	err = s.FinishActivity(ctx, models.ActivityTravel, 999, store.FinishParams{EndTime: end})
	is.True(errors.Is(err, store.ErrNotFound))

	_, err = s.GetOpenActivity(ctx, models.ActivityTravel, team.ID)
	is.True(errors.Is(err, store.ErrNotFound))
}

func TestFinishKeepsStoredNotes(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()
	team := seedTeam(t, s, "Ana", now)

	notes := "almoço no canteiro"
	a, err := s.StartActivity(ctx, &models.Activity{Kind: models.ActivityMeal, TeamID: team.ID, StartTime: now, Notes: &notes})
	is.NoErr(err)
	is.Equal(a.OperationID, nil)
	is.Equal(a.OperationKind, nil)

	is.NoErr(s.FinishActivity(ctx, models.ActivityMeal, a.ID, store.FinishParams{EndTime: now.Add(time.Hour), DurationSeconds: 3600}))

	done, err := s.GetActivity(ctx, models.ActivityMeal, a.ID)
	is.NoErr(err)
	is.Equal(*done.Notes, notes)
}

func TestListActivitiesFilters(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC()
	team := seedTeam(t, s, "Ana", now)

	op := &models.Operation{TeamID: team.ID, Kind: models.OperationLeakTest, Stage: models.StageMobilizing, StartedAt: now}
	is.NoErr(s.CreateActiveOperation(ctx, op))

	water := models.RefuelWater
	for i := 0; i < 3; i++ {
		start := now.Add(time.Duration(i) * time.Hour)
		a := &models.Activity{Kind: models.ActivityRefuel, TeamID: team.ID, StartTime: start, RefuelType: &water}
		if i > 0 {
			a.OperationID = &op.ID
		}
		created, err := s.StartActivity(ctx, a)
		is.NoErr(err)
		is.NoErr(s.FinishActivity(ctx, models.ActivityRefuel, created.ID, store.FinishParams{EndTime: start.Add(time.Minute), DurationSeconds: 60}))
	}

	all, err := s.ListActivities(ctx, models.ActivityRefuel, models.ActivityFilter{}, 10, 0)
	is.NoErr(err)
	is.Equal(len(all), 3)
	is.True(all[0].StartTime.After(all[1].StartTime)) // most recent first
	is.Equal(*all[0].RefuelType, models.RefuelWater)

	byOp, err := s.ListActivities(ctx, models.ActivityRefuel, models.ActivityFilter{OperationID: &op.ID}, 10, 0)
	is.NoErr(err)
	is.Equal(len(byOp), 2)

	count, err := s.CountActivities(ctx, models.ActivityRefuel, models.ActivityFilter{TeamID: &team.ID})
	is.NoErr(err)
	is.Equal(count, int64(3))

	page, err := s.ListActivities(ctx, models.ActivityRefuel, models.ActivityFilter{}, 2, 2)
	is.NoErr(err)
	is.Equal(len(page), 1)
}
