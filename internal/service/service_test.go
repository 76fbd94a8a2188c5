package service_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/repository/sqlite"
	"github.com/langchou/fieldops/internal/service"
	"github.com/langchou/fieldops/internal/state"
	"github.com/langchou/fieldops/internal/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) Publish(eventType string, _ any) {
	r.mu.Lock()
	r.events = append(r.events, eventType)
	r.mu.Unlock()
}

type fixture struct {
	*service.Services
	store  *sqlite.Store
	clock  *clock
	events *recorder
}

func setup(t *testing.T, policy state.Policy) *fixture {
	t.Helper()
	return setupWith(t, policy, nil)
}

// setupWith lets a test wrap the store the services see. f.store stays the real one.
func setupWith(t *testing.T, policy state.Policy, wrap func(store.Store) store.Store) *fixture {
	t.Helper()
	ctx := context.Background()
	st, err := sqlite.Open(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	clk := &clock{now: time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)}
	events := &recorder{}
	var backing store.Store = st
	if wrap != nil {
		backing = wrap(st)
	}
	svc := service.New(service.Deps{
		Store:  backing,
		Cache:  state.NewCache(backing),
		Events: events,
		Now:    clk.Now,
	}, policy)
	return &fixture{Services: svc, store: st, clock: clk, events: events}
}

func (f *fixture) registerAna(t *testing.T) *models.Team {
	t.Helper()
	team, err := f.Teams.RegisterTeam(context.Background(), service.RegisterTeamInput{
		Operator: "Ana", Assistant: "Bia", Unit: "U1", Plate: "ABC1234",
	})
	if err != nil {
		t.Fatalf("register team: %v", err)
	}
	return team
}

func strPtr(s string) *string { return &s }

func kindOf(is *is.I, err error, want service.Kind) {
	is.Helper()
	is.True(err != nil)
	is.Equal(service.KindOf(err), want)
}

var errStoreDown = errors.New("connection reset by peer")

// brokenTeams fails every team list read.
type brokenTeams struct {
	store.Store
}

func (brokenTeams) CountTeams(context.Context) (int64, error) { return 0, errStoreDown }

func (brokenTeams) ListTeams(context.Context, int, int) ([]*models.Team, error) {
	return nil, errStoreDown
}

// lostReadBack fails activity reads once a finish has been written.
type lostReadBack struct {
	store.Store
	finished atomic.Bool
}

func (s *lostReadBack) FinishActivity(ctx context.Context, kind models.ActivityKind, id int64, p store.FinishParams) error {
	if err := s.Store.FinishActivity(ctx, kind, id, p); err != nil {
		return err
	}
	s.finished.Store(true)
	return nil
}

func (s *lostReadBack) GetActivity(ctx context.Context, kind models.ActivityKind, id int64) (*models.Activity, error) {
	if s.finished.Load() {
		return nil, errStoreDown
	}
	return s.Store.GetActivity(ctx, kind, id)
}
