// Package state holds the in-process view of the active team and operation and the
// operation stage machine.
package state

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/langchou/fieldops/internal/models"
	"github.com/langchou/fieldops/internal/store"
)

// Loader reads the active records from the store.
type Loader interface {
	GetLatestActiveTeam(ctx context.Context) (*models.Team, error)
	GetLatestActiveOperation(ctx context.Context) (*models.Operation, error)
}

// Cache mirrors the active team and active operation. The store stays the source of
// truth: values are loaded lazily and replaced only after successful writes.
type Cache struct {
	mu     sync.RWMutex
	loader Loader
	group  singleflight.Group

	team    *models.Team
	teamGen uint64
	op      *models.Operation
	opGen   uint64
}

// NewCache creates an empty cache.
func NewCache(loader Loader) *Cache {
	return &Cache{loader: loader}
}

// ActiveTeam returns the active team, loading it on a miss. store.ErrNotFound when there is none.
func (c *Cache) ActiveTeam(ctx context.Context) (*models.Team, error) {
	c.mu.RLock()
	if c.team != nil {
		t := *c.team
		c.mu.RUnlock()
		return &t, nil
	}
	gen := c.teamGen
	c.mu.RUnlock()

	v, err, _ := c.group.Do("team", func() (any, error) {
		return c.loader.GetLatestActiveTeam(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	loaded := *v.(*models.Team)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.teamGen != gen {
		// a write landed while loading; it wins
		if c.team == nil {
			return nil, store.ErrNotFound
		}
		t := *c.team
		return &t, nil
	}
	if c.team == nil {
		t := loaded
		c.team = &t
	}
	return &loaded, nil
}

// SetActiveTeam replaces the cached team. An older team (lower id) never replaces a newer one.
func (c *Cache) SetActiveTeam(t *models.Team) {
	cp := *t
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.team != nil && cp.ID < c.team.ID {
		return
	}
	c.team = &cp
	c.teamGen++
}

// ClearActiveTeam drops the cached team.
func (c *Cache) ClearActiveTeam() {
	c.mu.Lock()
	c.team = nil
	c.teamGen++
	c.mu.Unlock()
}

// ActiveOperation returns the active, unfinished operation, loading it on a miss.
func (c *Cache) ActiveOperation(ctx context.Context) (*models.Operation, error) {
	c.mu.RLock()
	if c.op != nil {
		op := cloneOperation(c.op)
		c.mu.RUnlock()
		return op, nil
	}
	gen := c.opGen
	c.mu.RUnlock()

	v, err, _ := c.group.Do("operation", func() (any, error) {
		return c.loader.GetLatestActiveOperation(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, err
	}
	loaded := v.(*models.Operation)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.opGen != gen {
		if c.op == nil {
			return nil, store.ErrNotFound
		}
		return cloneOperation(c.op), nil
	}
	if c.op == nil {
		c.op = cloneOperation(loaded)
	}
	return cloneOperation(loaded), nil
}

// SetActiveOperation replaces the cached operation. A finished operation clears it instead.
func (c *Cache) SetActiveOperation(op *models.Operation) {
	if !op.IsActive() {
		c.ClearActiveOperation()
		return
	}
	cp := cloneOperation(op)
	c.mu.Lock()
	c.op = cp
	c.opGen++
	c.mu.Unlock()
}

// ClearActiveOperation drops the cached operation.
func (c *Cache) ClearActiveOperation() {
	c.mu.Lock()
	c.op = nil
	c.opGen++
	c.mu.Unlock()
}

func cloneOperation(op *models.Operation) *models.Operation {
	cp := *op
	cp.Well = cloneString(op.Well)
	cp.City = cloneString(op.City)
	cp.Notes = cloneString(op.Notes)
	if op.FinishedAt != nil {
		t := *op.FinishedAt
		cp.FinishedAt = &t
	}
	return &cp
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
