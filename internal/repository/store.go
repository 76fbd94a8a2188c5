package repository

import (
	"github.com/langchou/fieldops/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store is the Postgres implementation of store.Store.
type Store struct {
	*DB
	*TeamRepository
	*OperationRepository
	*ActivityRepository
}

// NewStore assembles the repositories over one pool.
func NewStore(db *DB) *Store {
	return &Store{
		DB:                  db,
		TeamRepository:      NewTeamRepository(db),
		OperationRepository: NewOperationRepository(db),
		ActivityRepository:  NewActivityRepository(db),
	}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.DB.Close()
	return nil
}
