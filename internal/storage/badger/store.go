// Package badger persists imported datasets in an embedded BadgerHold database.
package badger

import (
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/tally/internal/common"
)

// Store owns the BadgerHold handle for the dataset directory.
type Store struct {
	db     *badgerhold.Store
	path   string
	logger *common.Logger
}

// NewStore opens (creating if needed) a BadgerHold database under path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create dataset directory %s: %w", path, err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // badger's own logger is noisy on open/close

	db, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset database at %s: %w", path, err)
	}

	logger.Debug().Str("path", path).Msg("Dataset store opened")

	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the directory backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database. Safe to call on a zero Store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
