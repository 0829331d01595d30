// Package storage provides the StorageManager that owns the dataset
// database and the upload archive.
package storage

import (
	"fmt"
	"path/filepath"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/storage/badger"
)

// Manager implements interfaces.StorageManager.
type Manager struct {
	store    *badger.Store
	datasets interfaces.DatasetStorage
	uploads  *FileUploadStore
	dataPath string
	logger   *common.Logger
}

// NewManager opens the dataset database and upload archive.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	store, err := badger.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create dataset store: %w", err)
	}

	uploadsPath := config.Storage.UploadsPath
	if uploadsPath == "" {
		uploadsPath = filepath.Join(filepath.Dir(config.Storage.Path), "uploads")
	}
	uploads, err := NewFileUploadStore(logger, uploadsPath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create upload store: %w", err)
	}

	logger.Info().
		Str("datasets", config.Storage.Path).
		Str("uploads", uploadsPath).
		Msg("Storage manager initialized")

	return &Manager{
		store:    store,
		datasets: badger.NewDatasetStorage(store, logger),
		uploads:  uploads,
		dataPath: filepath.Dir(config.Storage.Path),
		logger:   logger,
	}, nil
}

func (m *Manager) DatasetStorage() interfaces.DatasetStorage {
	return m.datasets
}

func (m *Manager) UploadStorage() interfaces.UploadStorage {
	return m.uploads
}

func (m *Manager) DataPath() string {
	return m.dataPath
}

func (m *Manager) Close() error {
	return m.store.Close()
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
