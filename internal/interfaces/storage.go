package interfaces

import (
	"context"

	"github.com/bobmcallan/tally/internal/models"
)

// StorageManager coordinates storage backends
type StorageManager interface {
	DatasetStorage() DatasetStorage
	UploadStorage() UploadStorage

	// DataPath returns the base data directory path
	DataPath() string

	// Lifecycle
	Close() error
}

// DatasetStorage persists imported input datasets. Reports are never stored.
type DatasetStorage interface {
	GetDataset(ctx context.Context, id string) (*models.Dataset, error)
	SaveDataset(ctx context.Context, dataset *models.Dataset) error
	ListDatasets(ctx context.Context) ([]*models.Dataset, error)
	DeleteDataset(ctx context.Context, id string) error
}

// UploadStorage archives the original file behind each imported dataset
type UploadStorage interface {
	SaveUpload(ctx context.Context, datasetID, filename string, data []byte) error
	GetUpload(ctx context.Context, datasetID string) (*models.Upload, error)
	DeleteUpload(ctx context.Context, datasetID string) error
}
