package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
)

type datasetStorage struct {
	store  *Store
	logger *common.Logger
}

// NewDatasetStorage creates a DatasetStorage backed by BadgerHold.
func NewDatasetStorage(store *Store, logger *common.Logger) interfaces.DatasetStorage {
	return &datasetStorage{store: store, logger: logger}
}

func (s *datasetStorage) GetDataset(_ context.Context, id string) (*models.Dataset, error) {
	var ds models.Dataset
	if err := s.store.db.Get(id, &ds); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrDatasetNotFound, id)
		}
		return nil, fmt.Errorf("failed to get dataset '%s': %w", id, err)
	}
	return &ds, nil
}

func (s *datasetStorage) SaveDataset(_ context.Context, ds *models.Dataset) error {
	if ds.ID == "" {
		return errors.New("dataset ID is required")
	}
	if err := s.store.db.Upsert(ds.ID, ds); err != nil {
		return fmt.Errorf("failed to save dataset '%s': %w", ds.ID, err)
	}
	s.logger.Debug().Str("id", ds.ID).Str("name", ds.Name).Int("rows", len(ds.Rows)).Msg("Dataset saved")
	return nil
}

// ListDatasets returns all datasets, newest import first.
func (s *datasetStorage) ListDatasets(_ context.Context) ([]*models.Dataset, error) {
	var found []models.Dataset
	if err := s.store.db.Find(&found, nil); err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	out := make([]*models.Dataset, len(found))
	for i := range found {
		out[i] = &found[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ImportedAt.Equal(out[j].ImportedAt) {
			return out[i].ImportedAt.After(out[j].ImportedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *datasetStorage) DeleteDataset(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.Dataset{})
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", models.ErrDatasetNotFound, id)
		}
		return fmt.Errorf("failed to delete dataset '%s': %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Dataset deleted")
	return nil
}
