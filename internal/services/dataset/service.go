// Package dataset manages imported input datasets
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/ingest"
)

// MaxUploadBytes caps a single import
const MaxUploadBytes = 10 << 20

// ErrTooLarge is returned when an import exceeds MaxUploadBytes
var ErrTooLarge = fmt.Errorf("upload exceeds %d bytes", MaxUploadBytes)

// ErrInvalidUpload wraps parse failures of an import
var ErrInvalidUpload = errors.New("invalid upload")

// Compile-time interface check
var _ interfaces.DatasetService = (*Service)(nil)

// Service implements DatasetService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
	now     func() time.Time
}

// NewService creates a new dataset service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Import parses the upload and stores it as a new dataset. The original
// bytes are archived alongside; an archive failure is logged, not returned.
func (s *Service) Import(ctx context.Context, name, source string, r io.Reader) (*models.Dataset, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, ErrTooLarge
	}

	var table *ingest.Table
	if strings.EqualFold(filepath.Ext(source), ".json") {
		rows, err := ingest.DecodeJSONRows(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidUpload, source, err)
		}
		table = ingest.TableFromRows(rows)
	} else {
		table, err = ingest.ParseCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidUpload, source, err)
		}
	}

	ds := s.newDataset(datasetName(name, source), source, table)
	if err := s.storage.DatasetStorage().SaveDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}

	if uploads := s.storage.UploadStorage(); uploads != nil {
		if err := uploads.SaveUpload(ctx, ds.ID, source, data); err != nil {
			s.logger.Warn().Err(err).Str("dataset", ds.ID).Msg("Failed to archive upload")
		}
	}

	s.logger.Info().Str("id", ds.ID).Str("name", ds.Name).Int("rows", len(ds.Rows)).Msg("Dataset imported")
	return ds, nil
}

// ImportSample stores an embedded sample as a new dataset
func (s *Service) ImportSample(ctx context.Context, sample string) (*models.Dataset, error) {
	smp, err := ingest.LookupSample(sample)
	if err != nil {
		return nil, err
	}

	ds := s.newDataset(smp.Title, "sample:"+smp.Name, &ingest.Table{Columns: smp.Columns, Rows: smp.Rows})
	if err := s.storage.DatasetStorage().SaveDataset(ctx, ds); err != nil {
		return nil, fmt.Errorf("failed to save dataset: %w", err)
	}
	s.logger.Info().Str("id", ds.ID).Str("sample", smp.Name).Msg("Sample dataset imported")
	return ds, nil
}

// Get returns a dataset by ID
func (s *Service) Get(ctx context.Context, id string) (*models.Dataset, error) {
	ds, err := s.storage.DatasetStorage().GetDataset(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return ds, nil
}

// List returns dataset metadata, newest first
func (s *Service) List(ctx context.Context) ([]models.DatasetInfo, error) {
	all, err := s.storage.DatasetStorage().ListDatasets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	infos := make([]models.DatasetInfo, 0, len(all))
	for _, ds := range all {
		infos = append(infos, ds.Info())
	}
	return infos, nil
}

// Source returns the archived upload for a dataset
func (s *Service) Source(ctx context.Context, id string) (*models.Upload, error) {
	uploads := s.storage.UploadStorage()
	if uploads == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrUploadNotFound, id)
	}
	return uploads.GetUpload(ctx, id)
}

// Delete removes a dataset and its archived upload
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.storage.DatasetStorage().DeleteDataset(ctx, id); err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if uploads := s.storage.UploadStorage(); uploads != nil {
		if err := uploads.DeleteUpload(ctx, id); err != nil && !errors.Is(err, models.ErrUploadNotFound) {
			s.logger.Warn().Err(err).Str("dataset", id).Msg("Failed to delete archived upload")
		}
	}
	s.logger.Info().Str("id", id).Msg("Dataset deleted")
	return nil
}

func (s *Service) newDataset(name, source string, table *ingest.Table) *models.Dataset {
	return &models.Dataset{
		ID:         uuid.NewString(),
		Name:       name,
		Source:     source,
		ImportedAt: s.now(),
		Columns:    table.Columns,
		Rows:       table.Rows,
	}
}

// datasetName falls back to the source file name without its extension
func datasetName(name, source string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "dataset"
	}
	return base
}
