package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
)

const uploadMetaFile = "upload.json"

// FileUploadStore archives original uploads on the local filesystem.
// Layout: {basePath}/{datasetID}/upload.json plus the file itself.
type FileUploadStore struct {
	basePath string
	logger   *common.Logger
}

// NewFileUploadStore creates the archive directory if needed.
func NewFileUploadStore(logger *common.Logger, basePath string) (*FileUploadStore, error) {
	if basePath == "" {
		return nil, errors.New("upload store path is required")
	}
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", basePath, err)
	}
	logger.Debug().Str("path", basePath).Msg("Upload store initialized")
	return &FileUploadStore{basePath: basePath, logger: logger}, nil
}

// safeName reduces a key or filename to a single path element
func safeName(name string) string {
	name = filepath.Base(filepath.Clean("/" + strings.ReplaceAll(name, "\\", "/")))
	name = strings.ReplaceAll(name, "..", "__")
	if name == "" || name == "/" || name == "." {
		return "upload"
	}
	return name
}

func (s *FileUploadStore) dir(datasetID string) string {
	return filepath.Join(s.basePath, safeName(datasetID))
}

func (s *FileUploadStore) SaveUpload(_ context.Context, datasetID, filename string, data []byte) error {
	if datasetID == "" {
		return errors.New("dataset ID is required")
	}
	dir := s.dir(datasetID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	sum := sha256.Sum256(data)
	meta := models.Upload{
		DatasetID: datasetID,
		Filename:  safeName(filename),
		Size:      int64(len(data)),
		Checksum:  hex.EncodeToString(sum[:]),
		StoredAt:  time.Now().UTC(),
	}
	if meta.Filename == uploadMetaFile {
		meta.Filename = "source-" + uploadMetaFile
	}

	if err := writeAtomic(filepath.Join(dir, meta.Filename), data); err != nil {
		return err
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode upload metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, uploadMetaFile), metaJSON); err != nil {
		return err
	}

	s.logger.Debug().Str("dataset", datasetID).Str("file", meta.Filename).Int("bytes", len(data)).Msg("Upload archived")
	return nil
}

func (s *FileUploadStore) GetUpload(_ context.Context, datasetID string) (*models.Upload, error) {
	dir := s.dir(datasetID)
	metaJSON, err := os.ReadFile(filepath.Join(dir, uploadMetaFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrUploadNotFound, datasetID)
		}
		return nil, fmt.Errorf("failed to read upload metadata for %s: %w", datasetID, err)
	}

	var meta models.Upload
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode upload metadata for %s: %w", datasetID, err)
	}
	data, err := os.ReadFile(filepath.Join(dir, meta.Filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", models.ErrUploadNotFound, datasetID)
		}
		return nil, fmt.Errorf("failed to read upload for %s: %w", datasetID, err)
	}
	meta.Data = data
	return &meta, nil
}

// DeleteUpload removes the archive for a dataset. Missing archives are not an error.
func (s *FileUploadStore) DeleteUpload(_ context.Context, datasetID string) error {
	if err := os.RemoveAll(s.dir(datasetID)); err != nil {
		return fmt.Errorf("failed to delete upload for %s: %w", datasetID, err)
	}
	return nil
}

// writeAtomic writes via a temp file and rename so readers never see a partial file
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

var _ interfaces.UploadStorage = (*FileUploadStore)(nil)
