package models

import (
	"errors"
	"time"
)

// ErrDatasetNotFound is returned when no dataset has the requested ID.
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset is an imported batch of input rows. Values are kept as the
// source text; typing happens in validation.
type Dataset struct {
	ID         string              `json:"id" badgerhold:"key"`
	Name       string              `json:"name" badgerhold:"index"`
	Source     string              `json:"source"`
	ImportedAt time.Time           `json:"imported_at"`
	Columns    []string            `json:"columns"`
	Rows       []map[string]string `json:"rows"`
}

// DatasetInfo is the metadata view of a Dataset.
type DatasetInfo struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Source     string    `json:"source"`
	ImportedAt time.Time `json:"imported_at"`
	Columns    []string  `json:"columns"`
	RowCount   int       `json:"row_count"`
}

// RawRows converts the stored rows into analysis input.
func (d *Dataset) RawRows() []RawRow {
	rows := make([]RawRow, 0, len(d.Rows))
	for _, r := range d.Rows {
		raw := make(RawRow, len(r))
		for k, v := range r {
			raw[k] = v
		}
		rows = append(rows, raw)
	}
	return rows
}

// Info returns the dataset metadata.
func (d *Dataset) Info() DatasetInfo {
	return DatasetInfo{
		ID:         d.ID,
		Name:       d.Name,
		Source:     d.Source,
		ImportedAt: d.ImportedAt,
		Columns:    d.Columns,
		RowCount:   len(d.Rows),
	}
}

// ErrUploadNotFound is returned when a dataset has no archived source file.
var ErrUploadNotFound = errors.New("upload not found")

// Upload is the original file a dataset was imported from.
type Upload struct {
	DatasetID string    `json:"dataset_id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	StoredAt  time.Time `json:"stored_at"`
	Data      []byte    `json:"-"`
}
