// Package interfaces defines service contracts for Tally
package interfaces

import (
	"context"
	"io"

	"github.com/bobmcallan/tally/internal/models"
)

// AnalysisService runs the analysis pipeline over a batch of rows
type AnalysisService interface {
	// Analyze validates, aggregates and risk-scores the rows
	Analyze(ctx context.Context, rows []models.RawRow, options AnalyzeOptions) (*models.Report, error)

	// AnalyzeDataset analyses a stored dataset
	AnalyzeDataset(ctx context.Context, id string, options AnalyzeOptions) (*models.Report, *models.Dataset, error)
}

// AnalyzeOptions adjusts a single analysis run
type AnalyzeOptions struct {
	TopN    int  // Overrides the configured top performer count when > 0
	Summary bool // Attach a natural-language summary
}

// DatasetService manages imported input datasets
type DatasetService interface {
	// Import parses delimited text (or JSON rows when source ends in .json)
	// and stores it as a new dataset
	Import(ctx context.Context, name, source string, r io.Reader) (*models.Dataset, error)

	// ImportSample stores one of the embedded sample datasets
	ImportSample(ctx context.Context, sample string) (*models.Dataset, error)

	// Get returns a dataset by ID
	Get(ctx context.Context, id string) (*models.Dataset, error)

	// List returns metadata for all datasets, newest first
	List(ctx context.Context) ([]models.DatasetInfo, error)

	// Source returns the archived file a dataset was imported from
	Source(ctx context.Context, id string) (*models.Upload, error)

	// Delete removes a dataset and its archived source
	Delete(ctx context.Context, id string) error
}

// SummaryService produces natural-language commentary on a report
type SummaryService interface {
	// Generate returns markdown commentary built only from the report
	Generate(ctx context.Context, report *models.Report) (string, error)
}
