package analysis

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
)

// Service implements AnalysisService
type Service struct {
	storage interfaces.StorageManager
	summary interfaces.SummaryService
	config  models.AnalysisConfig
	logger  *common.Logger
}

// NewService creates a new analysis service. summary may be nil, in which
// case summary requests are ignored.
func NewService(
	storage interfaces.StorageManager,
	summary interfaces.SummaryService,
	config models.AnalysisConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		storage: storage,
		summary: summary,
		config:  config,
		logger:  logger,
	}
}

// Config returns the thresholds used when no per-run override is given
func (s *Service) Config() models.AnalysisConfig {
	return s.config
}

// Analyze runs the pipeline with one span per stage
func (s *Service) Analyze(ctx context.Context, rows []models.RawRow, options interfaces.AnalyzeOptions) (*models.Report, error) {
	cfg := s.config
	if options.TopN > 0 {
		cfg.TopN = options.TopN
	}

	ctx, span := common.StartSpan(ctx, "analysis.run", attribute.Int("rows", len(rows)))
	defer span.End()

	_, vspan := common.StartSpan(ctx, "analysis.validate")
	validation := ValidateRows(rows)
	vspan.SetAttributes(
		attribute.Int("records", len(validation.Records)),
		attribute.Int("skipped", len(validation.Skipped)),
	)
	vspan.End()

	_, mspan := common.StartSpan(ctx, "analysis.metrics")
	metrics := ComputeMetrics(validation.Records)
	mspan.End()

	_, aspan := common.StartSpan(ctx, "analysis.aggregate")
	agg := Aggregate(metrics, cfg)
	aspan.SetAttributes(attribute.Int("sectors", len(agg.Sectors)))
	aspan.End()

	_, rspan := common.StartSpan(ctx, "analysis.risk")
	risk := ClassifyRisk(metrics, agg.AverageProfitMargin, cfg)
	rspan.SetAttributes(attribute.Int("at_risk", len(risk.Summary.CompaniesAtRisk)))
	rspan.End()

	report, err := Assemble(validation, metrics, agg, risk)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error().Err(err).Int("rows", len(rows)).Msg("Report assembly failed")
		return nil, fmt.Errorf("assemble report: %w", err)
	}

	s.logger.Info().
		Int("rows", len(rows)).
		Int("companies", report.TotalCompanies).
		Int("skipped", report.SkippedCount).
		Int("at_risk", len(report.Risk.CompaniesAtRisk)).
		Str("trace_id", common.TraceID(ctx)).
		Msg("Analysis complete")

	for _, sk := range report.SkippedRows {
		for _, e := range sk.Errors {
			s.logger.Debug().Int("row", sk.Row).Str("column", e.Column).Str("kind", string(e.Kind)).Msg("Row skipped")
		}
	}

	if options.Summary && s.summary != nil {
		text, err := s.summary.Generate(ctx, report)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Summary generation failed (continuing without summary)")
		} else {
			report = report.WithSummary(text)
		}
	}

	return report, nil
}

// AnalyzeDataset analyses a stored dataset
func (s *Service) AnalyzeDataset(ctx context.Context, id string, options interfaces.AnalyzeOptions) (*models.Report, *models.Dataset, error) {
	dataset, err := s.storage.DatasetStorage().GetDataset(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrDatasetNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load dataset %s: %w", id, err)
	}

	report, err := s.Analyze(ctx, dataset.RawRows(), options)
	if err != nil {
		return nil, nil, err
	}
	return report, dataset, nil
}

// Ensure Service implements AnalysisService
var _ interfaces.AnalysisService = (*Service)(nil)
