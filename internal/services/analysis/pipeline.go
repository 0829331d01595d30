// Package analysis turns raw company-financial rows into a validated,
// aggregated and risk-classified Report.
package analysis

import "github.com/bobmcallan/tally/internal/models"

// Run executes the pipeline stages in order. It holds no state, so
// concurrent runs over independent batches are safe.
func Run(rows []models.RawRow, cfg models.AnalysisConfig) (*models.Report, error) {
	validation := ValidateRows(rows)
	metrics := ComputeMetrics(validation.Records)
	agg := Aggregate(metrics, cfg)
	risk := ClassifyRisk(metrics, agg.AverageProfitMargin, cfg)
	return Assemble(validation, metrics, agg, risk)
}
