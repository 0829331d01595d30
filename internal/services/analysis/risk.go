package analysis

import (
	"math"

	"github.com/bobmcallan/tally/internal/models"
)

// CompanyRisk is the risk outcome for one record.
type CompanyRisk struct {
	Deviation models.Ratio
	Flags     []models.RiskFlag
}

// RiskAssessment holds per-record outcomes (aligned with the classified
// metrics) and the batch-level risk block.
type RiskAssessment struct {
	Companies []CompanyRisk
	Summary   models.RiskAssessment
}

// ClassifyRisk flags each record against the configured thresholds. The
// low-margin bound is inclusive: a margin equal to the threshold is flagged.
// baseline is the batch average profit margin; when it is undefined no
// deviation is computed and nothing is flagged for volatility.
func ClassifyRisk(metrics []models.CompanyMetrics, baseline models.Ratio, cfg models.AnalysisConfig) RiskAssessment {
	ra := RiskAssessment{
		Companies: make([]CompanyRisk, len(metrics)),
		Summary: models.RiskAssessment{
			CompaniesAtRisk: []string{},
			Flagged:         []models.FlaggedCompany{},
		},
	}

	avg, hasBaseline := baseline.Value()
	deviations := make([]models.Ratio, 0, len(metrics))

	for i, cm := range metrics {
		cr := CompanyRisk{Flags: []models.RiskFlag{}}

		if ratio, ok := cm.Metrics.ExpenseRatio.Value(); ok && ratio > cfg.HighExpenseRatio {
			cr.Flags = append(cr.Flags, newFlag(models.RiskHighExpenseRatio, ratio, cfg.HighExpenseRatio,
				(ratio-cfg.HighExpenseRatio)/cfg.HighExpenseRatio))
			ra.Summary.HighDebtCompanies++
		}

		margin, hasMargin := cm.Metrics.ProfitMargin.Value()
		if hasMargin && margin <= cfg.LowProfitMargin {
			cr.Flags = append(cr.Flags, newFlag(models.RiskLowProfitMargin, margin, cfg.LowProfitMargin,
				(cfg.LowProfitMargin-margin)/math.Abs(cfg.LowProfitMargin)))
			ra.Summary.LowProfitMarginCompanies++
		}

		if hasMargin && hasBaseline {
			dev := math.Abs(margin-avg) / math.Max(math.Abs(avg), cfg.VolatilityFloor)
			cr.Deviation = models.Defined(dev)
			deviations = append(deviations, cr.Deviation)
			if dev > cfg.VolatilityThreshold {
				cr.Flags = append(cr.Flags, newFlag(models.RiskHighVolatility, dev, cfg.VolatilityThreshold,
					(dev-cfg.VolatilityThreshold)/cfg.VolatilityThreshold))
				ra.Summary.HighVolatilityCompanies++
			}
		}

		if len(cr.Flags) > 0 {
			ra.Summary.CompaniesAtRisk = append(ra.Summary.CompaniesAtRisk, cm.Record.Company)
			ra.Summary.Flagged = append(ra.Summary.Flagged, models.FlaggedCompany{
				Row:     cm.Record.Row,
				Company: cm.Record.Company,
				Sector:  cm.Record.Sector,
				Flags:   cr.Flags,
			})
		}
		ra.Companies[i] = cr
	}

	ra.Summary.AverageVolatility = models.MeanOf(deviations)
	return ra
}

func newFlag(kind models.RiskKind, value, threshold, score float64) models.RiskFlag {
	if score < 0 {
		score = 0
	}
	return models.RiskFlag{
		Kind:      kind,
		Score:     score,
		Severity:  severityBand(score),
		Value:     value,
		Threshold: threshold,
	}
}

// severityBand maps a flag score to a severity label.
func severityBand(score float64) string {
	switch {
	case score < 0.25:
		return models.SeverityLow
	case score < 1:
		return models.SeverityMedium
	default:
		return models.SeverityHigh
	}
}
