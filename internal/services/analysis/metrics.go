package analysis

import "github.com/bobmcallan/tally/internal/models"

// ComputeMetrics derives per-company ratios, one entry per record in order.
func ComputeMetrics(records []models.CompanyRecord) []models.CompanyMetrics {
	out := make([]models.CompanyMetrics, len(records))
	for i, rec := range records {
		out[i] = models.CompanyMetrics{
			Record:  rec,
			Metrics: deriveMetrics(rec),
		}
	}
	return out
}

func deriveMetrics(rec models.CompanyRecord) models.DerivedMetrics {
	m := models.DerivedMetrics{IsProfitable: rec.NetIncome > 0}
	if rec.Revenue != 0 {
		m.ProfitMargin = models.Defined(rec.NetIncome / rec.Revenue)
		m.ExpenseRatio = models.Defined(rec.Expenses / rec.Revenue)
	}
	return m
}
