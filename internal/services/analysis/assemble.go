package analysis

import "github.com/bobmcallan/tally/internal/models"

// Assemble composes stage outputs into a Report without recomputing any
// figure. Structurally inconsistent inputs yield *InternalConsistencyError.
func Assemble(validation ValidationResult, metrics []models.CompanyMetrics, agg Aggregates, risk RiskAssessment) (*models.Report, error) {
	if len(metrics) != len(validation.Records) {
		return nil, inconsistent("%d metrics for %d records", len(metrics), len(validation.Records))
	}
	if len(risk.Companies) != len(metrics) {
		return nil, inconsistent("%d risk outcomes for %d records", len(risk.Companies), len(metrics))
	}
	if agg.TotalCompanies != len(metrics) {
		return nil, inconsistent("aggregate counts %d companies, records hold %d", agg.TotalCompanies, len(metrics))
	}

	byRow := make(map[int]int, len(metrics))
	sectors := make(map[string]bool)
	for i, cm := range metrics {
		if cm.Record.Row != validation.Records[i].Row {
			return nil, inconsistent("metrics entry %d is for row %d, record is row %d", i, cm.Record.Row, validation.Records[i].Row)
		}
		byRow[cm.Record.Row] = i
		sectors[cm.Record.Sector] = true
	}

	sectorTotal := 0
	for _, s := range agg.Sectors {
		if !sectors[s.Sector] {
			return nil, inconsistent("sector summary %q names no record", s.Sector)
		}
		sectorTotal += s.CompanyCount
	}
	if sectorTotal != len(metrics) {
		return nil, inconsistent("sector counts sum to %d, records hold %d", sectorTotal, len(metrics))
	}

	companies := make([]models.CompanyAnalysis, len(metrics))
	for i, cm := range metrics {
		companies[i] = models.CompanyAnalysis{
			CompanyRecord:  cm.Record,
			DerivedMetrics: cm.Metrics,
			Deviation:      risk.Companies[i].Deviation,
			Flags:          risk.Companies[i].Flags,
		}
	}

	top := make([]models.CompanyAnalysis, 0, len(agg.TopPerformers))
	for _, tp := range agg.TopPerformers {
		i, ok := byRow[tp.Record.Row]
		if !ok || companies[i].Company != tp.Record.Company {
			return nil, inconsistent("top performer %q (row %d) is not among the records", tp.Record.Company, tp.Record.Row)
		}
		top = append(top, companies[i])
	}

	skipped := validation.Skipped
	if skipped == nil {
		skipped = []models.SkippedRow{}
	}
	sectorList := agg.Sectors
	if sectorList == nil {
		sectorList = []models.SectorSummary{}
	}

	return &models.Report{
		TotalCompanies:      agg.TotalCompanies,
		TotalRevenue:        agg.TotalRevenue,
		TotalExpenses:       agg.TotalExpenses,
		TotalNetIncome:      agg.TotalNetIncome,
		AverageProfitMargin: agg.AverageProfitMargin,
		ExpenseRatioAvg:     agg.ExpenseRatioAvg,
		AverageRevenue:      agg.AverageRevenue,
		AverageNetIncome:    agg.AverageNetIncome,
		RevenueStd:          agg.RevenueStd,
		TotalMarketCap:      agg.TotalMarketCap,
		AverageMarketCap:    agg.AverageMarketCap,
		MarketCapStd:        agg.MarketCapStd,
		MarketCapCount:      agg.MarketCapCount,
		Sectors:             sectorList,
		TopPerformers:       top,
		Companies:           companies,
		Risk:                risk.Summary,
		SkippedRows:         skipped,
		SkippedCount:        len(skipped),
	}, nil
}
