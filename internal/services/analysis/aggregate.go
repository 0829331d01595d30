package analysis

import (
	"math"
	"sort"

	"github.com/bobmcallan/tally/internal/models"
)

// Aggregates are the batch-level figures computed across all records.
type Aggregates struct {
	TotalCompanies      int
	TotalRevenue        float64
	TotalExpenses       float64
	TotalNetIncome      float64
	AverageProfitMargin models.Ratio
	ExpenseRatioAvg     models.Ratio
	AverageRevenue      models.Ratio
	AverageNetIncome    models.Ratio
	RevenueStd          models.Ratio

	TotalMarketCap   float64
	AverageMarketCap models.Ratio
	MarketCapStd     models.Ratio
	MarketCapCount   int

	Sectors       []models.SectorSummary
	TopPerformers []models.CompanyMetrics
}

// Aggregate computes totals, means, sector summaries and top performers.
// An empty input yields zero sums, empty lists and undefined means.
func Aggregate(metrics []models.CompanyMetrics, cfg models.AnalysisConfig) Aggregates {
	agg := Aggregates{
		TotalCompanies: len(metrics),
		Sectors:        []models.SectorSummary{},
		TopPerformers:  []models.CompanyMetrics{},
	}

	margins := make([]models.Ratio, 0, len(metrics))
	expenseRatios := make([]models.Ratio, 0, len(metrics))
	revenues := make([]float64, 0, len(metrics))
	netIncomes := make([]float64, 0, len(metrics))
	marketCaps := make([]float64, 0, len(metrics))

	for _, cm := range metrics {
		r := cm.Record
		agg.TotalRevenue += r.Revenue
		agg.TotalExpenses += r.Expenses
		agg.TotalNetIncome += r.NetIncome
		revenues = append(revenues, r.Revenue)
		netIncomes = append(netIncomes, r.NetIncome)
		margins = append(margins, cm.Metrics.ProfitMargin)
		expenseRatios = append(expenseRatios, cm.Metrics.ExpenseRatio)
		if r.MarketCap != nil {
			agg.TotalMarketCap += *r.MarketCap
			marketCaps = append(marketCaps, *r.MarketCap)
		}
	}

	agg.AverageProfitMargin = models.MeanOf(margins)
	agg.ExpenseRatioAvg = models.MeanOf(expenseRatios)
	agg.AverageRevenue = mean(revenues)
	agg.AverageNetIncome = mean(netIncomes)
	agg.RevenueStd = sampleStd(revenues)
	agg.MarketCapCount = len(marketCaps)
	agg.AverageMarketCap = mean(marketCaps)
	agg.MarketCapStd = sampleStd(marketCaps)

	agg.Sectors = summariseSectors(metrics)
	agg.TopPerformers = topPerformers(metrics, cfg.TopN)

	return agg
}

func summariseSectors(metrics []models.CompanyMetrics) []models.SectorSummary {
	type acc struct {
		summary       models.SectorSummary
		margins       []models.Ratio
		expenseRatios []models.Ratio
	}
	bySector := make(map[string]*acc)

	for _, cm := range metrics {
		r := cm.Record
		a, ok := bySector[r.Sector]
		if !ok {
			a = &acc{summary: models.SectorSummary{Sector: r.Sector}}
			bySector[r.Sector] = a
		}
		a.summary.CompanyCount++
		a.summary.TotalRevenue += r.Revenue
		a.summary.TotalExpenses += r.Expenses
		a.summary.TotalNetIncome += r.NetIncome
		if r.MarketCap != nil {
			a.summary.TotalMarketCap += *r.MarketCap
		}
		a.margins = append(a.margins, cm.Metrics.ProfitMargin)
		a.expenseRatios = append(a.expenseRatios, cm.Metrics.ExpenseRatio)
	}

	names := make([]string, 0, len(bySector))
	for name := range bySector {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.SectorSummary, 0, len(names))
	for _, name := range names {
		a := bySector[name]
		a.summary.AverageProfitMargin = models.MeanOf(a.margins)
		a.summary.ExpenseRatioAvg = models.MeanOf(a.expenseRatios)
		out = append(out, a.summary)
	}
	return out
}

// topPerformers ranks records with a defined margin by margin desc, then
// revenue desc, company name asc and source row asc.
func topPerformers(metrics []models.CompanyMetrics, n int) []models.CompanyMetrics {
	if n <= 0 {
		n = models.DefaultAnalysisConfig().TopN
	}

	ranked := make([]models.CompanyMetrics, 0, len(metrics))
	for _, cm := range metrics {
		if cm.Metrics.ProfitMargin.IsDefined() {
			ranked = append(ranked, cm)
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		am, _ := a.Metrics.ProfitMargin.Value()
		bm, _ := b.Metrics.ProfitMargin.Value()
		if am != bm {
			return am > bm
		}
		if a.Record.Revenue != b.Record.Revenue {
			return a.Record.Revenue > b.Record.Revenue
		}
		if a.Record.Company != b.Record.Company {
			return a.Record.Company < b.Record.Company
		}
		return a.Record.Row < b.Record.Row
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

func mean(values []float64) models.Ratio {
	if len(values) == 0 {
		return models.Undefined()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return models.Defined(sum / float64(len(values)))
}

// sampleStd is the n-1 standard deviation, undefined below two values.
func sampleStd(values []float64) models.Ratio {
	if len(values) < 2 {
		return models.Undefined()
	}
	m, _ := mean(values).Value()
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return models.Defined(math.Sqrt(ss / float64(len(values)-1)))
}
