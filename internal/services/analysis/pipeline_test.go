package analysis

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/models"
)

func mixedBatch() []models.RawRow {
	return []models.RawRow{
		withMarketCap(withSector(row("Northwind", 1200, 900, 300), "Retail"), 5000),
		withSector(row("Contoso", 800, 780, 20), "Technology"),
		withSector(row("Fabrikam", 0, 40, -40), "Technology"),
		withMarketCap(withSector(row("Initech", 500, 300, 200), "Finance"), 2500),
		withSector(row("Globex", 800, 700, 100), "Technology"),
		{models.ColCompany: "Broken", models.ColExpenses: 1, models.ColNetIncome: 1},
	}
}

func TestRun_EndToEndTwoCompanies(t *testing.T) {
	rows := []models.RawRow{
		{"Company": "A", "Revenue": 100, "Expenses": 50, "Net_Income": 50},
		{"Company": "B", "Revenue": 100, "Expenses": 95, "Net_Income": 5},
	}

	report, err := Run(rows, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalCompanies)
	assert.Equal(t, 200.0, report.TotalRevenue)
	assert.Equal(t, 55.0, report.TotalNetIncome)
	avg, ok := report.AverageProfitMargin.Value()
	require.True(t, ok)
	assert.InDelta(t, 0.275, avg, 1e-12)

	b := report.Companies[1]
	assert.Equal(t, "B", b.Company)
	assert.True(t, b.HasFlag(models.RiskLowProfitMargin))
	assert.True(t, b.HasFlag(models.RiskHighExpenseRatio))
	assert.False(t, report.Companies[0].AtRisk())

	assert.Equal(t, 1, report.Risk.HighDebtCompanies)
	assert.Equal(t, 1, report.Risk.LowProfitMarginCompanies)
	assert.Equal(t, []string{"B"}, report.Risk.CompaniesAtRisk)
	assert.Equal(t, 0, report.SkippedCount)
}

func TestRun_EmptyBatch(t *testing.T) {
	report, err := Run([]models.RawRow{}, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, report.TotalCompanies)
	assert.Equal(t, 0.0, report.TotalRevenue)
	assert.Equal(t, 0.0, report.TotalExpenses)
	assert.Equal(t, 0.0, report.TotalNetIncome)
	assert.False(t, report.AverageProfitMargin.IsDefined())
	assert.Empty(t, report.Sectors)
	assert.Empty(t, report.TopPerformers)
	assert.Empty(t, report.Companies)
	assert.Empty(t, report.Risk.CompaniesAtRisk)
	assert.Equal(t, 0, report.SkippedCount)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Nil(t, decoded["average_profit_margin"], "undefined mean serialises as null")
	assert.Equal(t, []any{}, decoded["sectors"])
	assert.Equal(t, []any{}, decoded["skipped_rows"])
	risk := decoded["risk"].(map[string]any)
	assert.Equal(t, []any{}, risk["companies_at_risk"])
	assert.Nil(t, risk["average_volatility"])
}

func TestRun_MalformedRowSkipped(t *testing.T) {
	report, err := Run(mixedBatch(), models.DefaultAnalysisConfig())
	require.NoError(t, err)

	assert.Equal(t, 5, report.TotalCompanies)
	require.Equal(t, 1, report.SkippedCount)
	require.Len(t, report.SkippedRows, 1)
	sk := report.SkippedRows[0]
	assert.Equal(t, 6, sk.Row)
	assert.Equal(t, "Broken", sk.Company)
	require.Len(t, sk.Errors, 1)
	assert.Equal(t, models.MissingColumn, sk.Errors[0].Kind)
	assert.Equal(t, models.ColRevenue, sk.Errors[0].Column)

	for _, c := range report.Companies {
		assert.NotEqual(t, "Broken", c.Company)
	}
}

func TestRun_SumsExact(t *testing.T) {
	rows := mixedBatch()
	report, err := Run(rows, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	var revenue, netIncome float64
	for _, c := range report.Companies {
		revenue += c.Revenue
		netIncome += c.NetIncome
	}
	assert.Equal(t, 1200.0+800+0+500+800, report.TotalRevenue)
	assert.Equal(t, revenue, report.TotalRevenue)
	assert.Equal(t, 300.0+20-40+200+100, report.TotalNetIncome)
	assert.Equal(t, netIncome, report.TotalNetIncome)
}

func TestRun_MarginMeanExcludesZeroRevenue(t *testing.T) {
	rows := []models.RawRow{
		row("A", 100, 60, 40),  // 0.4
		row("B", 0, 10, -10),   // undefined
		row("C", 200, 160, 40), // 0.2
	}

	report, err := Run(rows, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	avg, ok := report.AverageProfitMargin.Value()
	require.True(t, ok)
	assert.InDelta(t, 0.3, avg, 1e-12)
	assert.Equal(t, 3, report.TotalCompanies)
	assert.False(t, report.Companies[1].ProfitMargin.IsDefined())
}

func TestRun_Idempotent(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()

	first, err := Run(mixedBatch(), cfg)
	require.NoError(t, err)
	second, err := Run(mixedBatch(), cfg)
	require.NoError(t, err)

	assert.True(t, reflect.DeepEqual(first, second), "two runs over the same batch must be identical")

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	rows := mixedBatch()
	before, err := json.Marshal(rows)
	require.NoError(t, err)

	_, err = Run(rows, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	after, err := json.Marshal(rows)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestRun_RankingDeterministicWithTies(t *testing.T) {
	rows := []models.RawRow{
		row("Charlie", 100, 80, 20),
		row("Bravo", 200, 160, 40),
		row("Alpha", 100, 80, 20),
		row("Delta", 200, 160, 40),
	}

	for i := 0; i < 5; i++ {
		report, err := Run(rows, models.DefaultAnalysisConfig())
		require.NoError(t, err)

		var names []string
		for _, tp := range report.TopPerformers {
			names = append(names, tp.Company)
		}
		assert.Equal(t, []string{"Bravo", "Delta", "Alpha", "Charlie"}, names)
	}
}

func TestRun_TopPerformersCarryFlags(t *testing.T) {
	report, err := Run(mixedBatch(), models.DefaultAnalysisConfig())
	require.NoError(t, err)

	for _, tp := range report.TopPerformers {
		c, ok := report.Company(tp.Row)
		require.True(t, ok)
		assert.Equal(t, c.Flags, tp.Flags)
		assert.Equal(t, c.Deviation, tp.Deviation)
	}
}

func TestRun_JSONFieldNames(t *testing.T) {
	report, err := Run(mixedBatch(), models.DefaultAnalysisConfig())
	require.NoError(t, err)

	data, err := json.Marshal(report)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{
		"total_companies", "total_revenue", "total_net_income", "average_profit_margin",
		"expense_ratio_avg", "sectors", "top_performers", "risk", "skipped_rows", "skipped_count",
	} {
		assert.Contains(t, decoded, key)
	}
	assert.NotContains(t, decoded, "summary", "summary is omitted until attached")

	risk := decoded["risk"].(map[string]any)
	for _, key := range []string{"high_debt_companies", "low_profit_margin_companies", "average_volatility", "companies_at_risk"} {
		assert.Contains(t, risk, key)
	}
}

func TestReport_WithSummaryCopies(t *testing.T) {
	report, err := Run(mixedBatch(), models.DefaultAnalysisConfig())
	require.NoError(t, err)

	withSummary := report.WithSummary("Revenue is concentrated in Retail.")

	assert.Empty(t, report.Summary)
	assert.Equal(t, "Revenue is concentrated in Retail.", withSummary.Summary)
	assert.Equal(t, report.TotalRevenue, withSummary.TotalRevenue)
}

func TestAssemble_InconsistentInputs(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	validation := ValidateRows([]models.RawRow{
		withSector(row("A", 100, 50, 50), "Retail"),
		withSector(row("B", 100, 90, 10), "Energy"),
	})
	metrics := ComputeMetrics(validation.Records)
	agg := Aggregate(metrics, cfg)
	risk := ClassifyRisk(metrics, agg.AverageProfitMargin, cfg)

	_, err := Assemble(validation, metrics, agg, risk)
	require.NoError(t, err, "consistent stages assemble")

	tests := []struct {
		name   string
		mutate func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment)
	}{
		{"metrics_count", func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment) {
			*m = (*m)[:1]
		}},
		{"risk_count", func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment) {
			r.Companies = r.Companies[:1]
		}},
		{"total_companies", func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment) {
			a.TotalCompanies = 3
		}},
		{"unknown_sector", func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment) {
			a.Sectors = append([]models.SectorSummary{}, a.Sectors...)
			a.Sectors[0].Sector = "Mining"
		}},
		{"sector_counts", func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment) {
			a.Sectors = a.Sectors[:1]
		}},
		{"foreign_top_performer", func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment) {
			a.TopPerformers = []models.CompanyMetrics{{Record: models.CompanyRecord{Row: 99, Company: "Ghost"}}}
		}},
		{"misaligned_rows", func(v *ValidationResult, m *[]models.CompanyMetrics, a *Aggregates, r *RiskAssessment) {
			swapped := []models.CompanyMetrics{(*m)[1], (*m)[0]}
			*m = swapped
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := validation
			m := append([]models.CompanyMetrics{}, metrics...)
			a := agg
			r := risk
			tt.mutate(&v, &m, &a, &r)

			report, err := Assemble(v, m, a, r)

			assert.Nil(t, report)
			var ice *InternalConsistencyError
			require.True(t, errors.As(err, &ice), "expected InternalConsistencyError, got %v", err)
			assert.NotEmpty(t, ice.Reason)
		})
	}
}
