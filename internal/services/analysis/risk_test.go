package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/models"
)

func classify(t *testing.T, cfg models.AnalysisConfig, rows ...models.RawRow) RiskAssessment {
	t.Helper()
	m := metricsFor(t, rows...)
	agg := Aggregate(m, cfg)
	return ClassifyRisk(m, agg.AverageProfitMargin, cfg)
}

func flagKinds(flags []models.RiskFlag) []models.RiskKind {
	kinds := make([]models.RiskKind, 0, len(flags))
	for _, f := range flags {
		kinds = append(kinds, f.Kind)
	}
	return kinds
}

func TestClassifyRisk_HighExpenseRatio(t *testing.T) {
	m := metricsFor(t, row("Spender", 100, 90, 10))

	ra := ClassifyRisk(m, models.Defined(0.10), models.DefaultAnalysisConfig())

	require.Len(t, ra.Companies, 1)
	assert.Contains(t, flagKinds(ra.Companies[0].Flags), models.RiskHighExpenseRatio)
	assert.Equal(t, 1, ra.Summary.HighDebtCompanies)

	f := ra.Companies[0].Flags[0]
	assert.Equal(t, 0.9, f.Value)
	assert.Equal(t, 0.8, f.Threshold)
	assert.InDelta(t, 0.125, f.Score, 1e-12)
	assert.Equal(t, models.SeverityLow, f.Severity)
}

func TestClassifyRisk_LowProfitMargin(t *testing.T) {
	m := metricsFor(t, row("Thin", 100, 20, 2))

	ra := ClassifyRisk(m, models.Defined(0.02), models.DefaultAnalysisConfig())

	require.Equal(t, []models.RiskKind{models.RiskLowProfitMargin}, flagKinds(ra.Companies[0].Flags))
	f := ra.Companies[0].Flags[0]
	assert.InDelta(t, 0.6, f.Score, 1e-12)
	assert.Equal(t, models.SeverityMedium, f.Severity)
	assert.Equal(t, 1, ra.Summary.LowProfitMarginCompanies)
	assert.Equal(t, []string{"Thin"}, ra.Summary.CompaniesAtRisk)
}

func TestClassifyRisk_BoundaryValues(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()

	// expense ratio exactly at the threshold is not flagged
	m := metricsFor(t, row("Edge", 100, 80, 20))
	ra := ClassifyRisk(m, models.Defined(0.2), cfg)
	assert.Empty(t, ra.Companies[0].Flags)

	// margin exactly at the threshold is flagged with a zero score
	m = metricsFor(t, row("Edge", 100, 50, 5))
	ra = ClassifyRisk(m, models.Defined(0.05), cfg)
	require.Len(t, ra.Companies[0].Flags, 1)
	assert.Equal(t, models.RiskLowProfitMargin, ra.Companies[0].Flags[0].Kind)
	assert.Equal(t, 0.0, ra.Companies[0].Flags[0].Score)
	assert.Equal(t, models.SeverityLow, ra.Companies[0].Flags[0].Severity)
}

func TestClassifyRisk_ZeroRevenueNeverFlaggedOnRatios(t *testing.T) {
	m := metricsFor(t, row("Dormant", 0, 50, -50))

	ra := ClassifyRisk(m, models.Defined(0.3), models.DefaultAnalysisConfig())

	assert.Empty(t, ra.Companies[0].Flags)
	assert.False(t, ra.Companies[0].Deviation.IsDefined())
	assert.False(t, ra.Summary.AverageVolatility.IsDefined())
	assert.Empty(t, ra.Summary.CompaniesAtRisk)
}

func TestClassifyRisk_Volatility(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	m := metricsFor(t,
		row("Steady", 100, 70, 30), // 0.30
		row("Wild", 100, 5, 95),    // 0.95
	)

	ra := ClassifyRisk(m, models.Defined(0.30), cfg)

	assert.InDelta(t, 0.0, ra.Companies[0].Deviation.OrZero(), 1e-12)
	dev, ok := ra.Companies[1].Deviation.Value()
	require.True(t, ok)
	assert.InDelta(t, 0.65/0.30, dev, 1e-12)

	require.Equal(t, []models.RiskKind{models.RiskHighVolatility}, flagKinds(ra.Companies[1].Flags))
	f := ra.Companies[1].Flags[0]
	assert.InDelta(t, 0.65/0.30-1, f.Score, 1e-12)
	assert.Equal(t, models.SeverityHigh, f.Severity)

	assert.Equal(t, 1, ra.Summary.HighVolatilityCompanies)
	avg, _ := ra.Summary.AverageVolatility.Value()
	assert.InDelta(t, 0.65/0.30/2, avg, 1e-12)
	assert.Equal(t, []string{"Wild"}, ra.Summary.CompaniesAtRisk)
}

func TestClassifyRisk_VolatilityFloorForNearZeroBaseline(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	m := metricsFor(t, row("A", 100, 80, 20)) // 0.20

	ra := ClassifyRisk(m, models.Defined(0.0), cfg)

	dev, ok := ra.Companies[0].Deviation.Value()
	require.True(t, ok)
	assert.InDelta(t, 20.0, dev, 1e-9, "divides by the floor, not by zero")
}

func TestClassifyRisk_UndefinedBaselineSkipsVolatility(t *testing.T) {
	m := metricsFor(t, row("A", 100, 10, 90))

	ra := ClassifyRisk(m, models.Undefined(), models.DefaultAnalysisConfig())

	assert.False(t, ra.Companies[0].Deviation.IsDefined())
	assert.False(t, ra.Summary.AverageVolatility.IsDefined())
	assert.Empty(t, ra.Companies[0].Flags)
}

func TestClassifyRisk_ThresholdsFromConfig(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	cfg.HighExpenseRatio = 0.5
	cfg.LowProfitMargin = 0.4

	ra := classify(t, cfg, row("A", 100, 60, 40))

	assert.ElementsMatch(t,
		[]models.RiskKind{models.RiskHighExpenseRatio, models.RiskLowProfitMargin},
		flagKinds(ra.Companies[0].Flags))
}

func TestClassifyRisk_FlaggedDetailInInputOrder(t *testing.T) {
	cfg := models.DefaultAnalysisConfig()
	cfg.VolatilityThreshold = 100
	ra := classify(t, cfg,
		withSector(row("Zed", 100, 95, 1), "Retail"),
		row("Fine", 100, 50, 50),
		withSector(row("Abe", 100, 99, 1), "Energy"),
	)

	assert.Equal(t, []string{"Zed", "Abe"}, ra.Summary.CompaniesAtRisk)
	require.Len(t, ra.Summary.Flagged, 2)
	assert.Equal(t, 1, ra.Summary.Flagged[0].Row)
	assert.Equal(t, "Retail", ra.Summary.Flagged[0].Sector)
	assert.Equal(t, 3, ra.Summary.Flagged[1].Row)
	assert.Equal(t, 2, ra.Summary.HighDebtCompanies)
	assert.Equal(t, 2, ra.Summary.LowProfitMarginCompanies)
}

func TestSeverityBand(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{0, models.SeverityLow},
		{0.2499, models.SeverityLow},
		{0.25, models.SeverityMedium},
		{0.99, models.SeverityMedium},
		{1, models.SeverityHigh},
		{7.5, models.SeverityHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, severityBand(tt.score), "score %v", tt.score)
	}
}
