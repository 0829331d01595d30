package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/models"
	"github.com/bobmcallan/tally/internal/services/analysis"
)

type mockLLM struct {
	mu      sync.Mutex
	prompts []string
	systems []string
	fail    func(prompt string) error
}

func (m *mockLLM) Provider() string { return "mock" }

func (m *mockLLM) GenerateContent(_ context.Context, system, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	m.systems = append(m.systems, system)
	if m.fail != nil {
		if err := m.fail(prompt); err != nil {
			return "", err
		}
	}
	return "  Generated commentary.  ", nil
}

func testReport(t *testing.T) *models.Report {
	t.Helper()
	rows := []models.RawRow{
		{"Company": "Acme", "Revenue": 100, "Expenses": 60, "Net_Income": 40, "Sector": "Retail"},
		{"Company": "Globex", "Revenue": 300, "Expenses": 295, "Net_Income": 5, "Sector": "Energy"},
	}
	r, err := analysis.Run(rows, models.DefaultAnalysisConfig())
	require.NoError(t, err)
	return r
}

func TestGenerate_AllSections(t *testing.T) {
	llm := &mockLLM{}
	svc := NewService(llm, common.NewSilentLogger())

	text, err := svc.Generate(context.Background(), testReport(t))
	require.NoError(t, err)

	for _, title := range []string{"Executive Summary", "Company Analysis", "Sector Insights", "Risk Analysis", "Investment Recommendations"} {
		assert.Contains(t, text, "## "+title)
	}
	assert.Equal(t, 5, strings.Count(text, "Generated commentary."))
	assert.NotContains(t, text, "  Generated", "section text is trimmed")
	require.Len(t, llm.prompts, 5)
	assert.Equal(t, systemPrompt, llm.systems[0])
	assert.Equal(t, "mock", svc.Provider())
}

func TestGenerate_PromptsUseReportFigures(t *testing.T) {
	llm := &mockLLM{}
	svc := NewService(llm, common.NewSilentLogger())

	_, err := svc.Generate(context.Background(), testReport(t))
	require.NoError(t, err)

	exec := llm.prompts[0]
	assert.Contains(t, exec, "Total Companies Analyzed: 2")
	assert.Contains(t, exec, "$400.00")
	assert.Contains(t, exec, "Profitable Companies: 2 of 2")

	companies := llm.prompts[1]
	assert.Less(t, strings.Index(companies, "Globex"), strings.Index(companies, "Acme"), "largest revenue first")

	risk := llm.prompts[3]
	assert.Contains(t, risk, "Companies at Risk: Globex")
}

func TestGenerate_SectionFailureIsNoted(t *testing.T) {
	llm := &mockLLM{fail: func(p string) error {
		if strings.Contains(p, "sector performance") {
			return errors.New("quota exceeded")
		}
		return nil
	}}
	svc := NewService(llm, common.NewSilentLogger())

	text, err := svc.Generate(context.Background(), testReport(t))
	require.NoError(t, err)
	assert.Contains(t, text, "_Sector Insights unavailable._")
	assert.Equal(t, 4, strings.Count(text, "Generated commentary."))
}

func TestGenerate_AllSectionsFail(t *testing.T) {
	llm := &mockLLM{fail: func(string) error { return errors.New("provider down") }}
	svc := NewService(llm, common.NewSilentLogger())

	_, err := svc.Generate(context.Background(), testReport(t))
	assert.ErrorContains(t, err, "provider down")
}

func TestGenerate_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	llm := &mockLLM{fail: func(string) error {
		cancel()
		return context.Canceled
	}}
	svc := NewService(llm, common.NewSilentLogger())

	_, err := svc.Generate(ctx, testReport(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, llm.prompts, 1, "stops after cancellation")
}

func TestGenerate_EmptyReportSkipsDataSections(t *testing.T) {
	llm := &mockLLM{}
	svc := NewService(llm, common.NewSilentLogger())

	empty, err := analysis.Run(nil, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	text, err := svc.Generate(context.Background(), empty)
	require.NoError(t, err)
	assert.Contains(t, text, "Sector analysis not available")
	assert.Contains(t, text, "Investment recommendations not available")
	assert.Len(t, llm.prompts, 2, "only executive and risk sections are prompted")
}

func TestGenerate_NoClientFallsBack(t *testing.T) {
	svc := NewService(nil, common.NewSilentLogger())
	r := testReport(t)

	text, err := svc.Generate(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, BasicSummary(r), text)
	assert.Equal(t, "none", svc.Provider())
}

func TestBasicSummary(t *testing.T) {
	text := BasicSummary(testReport(t))

	assert.Contains(t, text, "Total Companies: 2")
	assert.Contains(t, text, "Combined Revenue: $400.00")
	assert.Contains(t, text, "Revenue per company: $200.00")
	assert.Contains(t, text, "Strong profitability across portfolio")
	assert.Contains(t, text, "Growing revenue base")
	assert.Contains(t, text, "1 of 2 companies flagged at risk: Globex")
}

func TestBasicSummary_EmptyReport(t *testing.T) {
	empty, err := analysis.Run(nil, models.DefaultAnalysisConfig())
	require.NoError(t, err)

	text := BasicSummary(empty)
	assert.Contains(t, text, "Average Profit Margin: N/A")
	assert.Contains(t, text, "Moderate profitability levels")
	assert.Contains(t, text, "Room for cost optimization")
}
