// Package summary writes natural-language commentary for an analysis report
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
)

// Compile-time interface check
var _ interfaces.SummaryService = (*Service)(nil)

// Service implements SummaryService. With no client it writes the
// rule-based summary.
type Service struct {
	client interfaces.LLMClient
	logger *common.Logger
}

// NewService creates a summary service. client may be nil.
func NewService(client interfaces.LLMClient, logger *common.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Provider names the backing LLM, or "none"
func (s *Service) Provider() string {
	if s.client == nil {
		return common.ProviderNone
	}
	return s.client.Provider()
}

// Generate returns markdown commentary built only from the report. A failed
// section is replaced by an "unavailable" note; an error is returned only
// when the context ends or every section fails.
func (s *Service) Generate(ctx context.Context, report *models.Report) (string, error) {
	if s.client == nil {
		return BasicSummary(report), nil
	}

	ctx, span := common.StartSpan(ctx, "summary.generate")
	defer span.End()

	var sb strings.Builder
	var firstErr error
	failed, attempted := 0, 0

	for _, sec := range sections {
		sb.WriteString("## " + sec.Title + "\n\n")

		prompt := sec.prompt(report)
		if prompt == "" {
			sb.WriteString("_" + sec.Unavailable + "_\n\n")
			continue
		}

		attempted++
		text, err := s.client.GenerateContent(ctx, systemPrompt, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			failed++
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Warn().Err(err).Str("section", sec.Key).Str("provider", s.client.Provider()).Msg("Summary section failed")
			sb.WriteString("_" + sec.Title + " unavailable._\n\n")
			continue
		}
		sb.WriteString(strings.TrimSpace(text) + "\n\n")
	}

	if attempted > 0 && failed == attempted {
		return "", fmt.Errorf("all summary sections failed: %w", firstErr)
	}

	s.logger.Debug().Int("sections", len(sections)).Int("failed", failed).Msg("Summary generated")
	return strings.TrimRight(sb.String(), "\n") + "\n", nil
}

// BasicSummary is the rule-based summary used when no LLM is configured
func BasicSummary(r *models.Report) string {
	var sb strings.Builder

	sb.WriteString("## Financial Performance Summary\n\n")
	sb.WriteString("**Portfolio Overview**\n\n")
	fmt.Fprintf(&sb, "- Total Companies: %d\n", r.TotalCompanies)
	fmt.Fprintf(&sb, "- Combined Revenue: %s\n", common.FormatMoney(r.TotalRevenue))
	fmt.Fprintf(&sb, "- Combined Net Income: %s\n", common.FormatMoney(r.TotalNetIncome))
	fmt.Fprintf(&sb, "- Average Profit Margin: %s\n\n", common.FormatRatioPct(r.AverageProfitMargin))

	sb.WriteString("**Key Metrics**\n\n")
	fmt.Fprintf(&sb, "- Revenue per company: %s\n", common.FormatRatioMoney(r.AverageRevenue))
	fmt.Fprintf(&sb, "- Net Income per company: %s\n", common.FormatRatioMoney(r.AverageNetIncome))
	fmt.Fprintf(&sb, "- Expense Ratio: %s\n\n", common.FormatRatioPct(r.ExpenseRatioAvg))

	sb.WriteString("**Performance Assessment**\n\n")
	if m, ok := r.AverageProfitMargin.Value(); ok && m > 0.15 {
		sb.WriteString("- Strong profitability across portfolio\n")
	} else {
		sb.WriteString("- Moderate profitability levels\n")
	}
	if e, ok := r.ExpenseRatioAvg.Value(); ok && e < 0.80 {
		sb.WriteString("- Efficient cost management\n")
	} else {
		sb.WriteString("- Room for cost optimization\n")
	}
	if r.TotalRevenue > 1e9 {
		sb.WriteString("- Healthy revenue generation\n")
	} else {
		sb.WriteString("- Growing revenue base\n")
	}

	if n := len(r.Risk.CompaniesAtRisk); n > 0 {
		fmt.Fprintf(&sb, "- %d of %d companies flagged at risk: %s\n",
			n, r.TotalCompanies, strings.Join(r.Risk.CompaniesAtRisk, ", "))
	}
	if r.SkippedCount > 0 {
		fmt.Fprintf(&sb, "- %d input rows skipped during validation\n", r.SkippedCount)
	}

	return sb.String()
}
