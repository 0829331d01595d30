package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/models"
)

const systemPrompt = `You are a senior financial analyst writing for investors and business leaders.
Use only the figures provided. Do not invent companies, figures or events.
Write plain markdown without headings. Be concise and specific.`

// section is one LLM-written part of the summary. prompt returns "" when the
// report has nothing for the section to say.
type section struct {
	Key         string
	Title       string
	Unavailable string
	prompt      func(r *models.Report) string
}

var sections = []section{
	{
		Key:   "executive_summary",
		Title: "Executive Summary",
		prompt: func(r *models.Report) string {
			return fmt.Sprintf(`Provide an executive summary of the following financial data.

Financial Metrics:
- Total Companies Analyzed: %d
- Total Revenue: %s
- Total Expenses: %s
- Total Net Income: %s
- Average Profit Margin: %s
- Average Expense Ratio: %s
- Profitable Companies: %d of %d

Cover key financial highlights, performance patterns, risk factors and strategic recommendations.
Maximum 300 words.`,
				r.TotalCompanies,
				common.FormatMoney(r.TotalRevenue),
				common.FormatMoney(r.TotalExpenses),
				common.FormatMoney(r.TotalNetIncome),
				common.FormatRatioPct(r.AverageProfitMargin),
				common.FormatRatioPct(r.ExpenseRatioAvg),
				r.ProfitableCount(), r.TotalCompanies,
			)
		},
	},
	{
		Key:         "company_analysis",
		Title:       "Company Analysis",
		Unavailable: "Company analysis not available - no companies in the report.",
		prompt: func(r *models.Report) string {
			if len(r.Companies) == 0 {
				return ""
			}
			var lines []string
			for _, c := range byRevenue(r.Companies, 10) {
				lines = append(lines, fmt.Sprintf("- %s: Revenue %s, Net Income %s, Profit Margin %s",
					c.Company, common.FormatMoney(c.Revenue), common.FormatMoney(c.NetIncome), common.FormatRatioPct(c.ProfitMargin)))
			}
			return fmt.Sprintf(`Analyze the performance of these companies (largest by revenue):

%s

Identify the strongest financial health, companies needing attention or restructuring, and patterns across them.
Maximum 250 words.`, strings.Join(lines, "\n"))
		},
	},
	{
		Key:         "sector_insights",
		Title:       "Sector Insights",
		Unavailable: "Sector analysis not available - insufficient sector data.",
		prompt: func(r *models.Report) string {
			if len(r.Sectors) == 0 {
				return ""
			}
			var lines []string
			for _, s := range r.Sectors {
				lines = append(lines, fmt.Sprintf("- %s: Total Revenue %s, Companies: %d, Avg Profit Margin: %s",
					s.Sector, common.FormatMoney(s.TotalRevenue), s.CompanyCount, common.FormatRatioPct(s.AverageProfitMargin)))
			}
			return fmt.Sprintf(`Analyze sector performance based on the following data:

%s

Cover the best performing sectors, sectors facing challenges, and opportunities and threats.
Maximum 200 words.`, strings.Join(lines, "\n"))
		},
	},
	{
		Key:   "risk_analysis",
		Title: "Risk Analysis",
		prompt: func(r *models.Report) string {
			atRisk := r.Risk.CompaniesAtRisk
			if len(atRisk) > 5 {
				atRisk = atRisk[:5]
			}
			names := "none"
			if len(atRisk) > 0 {
				names = strings.Join(atRisk, ", ")
			}
			return fmt.Sprintf(`Provide a risk assessment from these indicators:

- High Expense Ratio Companies: %d
- Low Profit Margin Companies: %d
- High Volatility Companies: %d
- Average Volatility Score: %s
- Companies at Risk: %s

Give an overall risk level, the key risk factors, mitigation steps and what to monitor.
Maximum 250 words.`,
				r.Risk.HighDebtCompanies,
				r.Risk.LowProfitMarginCompanies,
				r.Risk.HighVolatilityCompanies,
				r.Risk.AverageVolatility.String(),
				names,
			)
		},
	},
	{
		Key:         "investment_recommendations",
		Title:       "Investment Recommendations",
		Unavailable: "Investment recommendations not available - insufficient data.",
		prompt: func(r *models.Report) string {
			if len(r.TopPerformers) == 0 {
				return ""
			}
			top := r.TopPerformers
			if len(top) > 5 {
				top = top[:5]
			}
			var lines []string
			for _, c := range top {
				lines = append(lines, fmt.Sprintf("- %s: Revenue %s, Net Income %s, Profit Margin %s, Sector: %s",
					c.Company, common.FormatMoney(c.Revenue), common.FormatMoney(c.NetIncome),
					common.FormatRatioPct(c.ProfitMargin), c.Sector))
			}
			return fmt.Sprintf(`Based on the top performing companies, provide investment recommendations:

%s

Cover attractiveness ranking, growth potential, risk-adjusted return expectations and time horizon.
Maximum 250 words.`, strings.Join(lines, "\n"))
		},
	},
}

// byRevenue returns up to n companies ordered by revenue, largest first
func byRevenue(companies []models.CompanyAnalysis, n int) []models.CompanyAnalysis {
	out := append([]models.CompanyAnalysis{}, companies...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Revenue > out[j].Revenue
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
