package server

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/interfaces"
	"github.com/bobmcallan/tally/internal/models"
)

// handleGlossary returns the report terms with live values from one dataset.
func (s *Server) handleGlossary(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	rep, ds, err := s.app.AnalysisService.AnalyzeDataset(r.Context(), id, interfaces.AnalyzeOptions{})
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildGlossary(ds.Name, rep, s.app.Config.Analysis))
}

// buildGlossary constructs the glossary response from a report.
func buildGlossary(name string, r *models.Report, cfg models.AnalysisConfig) *models.GlossaryResponse {
	resp := &models.GlossaryResponse{Dataset: name}

	resp.Categories = append(resp.Categories, buildTotalsCategory(r))
	resp.Categories = append(resp.Categories, buildMarginCategory(r))

	if len(r.Sectors) > 0 {
		resp.Categories = append(resp.Categories, buildSectorCategory(r))
	}
	if r.MarketCapCount > 0 {
		resp.Categories = append(resp.Categories, buildMarketCapCategory(r))
	}

	resp.Categories = append(resp.Categories, buildRiskCategory(r, cfg))
	return resp
}

func buildTotalsCategory(r *models.Report) models.GlossaryCategory {
	return models.GlossaryCategory{
		Name: "Totals",
		Terms: []models.GlossaryTerm{
			{
				Term:       "total_companies",
				Label:      "Companies",
				Definition: "Number of rows that passed validation. Skipped rows are listed separately with reasons.",
				Value:      r.TotalCompanies,
				Example:    fmt.Sprintf("%d analysed, %d skipped", r.TotalCompanies, r.SkippedCount),
			},
			{
				Term:       "total_revenue",
				Label:      "Total Revenue",
				Definition: "Sum of revenue across all valid companies, including those with zero revenue.",
				Formula:    "sum(revenue)",
				Value:      r.TotalRevenue,
				Example:    common.FormatMoney(r.TotalRevenue),
			},
			{
				Term:       "total_net_income",
				Label:      "Total Net Income",
				Definition: "Sum of reported net income. Losses reduce the total.",
				Formula:    "sum(net_income)",
				Value:      r.TotalNetIncome,
				Example:    common.FormatMoney(r.TotalNetIncome),
			},
			{
				Term:       "average_revenue",
				Label:      "Average Revenue",
				Definition: "Mean revenue per company.",
				Formula:    "total_revenue / total_companies",
				Value:      r.AverageRevenue,
				Example:    common.FormatRatioMoney(r.AverageRevenue),
			},
			{
				Term:       "revenue_std",
				Label:      "Revenue Std Dev",
				Definition: "Population standard deviation of revenue. High values mean a few large companies dominate.",
				Value:      r.RevenueStd,
				Example:    common.FormatRatioMoney(r.RevenueStd),
			},
		},
	}
}

func buildMarginCategory(r *models.Report) models.GlossaryCategory {
	terms := []models.GlossaryTerm{
		{
			Term:       "profit_margin",
			Label:      "Profit Margin",
			Definition: "Net income as a share of revenue. Undefined when revenue is zero.",
			Formula:    "net_income / revenue",
			Value:      exampleCompanyValue(r, func(c models.CompanyAnalysis) models.Ratio { return c.ProfitMargin }),
			Example: exampleCompany(r, func(c models.CompanyAnalysis) string {
				return fmt.Sprintf("%s / %s = %s", common.FormatMoney(c.NetIncome), common.FormatMoney(c.Revenue), common.FormatRatioPct(c.ProfitMargin))
			}),
		},
		{
			Term:       "expense_ratio",
			Label:      "Expense Ratio",
			Definition: "Expenses as a share of revenue. Undefined when revenue is zero.",
			Formula:    "expenses / revenue",
			Value:      exampleCompanyValue(r, func(c models.CompanyAnalysis) models.Ratio { return c.ExpenseRatio }),
			Example: exampleCompany(r, func(c models.CompanyAnalysis) string {
				return fmt.Sprintf("%s / %s = %s", common.FormatMoney(c.Expenses), common.FormatMoney(c.Revenue), common.FormatRatioPct(c.ExpenseRatio))
			}),
		},
		{
			Term:       "average_profit_margin",
			Label:      "Average Profit Margin",
			Definition: "Mean of the defined company profit margins. Companies with zero revenue are excluded.",
			Formula:    "mean(profit_margin) where revenue > 0",
			Value:      r.AverageProfitMargin,
			Example:    common.FormatRatioPct(r.AverageProfitMargin),
		},
		{
			Term:       "expense_ratio_avg",
			Label:      "Average Expense Ratio",
			Definition: "Mean of the defined company expense ratios.",
			Formula:    "mean(expense_ratio) where revenue > 0",
			Value:      r.ExpenseRatioAvg,
			Example:    common.FormatRatioPct(r.ExpenseRatioAvg),
		},
	}

	return models.GlossaryCategory{
		Name:  "Margins",
		Terms: terms,
	}
}

func buildSectorCategory(r *models.Report) models.GlossaryCategory {
	sectors := append([]models.SectorSummary{}, r.Sectors...)
	sort.SliceStable(sectors, func(i, j int) bool { return sectors[i].TotalRevenue > sectors[j].TotalRevenue })
	top := sectors[0]

	return models.GlossaryCategory{
		Name: "Sectors",
		Terms: []models.GlossaryTerm{
			{
				Term:       "sector_total_revenue",
				Label:      "Sector Revenue",
				Definition: "Revenue summed over the companies of one sector. Blank sectors are grouped as Unknown.",
				Value:      top.TotalRevenue,
				Example:    fmt.Sprintf("%s: %s over %d companies", top.Sector, common.FormatMoney(top.TotalRevenue), top.CompanyCount),
			},
			{
				Term:       "sector_average_profit_margin",
				Label:      "Sector Average Margin",
				Definition: "Mean of the defined profit margins within a sector.",
				Value:      top.AverageProfitMargin,
				Example:    fmt.Sprintf("%s: %s", top.Sector, common.FormatRatioPct(top.AverageProfitMargin)),
			},
		},
	}
}

func buildMarketCapCategory(r *models.Report) models.GlossaryCategory {
	return models.GlossaryCategory{
		Name: "Market Capitalisation",
		Terms: []models.GlossaryTerm{
			{
				Term:       "total_market_cap",
				Label:      "Total Market Cap",
				Definition: "Sum of market capitalisation over the companies that report one.",
				Value:      r.TotalMarketCap,
				Example:    fmt.Sprintf("%s over %d companies", common.FormatCompactMoney(r.TotalMarketCap), r.MarketCapCount),
			},
			{
				Term:       "average_market_cap",
				Label:      "Average Market Cap",
				Definition: "Mean market capitalisation of the companies that report one.",
				Value:      r.AverageMarketCap,
				Example:    common.FormatRatioMoney(r.AverageMarketCap),
			},
		},
	}
}

func buildRiskCategory(r *models.Report, cfg models.AnalysisConfig) models.GlossaryCategory {
	atRisk := "none"
	if len(r.Risk.CompaniesAtRisk) > 0 {
		atRisk = strings.Join(r.Risk.CompaniesAtRisk, ", ")
	}

	return models.GlossaryCategory{
		Name: "Risk",
		Terms: []models.GlossaryTerm{
			{
				Term:       "high_debt_companies",
				Label:      "High Expense Ratio",
				Definition: "Companies whose expenses exceed the configured share of revenue.",
				Formula:    fmt.Sprintf("expense_ratio > %.2f", cfg.HighExpenseRatio),
				Value:      r.Risk.HighDebtCompanies,
				Example:    fmt.Sprintf("%d companies", r.Risk.HighDebtCompanies),
			},
			{
				Term:       "low_profit_margin_companies",
				Label:      "Low Profit Margin",
				Definition: "Companies whose profit margin is at or below the configured floor.",
				Formula:    fmt.Sprintf("profit_margin <= %.2f", cfg.LowProfitMargin),
				Value:      r.Risk.LowProfitMarginCompanies,
				Example:    fmt.Sprintf("%d companies", r.Risk.LowProfitMarginCompanies),
			},
			{
				Term:       "average_volatility",
				Label:      "Average Volatility",
				Definition: "Mean relative deviation of company margins from the average margin.",
				Formula:    "mean(|profit_margin - average_profit_margin| / max(|average_profit_margin|, floor))",
				Value:      r.Risk.AverageVolatility,
				Example:    common.FormatRatioPct(r.Risk.AverageVolatility),
			},
			{
				Term:       "companies_at_risk",
				Label:      "Companies at Risk",
				Definition: "Companies carrying at least one risk flag, in input order.",
				Value:      r.Risk.CompaniesAtRisk,
				Example:    atRisk,
			},
		},
	}
}

// exampleCompany formats the largest company by revenue with a defined
// margin, or returns "" when there is none.
func exampleCompany(r *models.Report, format func(models.CompanyAnalysis) string) string {
	c, ok := largestCompany(r)
	if !ok {
		return ""
	}
	return c.Company + ": " + format(c)
}

func exampleCompanyValue(r *models.Report, value func(models.CompanyAnalysis) models.Ratio) interface{} {
	c, ok := largestCompany(r)
	if !ok {
		return nil
	}
	return value(c)
}

func largestCompany(r *models.Report) (models.CompanyAnalysis, bool) {
	var best models.CompanyAnalysis
	found := false
	for _, c := range r.Companies {
		if !c.ProfitMargin.IsDefined() {
			continue
		}
		if !found || c.Revenue > best.Revenue {
			best, found = c, true
		}
	}
	return best, found
}
