package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/common"
	"github.com/bobmcallan/tally/internal/models"
)

// MarkdownReport renders a report as markdown. generated is printed in the
// header; pass the zero time to omit it.
func MarkdownReport(r *models.Report, title string, generated time.Time) string {
	var sb strings.Builder

	if title == "" {
		title = "Financial Analysis Report"
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if !generated.IsZero() {
		sb.WriteString(fmt.Sprintf("**Generated:** %s\n", generated.Format("2006-01-02 15:04")))
	}
	sb.WriteString(fmt.Sprintf("**Companies:** %d", r.TotalCompanies))
	if r.SkippedCount > 0 {
		sb.WriteString(fmt.Sprintf(" (%d rows skipped)", r.SkippedCount))
	}
	sb.WriteString("\n\n")

	writeOverview(&sb, r)
	writeSectors(&sb, r)
	writeTopPerformers(&sb, r)
	writeRisk(&sb, r)

	if r.Summary != "" {
		sb.WriteString("## Summary\n\n")
		sb.WriteString(strings.TrimSpace(demoteHeadings(r.Summary)))
		sb.WriteString("\n\n")
	}

	writeSkipped(&sb, r)

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeOverview(sb *strings.Builder, r *models.Report) {
	sb.WriteString("## Overview\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Revenue | %s |\n", common.FormatMoney(r.TotalRevenue)))
	sb.WriteString(fmt.Sprintf("| Total Expenses | %s |\n", common.FormatMoney(r.TotalExpenses)))
	sb.WriteString(fmt.Sprintf("| Total Net Income | %s |\n", common.FormatMoney(r.TotalNetIncome)))
	sb.WriteString(fmt.Sprintf("| Average Profit Margin | %s |\n", common.FormatRatioPct(r.AverageProfitMargin)))
	sb.WriteString(fmt.Sprintf("| Average Expense Ratio | %s |\n", common.FormatRatioPct(r.ExpenseRatioAvg)))
	sb.WriteString(fmt.Sprintf("| Average Revenue | %s |\n", common.FormatRatioMoney(r.AverageRevenue)))
	sb.WriteString(fmt.Sprintf("| Average Net Income | %s |\n", common.FormatRatioMoney(r.AverageNetIncome)))
	sb.WriteString(fmt.Sprintf("| Revenue Std Dev | %s |\n", common.FormatRatioMoney(r.RevenueStd)))
	sb.WriteString(fmt.Sprintf("| Profitable Companies | %d of %d |\n", r.ProfitableCount(), r.TotalCompanies))
	if r.MarketCapCount > 0 {
		sb.WriteString(fmt.Sprintf("| Total Market Cap | %s |\n", common.FormatCompactMoney(r.TotalMarketCap)))
		sb.WriteString(fmt.Sprintf("| Average Market Cap | %s |\n", compactRatio(r.AverageMarketCap)))
	}
	sb.WriteString("\n")
}

func writeSectors(sb *strings.Builder, r *models.Report) {
	if len(r.Sectors) == 0 {
		return
	}
	sb.WriteString("## Sector Analysis\n\n")
	sb.WriteString("| Sector | Companies | Revenue | Net Income | Avg Margin | Avg Expense Ratio |\n")
	sb.WriteString("|--------|-----------|---------|------------|------------|-------------------|\n")
	for _, s := range r.Sectors {
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s | %s | %s |\n",
			escapeCell(s.Sector), s.CompanyCount,
			common.FormatCompactMoney(s.TotalRevenue), common.FormatCompactMoney(s.TotalNetIncome),
			common.FormatRatioPct(s.AverageProfitMargin), common.FormatRatioPct(s.ExpenseRatioAvg)))
	}
	sb.WriteString("\n")
}

func writeTopPerformers(sb *strings.Builder, r *models.Report) {
	if len(r.TopPerformers) == 0 {
		return
	}
	sb.WriteString("## Top Performers\n\n")
	sb.WriteString("| # | Company | Sector | Revenue | Net Income | Profit Margin |\n")
	sb.WriteString("|---|---------|--------|---------|------------|---------------|\n")
	for i, c := range r.TopPerformers {
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			i+1, escapeCell(c.Company), escapeCell(c.Sector),
			common.FormatCompactMoney(c.Revenue), common.FormatCompactMoney(c.NetIncome),
			common.FormatRatioPct(c.ProfitMargin)))
	}
	sb.WriteString("\n")
}

func writeRisk(sb *strings.Builder, r *models.Report) {
	risk := r.Risk
	atRisk := 0
	for i := range r.Companies {
		if r.Companies[i].AtRisk() {
			atRisk++
		}
	}

	sb.WriteString("## Risk Assessment\n\n")
	sb.WriteString(fmt.Sprintf("- **Companies at risk:** %d of %d\n", atRisk, r.TotalCompanies))
	sb.WriteString(fmt.Sprintf("- **High expense ratio:** %d\n", risk.HighDebtCompanies))
	sb.WriteString(fmt.Sprintf("- **Low profit margin:** %d\n", risk.LowProfitMarginCompanies))
	sb.WriteString(fmt.Sprintf("- **High volatility:** %d\n", risk.HighVolatilityCompanies))
	sb.WriteString(fmt.Sprintf("- **Average volatility:** %s\n\n", risk.AverageVolatility.String()))

	if len(risk.Flagged) == 0 {
		sb.WriteString("No companies flagged.\n\n")
		return
	}

	sb.WriteString("| Company | Sector | Margin | Flag | Severity | Value | Threshold |\n")
	sb.WriteString("|---------|--------|--------|------|----------|-------|-----------|\n")
	for _, fc := range risk.Flagged {
		margin := "N/A"
		if c, ok := r.Company(fc.Row); ok {
			margin = common.FormatRatioPct(c.ProfitMargin)
		}
		for _, f := range fc.Flags {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s | %s | %s |\n",
				escapeCell(fc.Company), escapeCell(fc.Sector), margin, f.Kind.Label(), strings.ToUpper(f.Severity),
				flagValue(f.Kind, f.Value), flagValue(f.Kind, f.Threshold)))
		}
	}
	sb.WriteString("\n")
}

func writeSkipped(sb *strings.Builder, r *models.Report) {
	if len(r.SkippedRows) == 0 {
		return
	}
	sb.WriteString("## Skipped Rows\n\n")
	sb.WriteString("| Row | Company | Reason |\n")
	sb.WriteString("|-----|---------|--------|\n")
	for _, sk := range r.SkippedRows {
		reasons := make([]string, 0, len(sk.Errors))
		for _, e := range sk.Errors {
			reasons = append(reasons, fmt.Sprintf("%s %s", e.Column, strings.ReplaceAll(string(e.Kind), "_", " ")))
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s |\n", sk.Row, escapeCell(sk.Company), escapeCell(strings.Join(reasons, "; "))))
	}
	sb.WriteString("\n")
}

// flagValue prints deviation scores as plain numbers and ratios as percentages
func flagValue(kind models.RiskKind, v float64) string {
	if kind == models.RiskHighVolatility {
		return fmt.Sprintf("%.2f", v)
	}
	return common.FormatPct(v * 100)
}

func compactRatio(r models.Ratio) string {
	v, ok := r.Value()
	if !ok {
		return "N/A"
	}
	return common.FormatCompactMoney(v)
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}

// demoteHeadings pushes summary headings one level down so they nest under "## Summary"
func demoteHeadings(md string) string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "#") {
			lines[i] = "#" + l
		}
	}
	return strings.Join(lines, "\n")
}
