package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/tally/internal/models"
)

var companyHeader = []string{
	"Row", "Company", "Sector", "Date", "Revenue", "Expenses", "Net_Income", "Market_Cap",
	"Profit_Margin", "Expense_Ratio", "Is_Profitable", "Deviation", "Risk_Flags",
}

var sectorHeader = []string{
	"Sector", "Company_Count", "Total_Revenue", "Total_Expenses", "Total_Net_Income",
	"Total_Market_Cap", "Avg_Profit_Margin", "Avg_Expense_Ratio",
}

// CompaniesCSV writes one line per analysed company. Undefined ratios are empty cells.
func CompaniesCSV(r *models.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.Companies))
	for _, c := range r.Companies {
		date := ""
		if c.Date != nil {
			date = c.Date.Format("2006-01-02")
		}
		marketCap := ""
		if c.MarketCap != nil {
			marketCap = num(*c.MarketCap)
		}
		flags := make([]string, 0, len(c.Flags))
		for _, f := range c.Flags {
			flags = append(flags, string(f.Kind))
		}
		rows = append(rows, []string{
			strconv.Itoa(c.Row), c.Company, c.Sector, date,
			num(c.Revenue), num(c.Expenses), num(c.NetIncome), marketCap,
			ratio(c.ProfitMargin), ratio(c.ExpenseRatio), strconv.FormatBool(c.IsProfitable),
			ratio(c.Deviation), strings.Join(flags, ";"),
		})
	}
	return writeCSV(companyHeader, rows)
}

// SectorsCSV writes one line per sector summary
func SectorsCSV(r *models.Report) ([]byte, error) {
	rows := make([][]string, 0, len(r.Sectors))
	for _, s := range r.Sectors {
		rows = append(rows, []string{
			s.Sector, strconv.Itoa(s.CompanyCount),
			num(s.TotalRevenue), num(s.TotalExpenses), num(s.TotalNetIncome), num(s.TotalMarketCap),
			ratio(s.AverageProfitMargin), ratio(s.ExpenseRatioAvg),
		})
	}
	return writeCSV(sectorHeader, rows)
}

// ExportFilename names an export after its kind and date, e.g. company_report_20240331.csv
func ExportFilename(kind, ext string, t time.Time) string {
	return fmt.Sprintf("%s_report_%s.%s", kind, t.Format("20060102"), ext)
}

func writeCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func ratio(r models.Ratio) string {
	v, ok := r.Value()
	if !ok {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
