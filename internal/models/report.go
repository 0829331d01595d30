package models

// SectorSummary aggregates the records of one sector.
type SectorSummary struct {
	Sector              string  `json:"sector"`
	CompanyCount        int     `json:"company_count"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalExpenses       float64 `json:"total_expenses"`
	TotalNetIncome      float64 `json:"total_net_income"`
	TotalMarketCap      float64 `json:"total_market_cap"`
	AverageProfitMargin Ratio   `json:"average_profit_margin"`
	ExpenseRatioAvg     Ratio   `json:"expense_ratio_avg"`
}

// Report is the result of one analysis run. It is computed fresh from a
// batch and never mutated after assembly.
type Report struct {
	TotalCompanies      int     `json:"total_companies"`
	TotalRevenue        float64 `json:"total_revenue"`
	TotalExpenses       float64 `json:"total_expenses"`
	TotalNetIncome      float64 `json:"total_net_income"`
	AverageProfitMargin Ratio   `json:"average_profit_margin"`
	ExpenseRatioAvg     Ratio   `json:"expense_ratio_avg"`
	AverageRevenue      Ratio   `json:"average_revenue"`
	AverageNetIncome    Ratio   `json:"average_net_income"`
	RevenueStd          Ratio   `json:"revenue_std"`

	TotalMarketCap   float64 `json:"total_market_cap"`
	AverageMarketCap Ratio   `json:"average_market_cap"`
	MarketCapStd     Ratio   `json:"market_cap_std"`
	MarketCapCount   int     `json:"market_cap_count"`

	Sectors       []SectorSummary   `json:"sectors"`
	TopPerformers []CompanyAnalysis `json:"top_performers"`
	Companies     []CompanyAnalysis `json:"companies"`
	Risk          RiskAssessment    `json:"risk"`

	SkippedRows  []SkippedRow `json:"skipped_rows"`
	SkippedCount int          `json:"skipped_count"`

	Summary string `json:"summary,omitempty"`
}

// WithSummary returns a copy of the report carrying the given summary text.
// Slices are shared with the receiver; neither copy is mutated afterwards.
func (r *Report) WithSummary(text string) *Report {
	cp := *r
	cp.Summary = text
	return &cp
}

// Company returns the analysis for the given source row.
func (r *Report) Company(row int) (CompanyAnalysis, bool) {
	for _, c := range r.Companies {
		if c.Row == row {
			return c, true
		}
	}
	return CompanyAnalysis{}, false
}

// ProfitableCount returns the number of companies with positive net income.
func (r *Report) ProfitableCount() int {
	n := 0
	for _, c := range r.Companies {
		if c.IsProfitable {
			n++
		}
	}
	return n
}
