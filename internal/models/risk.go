package models

// RiskKind identifies the rule that raised a RiskFlag
type RiskKind string

const (
	RiskHighExpenseRatio RiskKind = "high_expense_ratio"
	RiskLowProfitMargin  RiskKind = "low_profit_margin"
	RiskHighVolatility   RiskKind = "high_volatility"
)

// Label returns a human-readable name for the kind.
func (k RiskKind) Label() string {
	switch k {
	case RiskHighExpenseRatio:
		return "High expense ratio"
	case RiskLowProfitMargin:
		return "Low profit margin"
	case RiskHighVolatility:
		return "High volatility"
	default:
		return string(k)
	}
}

// Severity bands of a RiskFlag score
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// RiskFlag records one rule a company tripped.
// Score is the distance past the threshold relative to the threshold.
type RiskFlag struct {
	Kind      RiskKind `json:"kind"`
	Score     float64  `json:"score"`
	Severity  string   `json:"severity"`
	Value     float64  `json:"value"`
	Threshold float64  `json:"threshold"`
}

// FlaggedCompany lists the flags raised for one company.
type FlaggedCompany struct {
	Row     int        `json:"row"`
	Company string     `json:"company"`
	Sector  string     `json:"sector"`
	Flags   []RiskFlag `json:"flags"`
}

// RiskAssessment is the risk block of a Report.
type RiskAssessment struct {
	HighDebtCompanies        int              `json:"high_debt_companies"`
	LowProfitMarginCompanies int              `json:"low_profit_margin_companies"`
	HighVolatilityCompanies  int              `json:"high_volatility_companies"`
	AverageVolatility        Ratio            `json:"average_volatility"`
	CompaniesAtRisk          []string         `json:"companies_at_risk"`
	Flagged                  []FlaggedCompany `json:"flagged"`
}
