// Package models defines data structures for Tally
package models

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// Column names of the tabular input.
const (
	ColCompany   = "Company"
	ColRevenue   = "Revenue"
	ColExpenses  = "Expenses"
	ColNetIncome = "Net_Income"
	ColDate      = "Date"
	ColSector    = "Sector"
	ColMarketCap = "Market_Cap"
)

// DefaultSector is assigned to records without a sector.
const DefaultSector = "Unknown"

// RequiredColumns lists the columns every row must carry.
var RequiredColumns = []string{ColCompany, ColRevenue, ColExpenses, ColNetIncome}

// OptionalColumns lists the columns a row may carry.
var OptionalColumns = []string{ColDate, ColSector, ColMarketCap}

// RawRow is one untyped input row keyed by column name.
type RawRow map[string]any

// ErrAmbiguousColumn is returned by Lookup when several keys match a column
// and carry different values.
var ErrAmbiguousColumn = errors.New("ambiguous column")

// Lookup returns the value for a column. An exact key wins; otherwise keys
// are compared after trimming whitespace, falling back to a case-insensitive
// match. When several keys match at the same step their values must agree,
// and the lowest key in sort order supplies the result.
func (r RawRow) Lookup(column string) (any, bool, error) {
	if v, ok := r[column]; ok {
		return v, true, nil
	}

	matchers := []func(string) bool{
		func(k string) bool { return strings.TrimSpace(k) == column },
		func(k string) bool { return strings.EqualFold(strings.TrimSpace(k), column) },
	}
	for _, match := range matchers {
		var keys []string
		for k := range r {
			if match(k) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			continue
		}
		sort.Strings(keys)
		v := r[keys[0]]
		for _, k := range keys[1:] {
			if !reflect.DeepEqual(r[k], v) {
				return nil, true, fmt.Errorf("%w: %q", ErrAmbiguousColumn, keys)
			}
		}
		return v, true, nil
	}
	return nil, false, nil
}

// CompanyRecord is a validated input row.
type CompanyRecord struct {
	Row       int        `json:"row"`
	Company   string     `json:"company" validate:"required"`
	Revenue   float64    `json:"revenue" validate:"gte=0"`
	Expenses  float64    `json:"expenses" validate:"gte=0"`
	NetIncome float64    `json:"net_income"`
	Date      *time.Time `json:"date,omitempty"`
	Sector    string     `json:"sector"`
	MarketCap *float64   `json:"market_cap,omitempty" validate:"omitempty,gte=0"`
}

// DerivedMetrics holds the ratios computed from one CompanyRecord.
type DerivedMetrics struct {
	ProfitMargin Ratio `json:"profit_margin"`
	ExpenseRatio Ratio `json:"expense_ratio"`
	IsProfitable bool  `json:"is_profitable"`
}

// CompanyMetrics pairs a record with the metrics derived from it.
type CompanyMetrics struct {
	Record  CompanyRecord
	Metrics DerivedMetrics
}

// CompanyAnalysis is the per-company view carried in a Report.
type CompanyAnalysis struct {
	CompanyRecord
	DerivedMetrics
	Deviation Ratio      `json:"deviation"`
	Flags     []RiskFlag `json:"flags"`
}

// AtRisk reports whether the company carries at least one risk flag.
func (c *CompanyAnalysis) AtRisk() bool {
	return len(c.Flags) > 0
}

// HasFlag reports whether the company carries a flag of the given kind.
func (c *CompanyAnalysis) HasFlag(kind RiskKind) bool {
	for _, f := range c.Flags {
		if f.Kind == kind {
			return true
		}
	}
	return false
}
