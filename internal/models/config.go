package models

import (
	"fmt"
	"math"
)

// AnalysisConfig holds the thresholds of the analysis pipeline.
type AnalysisConfig struct {
	HighExpenseRatio    float64 `toml:"high_expense_ratio" json:"high_expense_ratio"`
	LowProfitMargin     float64 `toml:"low_profit_margin" json:"low_profit_margin"`
	VolatilityThreshold float64 `toml:"volatility_threshold" json:"volatility_threshold"`
	VolatilityFloor     float64 `toml:"volatility_floor" json:"volatility_floor"`
	TopN                int     `toml:"top_n" json:"top_n"`
}

// DefaultAnalysisConfig returns the standard thresholds.
func DefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		HighExpenseRatio:    0.80,
		LowProfitMargin:     0.05,
		VolatilityThreshold: 1.0,
		VolatilityFloor:     0.01,
		TopN:                5,
	}
}

// Validate checks that thresholds are usable.
func (c AnalysisConfig) Validate() error {
	for name, v := range map[string]float64{
		"high_expense_ratio":   c.HighExpenseRatio,
		"low_profit_margin":    c.LowProfitMargin,
		"volatility_threshold": c.VolatilityThreshold,
		"volatility_floor":     c.VolatilityFloor,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("analysis.%s must be finite", name)
		}
	}
	if c.HighExpenseRatio <= 0 {
		return fmt.Errorf("analysis.high_expense_ratio must be positive, got %v", c.HighExpenseRatio)
	}
	if c.LowProfitMargin == 0 {
		return fmt.Errorf("analysis.low_profit_margin must be non-zero")
	}
	if c.VolatilityThreshold <= 0 {
		return fmt.Errorf("analysis.volatility_threshold must be positive, got %v", c.VolatilityThreshold)
	}
	if c.VolatilityFloor <= 0 {
		return fmt.Errorf("analysis.volatility_floor must be positive, got %v", c.VolatilityFloor)
	}
	if c.TopN < 1 {
		return fmt.Errorf("analysis.top_n must be at least 1, got %d", c.TopN)
	}
	return nil
}
