package common

import (
	"fmt"
	"math"
	"strings"

	"github.com/bobmcallan/tally/internal/models"
)

// FormatMoney formats a value as dollars with thousands separators, e.g. $1,234.56
func FormatMoney(v float64) string {
	if v < 0 {
		return "-$" + groupThousands(fmt.Sprintf("%.2f", -v))
	}
	return "$" + groupThousands(fmt.Sprintf("%.2f", v))
}

// FormatSignedMoney formats a value with an explicit sign, e.g. +$12.00
func FormatSignedMoney(v float64) string {
	if v >= 0 {
		return "+" + FormatMoney(v)
	}
	return FormatMoney(v)
}

// FormatCompactMoney abbreviates large values, e.g. $1.25B
func FormatCompactMoney(v float64) string {
	abs := math.Abs(v)
	sign := ""
	if v < 0 {
		sign = "-"
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%s$%.2fT", sign, abs/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%s$%.2fB", sign, abs/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%s$%.2fM", sign, abs/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%s$%.1fK", sign, abs/1e3)
	default:
		return FormatMoney(v)
	}
}

// FormatPct formats a percentage value, e.g. 12.34%
func FormatPct(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatSignedPct formats a percentage with an explicit sign, e.g. +1.50%
func FormatSignedPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatRatioPct formats a fractional ratio as a percentage, or "N/A" when undefined
func FormatRatioPct(r models.Ratio) string {
	v, ok := r.Value()
	if !ok {
		return "N/A"
	}
	return FormatPct(v * 100)
}

// FormatRatioMoney formats an optional amount, or "N/A" when undefined
func FormatRatioMoney(r models.Ratio) string {
	v, ok := r.Value()
	if !ok {
		return "N/A"
	}
	return FormatMoney(v)
}

func groupThousands(s string) string {
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}
	b.WriteString(frac)
	return b.String()
}
