package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bobmcallan/tally/internal/models"
)

// ValidationResult splits a batch into usable records and rejected rows.
// Both preserve input order.
type ValidationResult struct {
	Records []models.CompanyRecord
	Skipped []models.SkippedRow
}

// dateLayouts are tried in order when a Date value is a string.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	time.RFC3339,
}

// fieldColumns maps CompanyRecord fields to input column names.
var fieldColumns = map[string]string{
	"Company":   models.ColCompany,
	"Revenue":   models.ColRevenue,
	"Expenses":  models.ColExpenses,
	"NetIncome": models.ColNetIncome,
	"MarketCap": models.ColMarketCap,
}

// validate caches struct metadata and is safe for concurrent use.
var validate = validator.New()

// ValidateRows coerces raw rows into CompanyRecords. Rows with any problem
// are excluded and reported with every reason found; the batch never fails.
// Row numbers are 1-based positions in rows.
func ValidateRows(rows []models.RawRow) ValidationResult {
	result := ValidationResult{
		Records: make([]models.CompanyRecord, 0, len(rows)),
		Skipped: []models.SkippedRow{},
	}

	for i, raw := range rows {
		rec, errs := validateRow(i+1, raw)
		if len(errs) > 0 {
			result.Skipped = append(result.Skipped, models.SkippedRow{
				Row:     i + 1,
				Company: rec.Company,
				Errors:  errs,
			})
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result
}

func validateRow(row int, raw models.RawRow) (models.CompanyRecord, []models.ValidationError) {
	rec := models.CompanyRecord{Row: row, Sector: models.DefaultSector}
	var errs []models.ValidationError

	fail := func(kind models.ValidationErrorKind, column, value, msg string) {
		errs = append(errs, models.ValidationError{
			Kind:    kind,
			Column:  column,
			Row:     row,
			Value:   value,
			Message: msg,
		})
	}

	// Keys that match a column several ways with different values fail the
	// row rather than letting one of them win.
	lookup := func(column string) (any, bool) {
		val, ok, err := raw.Lookup(column)
		if err != nil {
			fail(models.InvalidValue, column, "", err.Error())
			return nil, false
		}
		return val, ok
	}
	missing := func(column string) {
		if !alreadyFailed(errs, column) {
			fail(models.MissingColumn, column, "", "required column is absent or empty")
		}
	}

	// Company
	if val, ok := lookup(models.ColCompany); !ok || isBlank(val) {
		missing(models.ColCompany)
	} else {
		rec.Company = strings.TrimSpace(stringValue(val))
	}

	// Required numerics
	required := []struct {
		column string
		dst    *float64
	}{
		{models.ColRevenue, &rec.Revenue},
		{models.ColExpenses, &rec.Expenses},
		{models.ColNetIncome, &rec.NetIncome},
	}
	for _, f := range required {
		val, ok := lookup(f.column)
		if !ok || isBlank(val) {
			missing(f.column)
			continue
		}
		n, err := toFloat(val)
		if err != nil {
			fail(models.TypeCoercionFailure, f.column, stringValue(val), err.Error())
			continue
		}
		*f.dst = n
	}

	// Optional columns
	if val, ok := lookup(models.ColSector); ok && !isBlank(val) {
		rec.Sector = strings.TrimSpace(stringValue(val))
	}

	if val, ok := lookup(models.ColMarketCap); ok && !isBlank(val) {
		n, err := toFloat(val)
		if err != nil {
			fail(models.TypeCoercionFailure, models.ColMarketCap, stringValue(val), err.Error())
		} else {
			rec.MarketCap = &n
		}
	}

	if val, ok := lookup(models.ColDate); ok && !isBlank(val) {
		d, err := toDate(val)
		if err != nil {
			fail(models.TypeCoercionFailure, models.ColDate, stringValue(val), err.Error())
		} else {
			rec.Date = &d
		}
	}

	// Range checks
	if err := validate.Struct(rec); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				column := fieldColumns[fe.StructField()]
				if column == "" {
					column = fe.StructField()
				}
				if alreadyFailed(errs, column) {
					continue
				}
				fail(models.InvalidValue, column, fmt.Sprint(fe.Value()), invalidMessage(fe))
			}
		} else {
			fail(models.InvalidValue, "", "", err.Error())
		}
	}

	return rec, errs
}

func alreadyFailed(errs []models.ValidationError, column string) bool {
	for _, e := range errs {
		if e.Column == column {
			return true
		}
	}
	return false
}

func invalidMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value must not be empty"
	case "gte":
		return "value must not be negative"
	default:
		return fmt.Sprintf("failed %s check", fe.Tag())
	}
}

func isBlank(val any) bool {
	if val == nil {
		return true
	}
	if s, ok := val.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func stringValue(val any) string {
	switch t := val.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// toFloat converts numeric kinds and numeric strings to float64.
func toFloat(val any) (float64, error) {
	var f float64
	switch t := val.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = n
	case bool:
		return 0, fmt.Errorf("boolean is not a number")
	default:
		return 0, fmt.Errorf("unsupported type %T", val)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value is not finite")
	}
	return f, nil
}

func toDate(val any) (time.Time, error) {
	switch t := val.(type) {
	case time.Time:
		return t, nil
	case *time.Time:
		if t != nil {
			return *t, nil
		}
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range dateLayouts {
			if d, err := time.Parse(layout, s); err == nil {
				return d, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised date format")
	}
	return time.Time{}, fmt.Errorf("unsupported type %T", val)
}
