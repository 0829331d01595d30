package models

import "fmt"

// ValidationErrorKind classifies why a row was rejected
type ValidationErrorKind string

const (
	MissingColumn       ValidationErrorKind = "missing_column"
	TypeCoercionFailure ValidationErrorKind = "type_coercion_failure"
	InvalidValue        ValidationErrorKind = "invalid_value"
)

// ValidationError describes one problem found on one input row.
type ValidationError struct {
	Kind    ValidationErrorKind `json:"kind"`
	Column  string              `json:"column"`
	Row     int                 `json:"row"`
	Value   string              `json:"value,omitempty"`
	Message string              `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("row %d: %s %s: %s (value %q)", e.Row, e.Column, e.Kind, e.Message, e.Value)
	}
	return fmt.Sprintf("row %d: %s %s: %s", e.Row, e.Column, e.Kind, e.Message)
}

// SkippedRow is an input row excluded from analysis, with every reason found.
type SkippedRow struct {
	Row     int               `json:"row"`
	Company string            `json:"company,omitempty"`
	Errors  []ValidationError `json:"errors"`
}
