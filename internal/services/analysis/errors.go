package analysis

import "fmt"

// InternalConsistencyError reports stage outputs that do not fit together.
// It indicates a defect in pipeline sequencing and is fatal to the run.
type InternalConsistencyError struct {
	Reason string
}

func (e *InternalConsistencyError) Error() string {
	return "internal consistency: " + e.Reason
}

func inconsistent(format string, args ...any) error {
	return &InternalConsistencyError{Reason: fmt.Sprintf(format, args...)}
}
