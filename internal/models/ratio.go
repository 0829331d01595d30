package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Ratio is a numeric value that may be undefined, such as a margin over zero
// revenue or the mean of an empty set. The zero value is undefined and
// serialises as JSON null.
type Ratio struct {
	value   float64
	defined bool
}

// Defined returns a defined Ratio. NaN and infinities are not representable
// and yield an undefined Ratio.
func Defined(v float64) Ratio {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Ratio{}
	}
	return Ratio{value: v, defined: true}
}

// Undefined returns the undefined Ratio.
func Undefined() Ratio {
	return Ratio{}
}

// Value returns the value and whether it is defined.
func (r Ratio) Value() (float64, bool) {
	return r.value, r.defined
}

func (r Ratio) IsDefined() bool {
	return r.defined
}

// OrZero returns the value, or 0 when undefined. Display only.
func (r Ratio) OrZero() float64 {
	if !r.defined {
		return 0
	}
	return r.value
}

func (r Ratio) String() string {
	if !r.defined {
		return "n/a"
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// MarshalJSON implements json.Marshaler
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.defined {
		return []byte("null"), nil
	}
	return json.Marshal(r.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *Ratio) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = Ratio{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Defined(v)
	return nil
}

// MeanOf returns the mean of the defined values, undefined when none are.
func MeanOf(values []Ratio) Ratio {
	var sum float64
	n := 0
	for _, v := range values {
		if x, ok := v.Value(); ok {
			sum += x
			n++
		}
	}
	if n == 0 {
		return Undefined()
	}
	return Defined(sum / float64(n))
}
