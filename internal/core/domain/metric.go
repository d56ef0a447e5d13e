package domain

import (
	"encoding/json"
	"strconv"
)

// Metric is an aggregate measurement the source may or may not report.
// An unknown metric is distinct from zero and must never be read as one.
type Metric struct {
	// Value is the measurement. Meaningless when Known is false.
	Value float64

	// Known reports whether the source supplied a usable value.
	Known bool
}

// Known returns a metric carrying v.
func Known(v float64) Metric {
	return Metric{Value: v, Known: true}
}

// Unknown returns the absent metric.
func Unknown() Metric {
	return Metric{}
}

// MetricFromPtr converts a nullable value into a metric.
func MetricFromPtr(v *float64) Metric {
	if v == nil {
		return Unknown()
	}
	return Known(*v)
}

// Ptr returns the value or nil when unknown.
func (m Metric) Ptr() *float64 {
	if !m.Known {
		return nil
	}
	v := m.Value
	return &v
}

// Or returns the value, or fallback when unknown.
func (m Metric) Or(fallback float64) float64 {
	if !m.Known {
		return fallback
	}
	return m.Value
}

// Format renders the value with the given precision, or "N/A".
func (m Metric) Format(prec int) string {
	if !m.Known {
		return "N/A"
	}
	return strconv.FormatFloat(m.Value, 'f', prec, 64)
}

// MarshalJSON encodes unknown metrics as null.
func (m Metric) MarshalJSON() ([]byte, error) {
	if !m.Known {
		return []byte("null"), nil
	}
	return json.Marshal(m.Value)
}

// UnmarshalJSON decodes null as unknown.
func (m *Metric) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Unknown()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Known(v)
	return nil
}

// TriState is a yes/no answer that may be missing.
type TriState int

const (
	// TriUnknown means no answer was recorded.
	TriUnknown TriState = iota

	// TriYes is an affirmative answer.
	TriYes

	// TriNo is a negative answer.
	TriNo
)

// String returns the string representation.
func (t TriState) String() string {
	switch t {
	case TriYes:
		return "yes"
	case TriNo:
		return "no"
	default:
		return "unknown"
	}
}

// Bool returns the answer, or nil when unknown.
func (t TriState) Bool() *bool {
	switch t {
	case TriYes:
		v := true
		return &v
	case TriNo:
		v := false
		return &v
	default:
		return nil
	}
}

// MarshalJSON encodes the answer as true, false or null.
func (t TriState) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Bool())
}
