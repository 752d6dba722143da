// Package tuning matches detected frequencies against a reference note table.
package tuning

import (
	"errors"
	"fmt"
	"math"
)

// DefaultToleranceCents is the half-width of the "in tune" window
const DefaultToleranceCents = 10.0

var (
	// ErrInvalidFrequency is returned for non-positive or non-finite input
	ErrInvalidFrequency = errors.New("invalid frequency")
	// ErrInvalidTolerance is returned when a matcher is configured with a bad tolerance
	ErrInvalidTolerance = errors.New("invalid tolerance")
)

// Judgment classifies a deviation from the closest note
type Judgment string

const (
	InTune Judgment = "in tune"
	Sharp  Judgment = "sharp"
	Flat   Judgment = "flat"
)

// Result is the outcome of matching one frequency
type Result struct {
	Note      string   `json:"closest_note" doc:"Closest reference note"`
	Reference float64  `json:"reference_frequency" doc:"Reference frequency of the closest note in Hz"`
	Frequency float64  `json:"predicted_frequency" doc:"Input frequency in Hz"`
	Cents     float64  `json:"cents_difference" doc:"Signed deviation in cents, positive is sharp"`
	Judgment  Judgment `json:"judgment" enum:"in tune,sharp,flat" doc:"Tuning judgment"`
	Feedback  string   `json:"feedback" doc:"Human-readable feedback"`
}

// Matcher maps frequencies to the nearest note of a reference table.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	table     *Table
	tolerance float64
}

// Option configures a Matcher
type Option func(*Matcher)

// WithTolerance sets the in-tune window in cents
func WithTolerance(cents float64) Option {
	return func(m *Matcher) {
		m.tolerance = cents
	}
}

// NewMatcher creates a matcher over table. A nil table uses DefaultTable.
func NewMatcher(table *Table, opts ...Option) (*Matcher, error) {
	if table == nil {
		table = DefaultTable()
	}
	if table.Len() == 0 {
		return nil, fmt.Errorf("%w: no notes", ErrInvalidTable)
	}
	m := &Matcher{table: table, tolerance: DefaultToleranceCents}
	for _, opt := range opts {
		opt(m)
	}
	if m.tolerance <= 0 || math.IsNaN(m.tolerance) || math.IsInf(m.tolerance, 0) {
		return nil, fmt.Errorf("%w: %v cents", ErrInvalidTolerance, m.tolerance)
	}
	return m, nil
}

// Table returns the reference table
func (m *Matcher) Table() *Table {
	return m.table
}

// Tolerance returns the in-tune window in cents
func (m *Matcher) Tolerance() float64 {
	return m.tolerance
}

// Match finds the closest note to frequency and judges the deviation.
// Frequencies outside the table's range still match its nearest end.
func (m *Matcher) Match(frequency float64) (Result, error) {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		return Result{}, fmt.Errorf("%w: %v Hz", ErrInvalidFrequency, frequency)
	}

	closest := m.table.notes[0]
	minDiff := math.Abs(frequency - closest.Frequency)
	for _, n := range m.table.notes[1:] {
		// strict comparison keeps the earlier entry on ties
		if d := math.Abs(frequency - n.Frequency); d < minDiff {
			minDiff = d
			closest = n
		}
	}

	cents := Cents(frequency, closest.Frequency)

	res := Result{
		Note:      closest.Name,
		Reference: closest.Frequency,
		Frequency: frequency,
		Cents:     cents,
	}
	switch {
	case math.Abs(cents) < m.tolerance:
		res.Judgment = InTune
		res.Feedback = fmt.Sprintf("In tune with %s (%.2f Hz)", closest.Name, frequency)
	case cents > 0:
		res.Judgment = Sharp
		res.Feedback = fmt.Sprintf("Sharp by %.2f cents from %s", cents, closest.Name)
	default:
		res.Judgment = Flat
		res.Feedback = fmt.Sprintf("Flat by %.2f cents from %s", math.Abs(cents), closest.Name)
	}
	return res, nil
}

// Cents returns the interval from ref to f in cents
func Cents(f, ref float64) float64 {
	return 1200 * math.Log2(f/ref)
}
