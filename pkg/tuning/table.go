package tuning

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidTable is returned when a reference table cannot be built
var ErrInvalidTable = errors.New("invalid reference table")

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Note is a single reference pitch
type Note struct {
	Name      string  `json:"name" doc:"Pitch class and octave, e.g. A4"`
	Frequency float64 `json:"frequency" doc:"Reference frequency in Hz"`
}

// Table is an ordered, read-only set of reference notes.
// Order matters only for tie-breaking: the earlier entry wins.
type Table struct {
	notes []Note
	index map[string]int
}

// NewTable copies notes into a validated table
func NewTable(notes []Note) (*Table, error) {
	if len(notes) == 0 {
		return nil, fmt.Errorf("%w: no notes", ErrInvalidTable)
	}

	t := &Table{
		notes: make([]Note, len(notes)),
		index: make(map[string]int, len(notes)),
	}
	for i, n := range notes {
		if n.Name == "" {
			return nil, fmt.Errorf("%w: entry %d has no name", ErrInvalidTable, i)
		}
		if n.Frequency <= 0 || math.IsNaN(n.Frequency) || math.IsInf(n.Frequency, 0) {
			return nil, fmt.Errorf("%w: %s has frequency %v", ErrInvalidTable, n.Name, n.Frequency)
		}
		if _, dup := t.index[n.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate note %s", ErrInvalidTable, n.Name)
		}
		t.notes[i] = n
		t.index[n.Name] = i
	}
	return t, nil
}

// DefaultTable returns the C4..C6 table used by the tuner (A4 = 440 Hz)
func DefaultTable() *Table {
	t, err := NewTable([]Note{
		{"C4", 261.63}, {"C#4", 277.18}, {"D4", 293.66}, {"D#4", 311.13}, {"E4", 329.63},
		{"F4", 349.23}, {"F#4", 369.99}, {"G4", 392.00}, {"G#4", 415.30}, {"A4", 440.00},
		{"A#4", 466.16}, {"B4", 493.88}, {"C5", 523.25}, {"C#5", 554.37}, {"D5", 587.33},
		{"D#5", 622.25}, {"E5", 659.25}, {"F5", 698.46}, {"F#5", 739.99}, {"G5", 783.99},
		{"G#5", 830.61}, {"A5", 880.00}, {"A#5", 932.33}, {"B5", 987.77}, {"C6", 1046.50},
	})
	if err != nil {
		panic(err)
	}
	return t
}

// EqualTemperedTable builds a table for MIDI notes lowMIDI..highMIDI inclusive
// tuned against the given A4 reference.
func EqualTemperedTable(a4 float64, lowMIDI, highMIDI int) (*Table, error) {
	if a4 <= 0 || math.IsNaN(a4) || math.IsInf(a4, 0) {
		return nil, fmt.Errorf("%w: reference pitch %v", ErrInvalidTable, a4)
	}
	if lowMIDI < 0 || highMIDI > 127 || lowMIDI > highMIDI {
		return nil, fmt.Errorf("%w: MIDI range %d..%d", ErrInvalidTable, lowMIDI, highMIDI)
	}

	notes := make([]Note, 0, highMIDI-lowMIDI+1)
	for m := lowMIDI; m <= highMIDI; m++ {
		notes = append(notes, Note{
			Name:      NoteName(m),
			Frequency: a4 * math.Pow(2, float64(m-69)/12),
		})
	}
	return NewTable(notes)
}

// NoteName returns the scientific pitch name of a MIDI note number (60 -> C4)
func NoteName(midi int) string {
	return fmt.Sprintf("%s%d", pitchClasses[((midi%12)+12)%12], midi/12-1)
}

// Len returns the number of notes
func (t *Table) Len() int {
	return len(t.notes)
}

// Notes returns a copy of the table in definition order
func (t *Table) Notes() []Note {
	out := make([]Note, len(t.notes))
	copy(out, t.notes)
	return out
}

// Lookup returns the reference frequency for a note name
func (t *Table) Lookup(name string) (float64, bool) {
	i, ok := t.index[name]
	if !ok {
		return 0, false
	}
	return t.notes[i].Frequency, true
}
