// Package pitch estimates fundamental frequency over time and reduces the
// per-frame estimates to a single representative frequency.
package pitch

import (
	"context"
	"errors"
)

var (
	ErrClipTooShort = errors.New("clip shorter than one analysis frame")
	ErrEstimator    = errors.New("pitch estimator failed")
	ErrNoPitch      = errors.New("no pitched frames detected")
)

// Frame is one time-aligned pitch estimate
type Frame struct {
	Time       float64 `json:"time" doc:"Frame start in seconds"`
	Frequency  float64 `json:"frequency" doc:"Estimated fundamental in Hz, 0 when unvoiced"`
	Confidence float64 `json:"confidence" doc:"Voicing confidence between 0 and 1"`
}

// Estimator produces pitch frames for a mono signal
type Estimator interface {
	Name() string
	Estimate(ctx context.Context, samples []float64, sampleRate int) ([]Frame, error)
}
