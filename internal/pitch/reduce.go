package pitch

import (
	"fmt"
	"math"
)

// DefaultMinConfidence is the voicing cutoff for VoicedMeanReducer
const DefaultMinConfidence = 0.5

// Reducer collapses a frame sequence into one frequency
type Reducer interface {
	Reduce(frames []Frame) (float64, error)
}

// MeanReducer averages every frame frequency, voiced or not
type MeanReducer struct{}

func (MeanReducer) Reduce(frames []Frame) (float64, error) {
	if len(frames) == 0 {
		return 0, ErrNoPitch
	}
	sum := 0.0
	for _, f := range frames {
		sum += f.Frequency
	}
	return sum / float64(len(frames)), nil
}

// VoicedMeanReducer is a confidence-weighted mean over frames that have a
// frequency and at least MinConfidence.
type VoicedMeanReducer struct {
	MinConfidence float64
}

func (r VoicedMeanReducer) Reduce(frames []Frame) (float64, error) {
	var sum, weight float64
	used := 0
	for _, f := range frames {
		if f.Frequency <= 0 || math.IsNaN(f.Frequency) || f.Confidence < r.MinConfidence || f.Confidence <= 0 {
			continue
		}
		sum += f.Frequency * f.Confidence
		weight += f.Confidence
		used++
	}
	if used == 0 {
		return 0, fmt.Errorf("%w: %d frames, none at confidence %.2f", ErrNoPitch, len(frames), r.MinConfidence)
	}
	return sum / weight, nil
}

// ReducerByName returns "mean" or "voiced"
func ReducerByName(name string, minConfidence float64) (Reducer, error) {
	switch name {
	case "mean":
		return MeanReducer{}, nil
	case "voiced", "":
		return VoicedMeanReducer{MinConfidence: minConfidence}, nil
	default:
		return nil, fmt.Errorf("unknown reducer %q", name)
	}
}
