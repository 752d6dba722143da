// Package app assembles the analysis pipeline from configuration.
package app

import (
	"fmt"

	"github.com/RMahshie/tunecheck/internal/audio"
	"github.com/RMahshie/tunecheck/internal/config"
	"github.com/RMahshie/tunecheck/internal/pitch"
	"github.com/RMahshie/tunecheck/pkg/tuning"
)

// Reference table range for a configured A4: C4 through C6, the same span as the default table
const (
	lowMIDI  = 60
	highMIDI = 84
)

// Pipeline holds the stateless stages shared by the server and the CLI
type Pipeline struct {
	Decoder   audio.Decoder
	Estimator pitch.Estimator
	Reducer   pitch.Reducer
	Matcher   *tuning.Matcher
}

// NewPipeline builds every stage from cfg
func NewPipeline(cfg *config.Config) (*Pipeline, error) {
	decoder := audio.NewDecoder(audio.DecoderConfig{
		SampleRate: cfg.Processing.TargetSampleRate,
		FFmpegBin:  cfg.Processing.FFmpegBin,
	})

	estimator, err := NewEstimator(cfg.Processing)
	if err != nil {
		return nil, err
	}

	reducer, err := pitch.ReducerByName(cfg.Processing.Reducer, cfg.Processing.MinConfidence)
	if err != nil {
		return nil, err
	}

	matcher, err := NewMatcher(cfg.Tuning)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		Decoder:   decoder,
		Estimator: estimator,
		Reducer:   reducer,
		Matcher:   matcher,
	}, nil
}

// NewEstimator returns the configured pitch estimator
func NewEstimator(cfg config.ProcessingConfig) (pitch.Estimator, error) {
	switch cfg.Estimator {
	case "", "yin":
		return pitch.NewYIN(pitch.YINConfig{}), nil
	case "crepe":
		return pitch.NewCrepe(cfg.PythonCmd, cfg.CrepeScript), nil
	default:
		return nil, fmt.Errorf("unknown estimator %q", cfg.Estimator)
	}
}

// NewMatcher uses the literal default table unless a reference A4 is configured
func NewMatcher(cfg config.TuningConfig) (*tuning.Matcher, error) {
	table := tuning.DefaultTable()
	if cfg.ReferenceA4 > 0 {
		t, err := tuning.EqualTemperedTable(cfg.ReferenceA4, lowMIDI, highMIDI)
		if err != nil {
			return nil, fmt.Errorf("failed to build reference table: %w", err)
		}
		table = t
	}

	return tuning.NewMatcher(table, tuning.WithTolerance(cfg.ToleranceCents))
}
