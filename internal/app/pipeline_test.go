package app

import (
	"testing"

	"github.com/RMahshie/tunecheck/internal/config"
	"github.com/RMahshie/tunecheck/internal/pitch"
	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Processing: config.ProcessingConfig{
			Estimator:        "yin",
			Reducer:          "voiced",
			MinConfidence:    0.6,
			TargetSampleRate: 16000,
			FFmpegBin:        "ffmpeg",
		},
		Tuning: config.TuningConfig{ToleranceCents: 10},
	}
}

func TestNewPipeline(t *testing.T) {
	p, err := NewPipeline(testConfig())
	require.NoError(t, err)

	assert.Equal(t, "yin", p.Estimator.Name())
	assert.Equal(t, pitch.VoicedMeanReducer{MinConfidence: 0.6}, p.Reducer)
	assert.Equal(t, 25, p.Matcher.Table().Len())

	res, err := p.Matcher.Match(440)
	require.NoError(t, err)
	assert.Equal(t, tuning.InTune, res.Judgment)
}

func TestNewPipeline_Crepe(t *testing.T) {
	cfg := testConfig()
	cfg.Processing.Estimator = "crepe"
	cfg.Processing.Reducer = "mean"

	p, err := NewPipeline(cfg)
	require.NoError(t, err)
	assert.Equal(t, "crepe", p.Estimator.Name())
	assert.Equal(t, pitch.MeanReducer{}, p.Reducer)
}

func TestNewPipeline_Invalid(t *testing.T) {
	cfg := testConfig()
	cfg.Processing.Estimator = "spice"
	_, err := NewPipeline(cfg)
	assert.Error(t, err)

	cfg = testConfig()
	cfg.Processing.Reducer = "median"
	_, err = NewPipeline(cfg)
	assert.Error(t, err)
}

func TestNewMatcher_ReferenceA4(t *testing.T) {
	m, err := NewMatcher(config.TuningConfig{ToleranceCents: 5, ReferenceA4: 442})
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Tolerance())

	a4, ok := m.Table().Lookup("A4")
	require.True(t, ok)
	assert.Equal(t, 442.0, a4)

	// 440 Hz is about 7.85 cents flat of a 442 Hz A4
	res, err := m.Match(440)
	require.NoError(t, err)
	assert.Equal(t, "A4", res.Note)
	assert.Equal(t, tuning.Flat, res.Judgment)

}

func TestNewMatcher_RejectsTolerance(t *testing.T) {
	for _, cents := range []float64{0, -5} {
		_, err := NewMatcher(config.TuningConfig{ToleranceCents: cents})
		assert.ErrorIs(t, err, tuning.ErrInvalidTolerance, "tolerance %v", cents)
	}
}
