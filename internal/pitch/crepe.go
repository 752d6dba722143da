package pitch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/RMahshie/tunecheck/internal/audio"
	"github.com/rs/zerolog/log"
)

const waitDelay = 2 * time.Second

// Crepe runs the pretrained CREPE model through a python helper script.
// The script receives a WAV path and prints
// {"time": [...], "frequency": [...], "confidence": [...]} on stdout.
type Crepe struct {
	pythonCmd  string
	scriptPath string
}

// NewCrepe creates a subprocess-backed estimator
func NewCrepe(pythonCmd, scriptPath string) *Crepe {
	return &Crepe{pythonCmd: pythonCmd, scriptPath: scriptPath}
}

func (c *Crepe) Name() string { return "crepe" }

// Estimate writes samples to a temp WAV and runs the model on it.
// Cancellation and timeouts come from ctx.
func (c *Crepe) Estimate(ctx context.Context, samples []float64, sampleRate int) ([]Frame, error) {
	if len(samples) == 0 {
		return nil, ErrClipTooShort
	}

	tmp, err := os.CreateTemp("", "tunecheck-*.wav")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if err := audio.EncodeWAV(tmp, &audio.Clip{Samples: samples, SampleRate: sampleRate}); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write estimator input: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.pythonCmd, c.scriptPath, tmp.Name())
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// grandchildren of a killed helper can hold the output pipes open
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrEstimator, ctxErr)
		}
		log.Error().Err(err).Str("stderr", stderr.String()).Msg("CREPE script failed")
		return nil, fmt.Errorf("%w: %v: %s", ErrEstimator, err, strings.TrimSpace(stderr.String()))
	}

	var result struct {
		Time       []float64 `json:"time"`
		Frequency  []float64 `json:"frequency"`
		Confidence []float64 `json:"confidence"`
		Error      string    `json:"error,omitempty"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("%w: failed to parse output: %v", ErrEstimator, err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrEstimator, result.Error)
	}
	if len(result.Time) != len(result.Frequency) || len(result.Time) != len(result.Confidence) {
		return nil, fmt.Errorf("%w: mismatched output lengths (%d, %d, %d)",
			ErrEstimator, len(result.Time), len(result.Frequency), len(result.Confidence))
	}

	frames := make([]Frame, len(result.Time))
	for i := range frames {
		frames[i] = Frame{
			Time:       result.Time[i],
			Frequency:  result.Frequency[i],
			Confidence: result.Confidence[i],
		}
	}
	return frames, nil
}
