package pitch

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// YINConfig holds YIN analysis parameters. Zero values take the defaults.
type YINConfig struct {
	FrameSize    int     // samples per analysis frame, default 2048
	HopSize      int     // samples between frame starts, default 160 (10 ms at 16 kHz)
	Threshold    float64 // CMND threshold, default 0.15
	MinFrequency float64 // default 50 Hz
	MaxFrequency float64 // default 2000 Hz
	SilenceRMS   float64 // frames quieter than this are unvoiced, default 0.001
}

// YIN is an in-process estimator using the YIN difference function,
// with the autocorrelation term computed by FFT.
type YIN struct {
	cfg YINConfig
}

// NewYIN creates a YIN estimator
func NewYIN(cfg YINConfig) *YIN {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 2048
	}
	if cfg.HopSize <= 0 {
		cfg.HopSize = 160
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.15
	}
	if cfg.MinFrequency <= 0 {
		cfg.MinFrequency = 50
	}
	if cfg.MaxFrequency <= 0 {
		cfg.MaxFrequency = 2000
	}
	if cfg.SilenceRMS <= 0 {
		cfg.SilenceRMS = 0.001
	}
	return &YIN{cfg: cfg}
}

func (y *YIN) Name() string { return "yin" }

// Estimate analyzes every full frame of samples
func (y *YIN) Estimate(ctx context.Context, samples []float64, sampleRate int) ([]Frame, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrEstimator, sampleRate)
	}
	n := y.cfg.FrameSize
	if len(samples) < n {
		return nil, fmt.Errorf("%w: %d samples, need %d", ErrClipTooShort, len(samples), n)
	}

	frames := make([]Frame, 0, (len(samples)-n)/y.cfg.HopSize+1)
	for start := 0; start+n <= len(samples); start += y.cfg.HopSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := y.analyze(samples[start:start+n], sampleRate)
		f.Time = float64(start) / float64(sampleRate)
		frames = append(frames, f)
	}
	return frames, nil
}

func (y *YIN) analyze(x []float64, sampleRate int) Frame {
	w := len(x) / 2

	energy := 0.0
	for _, v := range x[:w] {
		energy += v * v
	}
	if math.Sqrt(energy/float64(w)) < y.cfg.SilenceRMS {
		return Frame{}
	}

	cmnd := cumulativeMeanNormalized(difference(x, energy))

	minTau := int(float64(sampleRate) / y.cfg.MaxFrequency)
	if minTau < 2 {
		minTau = 2
	}
	maxTau := int(math.Ceil(float64(sampleRate) / y.cfg.MinFrequency))
	if maxTau > w-1 {
		maxTau = w - 1
	}
	if minTau >= maxTau {
		return Frame{}
	}

	tau := -1
	for t := minTau; t < maxTau; t++ {
		if cmnd[t] < y.cfg.Threshold {
			for t+1 < maxTau && cmnd[t+1] < cmnd[t] {
				t++
			}
			tau = t
			break
		}
	}
	if tau < 0 {
		// no dip under the threshold: keep the global minimum as a low-confidence guess
		tau = minTau
		for t := minTau + 1; t < maxTau; t++ {
			if cmnd[t] < cmnd[tau] {
				tau = t
			}
		}
	}

	period := parabolic(cmnd, tau)
	return Frame{
		Frequency:  float64(sampleRate) / period,
		Confidence: math.Max(0, math.Min(1, 1-cmnd[tau])),
	}
}

// difference computes d(tau) = sum_j (x_j - x_{j+tau})^2 for tau < len(x)/2
// as r(0) + e(tau) - 2 r(tau), where r is the cross-correlation of the first
// half-frame with the frame and e the sliding energy.
func difference(x []float64, energy float64) []float64 {
	w := len(x) / 2
	size := 1
	for size < len(x)+w {
		size <<= 1
	}

	a := make([]float64, size)
	b := make([]float64, size)
	copy(a, x[:w])
	copy(b, x)

	fa := fft.FFTReal(a)
	fb := fft.FFTReal(b)
	for i := range fa {
		fa[i] = cmplx.Conj(fa[i]) * fb[i]
	}
	corr := fft.IFFT(fa)

	d := make([]float64, w)
	shifted := energy
	for tau := 0; tau < w; tau++ {
		d[tau] = energy + shifted - 2*real(corr[tau])
		if d[tau] < 0 {
			d[tau] = 0
		}
		shifted += x[tau+w]*x[tau+w] - x[tau]*x[tau]
	}
	return d
}

func cumulativeMeanNormalized(d []float64) []float64 {
	out := make([]float64, len(d))
	out[0] = 1
	sum := 0.0
	for tau := 1; tau < len(d); tau++ {
		sum += d[tau]
		if sum == 0 {
			out[tau] = 1
			continue
		}
		out[tau] = d[tau] * float64(tau) / sum
	}
	return out
}

// parabolic refines tau to the vertex of the parabola through its neighbours
func parabolic(c []float64, tau int) float64 {
	if tau <= 0 || tau >= len(c)-1 {
		return float64(tau)
	}
	s0, s1, s2 := c[tau-1], c[tau], c[tau+1]
	denom := 2 * (2*s1 - s2 - s0)
	if denom == 0 {
		return float64(tau)
	}
	return float64(tau) + (s2-s0)/denom
}
