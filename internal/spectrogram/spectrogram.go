// Package spectrogram renders STFT log-magnitude images of audio clips for
// building note classification datasets.
package spectrogram

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"math/cmplx"

	"github.com/r9y9/gossp/stft"
)

var ErrTooShort = errors.New("clip shorter than one analysis frame")

// Options controls the analysis and image scaling
type Options struct {
	SampleRate   int     // required
	FrameLen     int     // FFT size, default 1024
	FrameShift   int     // hop size, default 256
	MaxFrequency float64 // rows above this frequency are dropped, 0 keeps up to Nyquist
	DynamicRange float64 // dB below the peak mapped to black, default 80
}

func (o *Options) withDefaults() {
	if o.FrameLen <= 0 {
		o.FrameLen = 1024
	}
	if o.FrameShift <= 0 {
		o.FrameShift = 256
	}
	if o.DynamicRange <= 0 {
		o.DynamicRange = 80
	}
}

// Render returns one column per frame and one row per frequency bin, with the
// lowest bin on the bottom row.
func Render(samples []float64, opts Options) (*image.Gray, error) {
	opts.withDefaults()
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", opts.SampleRate)
	}
	if len(samples) < opts.FrameLen {
		return nil, fmt.Errorf("%w: %d samples, frame is %d", ErrTooShort, len(samples), opts.FrameLen)
	}

	spectrum := stft.New(opts.FrameShift, opts.FrameLen).STFT(samples)

	bins := opts.FrameLen/2 + 1
	if opts.MaxFrequency > 0 {
		binHz := float64(opts.SampleRate) / float64(opts.FrameLen)
		if n := int(opts.MaxFrequency/binHz) + 1; n < bins {
			bins = n
		}
	}

	db := make([][]float64, len(spectrum))
	peak := math.Inf(-1)
	for i, frame := range spectrum {
		db[i] = make([]float64, bins)
		for k := 0; k < bins && k < len(frame); k++ {
			v := 20 * math.Log10(cmplx.Abs(frame[k])+1e-10)
			db[i][k] = v
			if v > peak {
				peak = v
			}
		}
	}

	floor := peak - opts.DynamicRange
	img := image.NewGray(image.Rect(0, 0, len(db), bins))
	for x, column := range db {
		for k, v := range column {
			level := (v - floor) / opts.DynamicRange
			level = math.Max(0, math.Min(1, level))
			img.SetGray(x, bins-1-k, color.Gray{Y: uint8(math.Round(255 * level))})
		}
	}
	return img, nil
}

// WritePNG encodes img as PNG
func WritePNG(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("failed to encode spectrogram: %w", err)
	}
	return nil
}
