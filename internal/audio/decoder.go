package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/flac"
	"github.com/faiface/beep/wav"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSampleRate is the rate pitch estimation runs at
	DefaultSampleRate = 16000
	// DefaultMaxDuration caps how much of an upload is analyzed
	DefaultMaxDuration = 30 * time.Second

	resampleQuality = 4
)

var (
	ErrEmptyClip         = errors.New("audio clip is empty")
	ErrDecode            = errors.New("failed to decode audio")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
)

// Clip is a decoded mono signal
type Clip struct {
	Samples    []float64
	SampleRate int
}

// Duration returns the clip length
func (c *Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Decoder turns uploaded audio bytes into mono clips at a fixed sample rate
type Decoder interface {
	Decode(ctx context.Context, data []byte, format string) (*Clip, error)
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	SampleRate  int
	MaxDuration time.Duration
	FFmpegBin   string // used for containers beep cannot read (webm, ogg, mp3)
}

type decoder struct {
	sampleRate  int
	maxDuration time.Duration
	ffmpegBin   string
}

// NewDecoder creates a decoder, filling zero values with defaults
func NewDecoder(cfg DecoderConfig) Decoder {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}
	if cfg.FFmpegBin == "" {
		cfg.FFmpegBin = "ffmpeg"
	}
	return &decoder{
		sampleRate:  cfg.SampleRate,
		maxDuration: cfg.MaxDuration,
		ffmpegBin:   cfg.FFmpegBin,
	}
}

// Decode reads WAV and FLAC natively and hands everything else to ffmpeg.
// format is a MIME type or file extension, used only to name ffmpeg's input.
func (d *decoder) Decode(ctx context.Context, data []byte, format string) (*Clip, error) {
	if len(data) == 0 {
		return nil, ErrEmptyClip
	}

	kind := sniffFormat(data)
	if kind == "" {
		wavData, err := d.transcode(ctx, data, format)
		if err != nil {
			return nil, err
		}
		data, kind = wavData, "wav"
	}
	if kind == "wav" {
		if err := checkWAVHeader(data); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	var (
		samples []float64
		f       beep.Format
	)
	err := recoverDecode(func() error {
		var (
			stream beep.StreamSeekCloser
			err    error
		)
		if kind == "flac" {
			stream, f, err = flac.Decode(bytes.NewReader(data))
		} else {
			stream, f, err = wav.Decode(bytes.NewReader(data))
		}
		if err != nil {
			return err
		}
		defer stream.Close()

		if f.SampleRate <= 0 || f.NumChannels <= 0 {
			return fmt.Errorf("invalid format: %d Hz, %d channels", f.SampleRate, f.NumChannels)
		}

		var src beep.Streamer = stream
		if int(f.SampleRate) != d.sampleRate {
			src = beep.Resample(resampleQuality, f.SampleRate, beep.SampleRate(d.sampleRate), stream)
		}

		gain := 1.0
		if kind == "wav" {
			gain = wavGain(f.Precision)
		}
		samples, err = d.drain(src, gain)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyClip
	}

	log.Debug().
		Str("container", kind).
		Int("sourceRate", int(f.SampleRate)).
		Int("channels", f.NumChannels).
		Int("samples", len(samples)).
		Msg("Decoded audio clip")

	return &Clip{Samples: samples, SampleRate: d.sampleRate}, nil
}

// recoverDecode turns a panic inside beep into an error
func recoverDecode(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return fn()
}

// wavGain undoes beep's wav decoder dividing signed PCM by 2^bits-1
// instead of 2^(bits-1), which halves 16 and 24 bit signals.
func wavGain(precision int) float64 {
	switch precision {
	case 2:
		return float64(1<<16-1) / (1 << 15)
	case 3:
		return float64(1<<24-1) / (1 << 23)
	}
	return 1
}

// drain downmixes the stream to mono in [-1, 1], stopping at maxDuration
func (d *decoder) drain(s beep.Streamer, gain float64) ([]float64, error) {
	limit := int(d.maxDuration.Seconds() * float64(d.sampleRate))
	out := make([]float64, 0, d.sampleRate)
	buf := make([][2]float64, 512)

	for len(out) < limit {
		n, ok := s.Stream(buf)
		for i := 0; i < n && len(out) < limit; i++ {
			out = append(out, math.Max(-1, math.Min(1, gain*(buf[i][0]+buf[i][1])/2)))
		}
		if !ok {
			break
		}
	}
	return out, s.Err()
}

// checkWAVHeader walks the RIFF chunks up to the data chunk and rejects
// layouts beep would misread or panic on.
func checkWAVHeader(data []byte) error {
	pos := 12
	sawFormat := false
	for {
		if len(data)-pos < 8 {
			return errors.New("truncated chunk header")
		}
		id := string(data[pos : pos+4])
		size := int64(int32(binary.LittleEndian.Uint32(data[pos+4 : pos+8])))
		pos += 8
		if size < 0 || size > int64(len(data)-pos) {
			return fmt.Errorf("%q chunk size %d exceeds the %d bytes left", id, size, len(data)-pos)
		}

		switch id {
		case "fmt ":
			if err := checkWAVFormat(data[pos : pos+int(size)]); err != nil {
				return err
			}
			sawFormat = true
		case "data":
			if !sawFormat {
				return errors.New("data chunk before fmt chunk")
			}
			return nil
		}
		pos += int(size + size%2)
	}
}

func checkWAVFormat(chunk []byte) error {
	if len(chunk) < 16 {
		return fmt.Errorf("fmt chunk is %d bytes", len(chunk))
	}
	formatType := int16(binary.LittleEndian.Uint16(chunk[0:2]))
	channels := int16(binary.LittleEndian.Uint16(chunk[2:4]))
	rate := int32(binary.LittleEndian.Uint32(chunk[4:8]))
	blockAlign := int16(binary.LittleEndian.Uint16(chunk[12:14]))
	bits := int16(binary.LittleEndian.Uint16(chunk[14:16]))

	switch {
	case formatType == -2 && len(chunk) < 40:
		return fmt.Errorf("extensible fmt chunk is %d bytes", len(chunk))
	case channels <= 0:
		return fmt.Errorf("%d channels", channels)
	case rate <= 0:
		return fmt.Errorf("sample rate %d Hz", rate)
	case bits != 8 && bits != 16 && bits != 24:
		return fmt.Errorf("%d bits per sample", bits)
	case int(blockAlign) != int(channels)*int(bits)/8:
		return fmt.Errorf("block align %d for %d channels of %d bits", blockAlign, channels, bits)
	}
	return nil
}

// transcode converts data to 16-bit mono WAV at the target rate with ffmpeg
func (d *decoder) transcode(ctx context.Context, data []byte, format string) ([]byte, error) {
	if _, err := exec.LookPath(d.ffmpegBin); err != nil {
		return nil, fmt.Errorf("%w: %s needs %s", ErrUnsupportedFormat, formatLabel(format), d.ffmpegBin)
	}

	dir, err := os.MkdirTemp("", "tunecheck-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input"+extension(format))
	out := filepath.Join(dir, "output.wav")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, d.ffmpegBin,
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-ac", "1",
		"-ar", fmt.Sprint(d.sampleRate),
		"-acodec", "pcm_s16le",
		"-y", out)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrDecode, err, strings.TrimSpace(string(output)))
	}

	return os.ReadFile(out)
}

// EncodeWAV writes clip as 16-bit mono PCM
func EncodeWAV(w io.WriteSeeker, clip *Clip) error {
	pos := 0
	s := beep.StreamerFunc(func(buf [][2]float64) (int, bool) {
		if pos >= len(clip.Samples) {
			return 0, false
		}
		n := 0
		for ; n < len(buf) && pos < len(clip.Samples); n++ {
			buf[n][0] = clip.Samples[pos]
			buf[n][1] = clip.Samples[pos]
			pos++
		}
		return n, true
	})

	return wav.Encode(w, s, beep.Format{
		SampleRate:  beep.SampleRate(clip.SampleRate),
		NumChannels: 1,
		Precision:   2,
	})
}

// sniffFormat recognizes the containers decoded natively. Browsers often label
// MediaRecorder output as audio/wav, so the declared type is never trusted here.
func sniffFormat(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return "flac"
	}
	return ""
}

// formatLabel normalizes "audio/webm;codecs=opus", ".webm" and "webm" to "webm"
func formatLabel(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if i := strings.IndexByte(f, ';'); i >= 0 {
		f = f[:i]
	}
	if i := strings.LastIndexByte(f, '/'); i >= 0 {
		f = f[i+1:]
	}
	f = strings.TrimPrefix(f, ".")
	switch f {
	case "x-wav", "wave", "vnd.wave":
		return "wav"
	case "x-flac":
		return "flac"
	case "mpeg", "mp3":
		return "mp3"
	case "":
		return "unknown"
	}
	return f
}

func extension(format string) string {
	switch l := formatLabel(format); l {
	case "unknown", "octet-stream", "wav", "flac":
		return ".audio"
	default:
		return "." + l
	}
}
