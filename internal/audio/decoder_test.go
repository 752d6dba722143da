package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sineClip(freq float64, sampleRate int, seconds float64) *Clip {
	n := int(float64(sampleRate) * seconds)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return &Clip{Samples: samples, SampleRate: sampleRate}
}

// wavBytes encodes clip through a temp file since the encoder needs to seek
func wavBytes(t *testing.T, clip *Clip) []byte {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "clip_*.wav")
	require.NoError(t, err)
	require.NoError(t, EncodeWAV(f, clip))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	return data
}

func chunk(id string, size int32, body []byte) []byte {
	b := make([]byte, 8, 8+len(body))
	copy(b, id)
	binary.LittleEndian.PutUint32(b[4:], uint32(size))
	return append(b, body...)
}

func fmtChunk(channels int16, rate int32, bits, blockAlign int16) []byte {
	body := make([]byte, 16)
	binary.LittleEndian.PutUint16(body[0:], 1)
	binary.LittleEndian.PutUint16(body[2:], uint16(channels))
	binary.LittleEndian.PutUint32(body[4:], uint32(rate))
	binary.LittleEndian.PutUint32(body[8:], uint32(rate)*uint32(blockAlign))
	binary.LittleEndian.PutUint16(body[12:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(body[14:], uint16(bits))
	return chunk("fmt ", 16, body)
}

func pcm16(samples ...int16) []byte {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return b
}

// riff assembles a WAVE file from raw chunks so header fields can be corrupted
func riff(chunks ...[]byte) []byte {
	out := []byte("RIFF\x00\x00\x00\x00WAVE")
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func TestDecode_WAVResamples(t *testing.T) {
	data := wavBytes(t, sineClip(440, 44100, 1.0))

	d := NewDecoder(DecoderConfig{SampleRate: 16000})
	clip, err := d.Decode(context.Background(), data, "audio/wav")
	require.NoError(t, err)

	assert.Equal(t, 16000, clip.SampleRate)
	assert.InDelta(t, 16000, len(clip.Samples), 160)
	assert.InDelta(t, time.Second, clip.Duration(), float64(10*time.Millisecond))

	peak := 0.0
	for _, s := range clip.Samples {
		peak = math.Max(peak, math.Abs(s))
	}
	assert.InDelta(t, 0.5, peak, 0.05)
}

func TestDecode_SignatureBeatsContentType(t *testing.T) {
	data := wavBytes(t, sineClip(440, 16000, 0.25))

	d := NewDecoder(DecoderConfig{FFmpegBin: "ffmpeg-not-installed"})
	clip, err := d.Decode(context.Background(), data, "audio/webm")
	require.NoError(t, err)
	assert.Len(t, clip.Samples, 4000)
}

func TestDecode_TruncatesLongClips(t *testing.T) {
	data := wavBytes(t, sineClip(220, 16000, 2.0))

	d := NewDecoder(DecoderConfig{MaxDuration: 500 * time.Millisecond})
	clip, err := d.Decode(context.Background(), data, "wav")
	require.NoError(t, err)
	assert.Len(t, clip.Samples, 8000)
}

func TestDecode_Errors(t *testing.T) {
	d := NewDecoder(DecoderConfig{FFmpegBin: "ffmpeg-not-installed"})

	tests := []struct {
		name    string
		data    []byte
		format  string
		wantErr error
	}{
		{"empty upload", nil, "audio/wav", ErrEmptyClip},
		{"truncated wav", []byte("RIFF\x00\x00\x00\x00WAVEjunk"), "audio/wav", ErrDecode},
		{"mislabelled webm without ffmpeg", []byte{0x1a, 0x45, 0xdf, 0xa3, 0, 0, 0, 0}, "audio/wav", ErrUnsupportedFormat},
		{"webm without ffmpeg", []byte{0x1a, 0x45, 0xdf, 0xa3, 0, 0, 0, 0}, "audio/webm;codecs=opus", ErrUnsupportedFormat},
		{"negative chunk size", riff(chunk("junk", -8, nil), fmtChunk(1, 16000, 16, 2), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"chunk past end of file", riff(chunk("LIST", 4096, []byte("INFO")), fmtChunk(1, 16000, 16, 2), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"data size past end of file", riff(fmtChunk(1, 16000, 16, 2), chunk("data", 1<<20, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"zero sample rate", riff(fmtChunk(1, 0, 16, 2), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"negative sample rate", riff(fmtChunk(1, -16000, 16, 2), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"zero channels", riff(fmtChunk(0, 16000, 16, 0), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"zero block align", riff(fmtChunk(1, 16000, 16, 0), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"32 bit samples", riff(fmtChunk(1, 16000, 32, 4), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"short fmt chunk", riff(chunk("fmt ", 4, []byte{1, 0, 1, 0}), chunk("data", 4, pcm16(1, 2))), "audio/wav", ErrDecode},
		{"data before fmt", riff(chunk("data", 4, pcm16(1, 2)), fmtChunk(1, 16000, 16, 2)), "audio/wav", ErrDecode},
		{"empty data chunk", riff(fmtChunk(1, 16000, 16, 2), chunk("data", 0, nil)), "audio/wav", ErrEmptyClip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Decode(context.Background(), tt.data, tt.format)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDecode_FullScalePCM(t *testing.T) {
	data := riff(fmtChunk(1, 16000, 16, 2), chunk("data", 8, pcm16(math.MaxInt16, math.MinInt16, 16384, 0)))

	clip, err := NewDecoder(DecoderConfig{}).Decode(context.Background(), data, "audio/wav")
	require.NoError(t, err)
	require.Len(t, clip.Samples, 4)
	assert.InDelta(t, 1.0, clip.Samples[0], 1e-4)
	assert.InDelta(t, -1.0, clip.Samples[1], 1e-9)
	assert.InDelta(t, 0.5, clip.Samples[2], 1e-4)
	assert.Zero(t, clip.Samples[3])
	for _, s := range clip.Samples {
		assert.LessOrEqual(t, math.Abs(s), 1.0)
	}
}

func TestRecoverDecode(t *testing.T) {
	err := recoverDecode(func() error { panic("index out of range") })
	assert.ErrorContains(t, err, "index out of range")

	want := errors.New("bad stream")
	assert.Equal(t, want, recoverDecode(func() error { return want }))
}

func TestFormatLabel(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": "webm",
		"audio/ogg":              "ogg",
		".WAV":                   "wav",
		"audio/x-wav":            "wav",
		"audio/mpeg":             "mp3",
		"flac":                   "flac",
		"":                       "unknown",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatLabel(in), in)
	}

	assert.Equal(t, ".webm", extension("audio/webm"))
	assert.Equal(t, ".audio", extension("application/octet-stream"))
	assert.Equal(t, ".audio", extension("audio/wav"))
}
