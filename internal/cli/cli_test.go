package cli

import (
	"bytes"
	"encoding/json"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RMahshie/tunecheck/internal/audio"
	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with flags reset to their defaults
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	toleranceCents = tuning.DefaultToleranceCents
	referenceA4 = 0
	asJSON = false
	estimatorName = "yin"
	reducerName = "voiced"
	ffmpegBin = "ffmpeg-not-installed"
	sampleRate = audio.DefaultSampleRate
	maxFrequency = 0
	frameLen = 1024
	frameShift = 256

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTone(t *testing.T, frequency float64) string {
	t.Helper()

	const rate = 22050
	samples := make([]float64, rate/2)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*frequency*float64(i)/rate)
	}

	path := filepath.Join(t.TempDir(), "note.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, audio.EncodeWAV(f, &audio.Clip{Samples: samples, SampleRate: rate}))
	require.NoError(t, f.Close())
	return path
}

func TestMatchCommand(t *testing.T) {
	out, err := run(t, "match", "445")
	require.NoError(t, err)
	assert.Equal(t, "Sharp by 19.56 cents from A4\n", out)

	out, err = run(t, "match", "440")
	require.NoError(t, err)
	assert.Equal(t, "In tune with A4 (440.00 Hz)\n", out)

	out, err = run(t, "match", "--tolerance", "5", "--a4", "442", "440")
	require.NoError(t, err)
	assert.Contains(t, out, "Flat by")

	_, err = run(t, "match", "abc")
	assert.Error(t, err)

	_, err = run(t, "match", "--", "-3")
	assert.ErrorIs(t, err, tuning.ErrInvalidFrequency)

	_, err = run(t, "--tolerance", "0", "match", "440")
	assert.ErrorIs(t, err, tuning.ErrInvalidTolerance)
}

func TestNotesCommand(t *testing.T) {
	out, err := run(t, "notes")
	require.NoError(t, err)
	assert.Contains(t, out, "A4     440.00 Hz\n")
	assert.Contains(t, out, "C#4    277.18 Hz\n")
	assert.Len(t, bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n")), 25)
}

func TestAnalyzeCommand(t *testing.T) {
	path := writeTone(t, 392)

	out, err := run(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "G4")

	out, err = run(t, "analyze", "--json", path)
	require.NoError(t, err)
	var body models.TuningResponseBody
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "G4", body.ClosestNote)
	assert.Equal(t, tuning.InTune, body.Judgment)
	assert.Nil(t, body.ReadingID)

	_, err = run(t, "analyze", filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}

func TestSpectrogramCommand(t *testing.T) {
	in := writeTone(t, 440)
	out := filepath.Join(t.TempDir(), "note.png")

	msg, err := run(t, "spectrogram", "--max-freq", "4000", in, out)
	require.NoError(t, err)
	assert.Contains(t, msg, "wrote")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 257, img.Bounds().Dy())
}
