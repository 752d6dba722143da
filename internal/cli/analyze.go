package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/RMahshie/tunecheck/internal/app"
	"github.com/RMahshie/tunecheck/internal/audio"
	"github.com/RMahshie/tunecheck/internal/config"
	"github.com/RMahshie/tunecheck/internal/pitch"
	"github.com/RMahshie/tunecheck/internal/processing"
	"github.com/RMahshie/tunecheck/internal/spectrogram"
	"github.com/spf13/cobra"
)

var (
	estimatorName string
	reducerName   string
	minConfidence float64
	pythonCmd     string
	crepeScript   string
	ffmpegBin     string
	sampleRate    int
	asJSON        bool

	maxFrequency float64
	frameLen     int
	frameShift   int
)

func init() {
	for _, c := range []*cobra.Command{analyzeCmd, spectrogramCmd} {
		c.Flags().StringVar(&ffmpegBin, "ffmpeg", "ffmpeg", "ffmpeg binary for formats other than WAV and FLAC")
		c.Flags().IntVar(&sampleRate, "rate", audio.DefaultSampleRate, "analysis sample rate in Hz")
	}

	analyzeCmd.Flags().StringVar(&estimatorName, "estimator", "yin", "pitch estimator (yin or crepe)")
	analyzeCmd.Flags().StringVar(&reducerName, "reducer", "voiced", "frame reducer (voiced or mean)")
	analyzeCmd.Flags().Float64Var(&minConfidence, "min-confidence", pitch.DefaultMinConfidence, "voicing cutoff for the voiced reducer")
	analyzeCmd.Flags().StringVar(&pythonCmd, "python", "python3", "python interpreter for the crepe estimator")
	analyzeCmd.Flags().StringVar(&crepeScript, "crepe-script", "scripts/crepe_predict.py", "crepe prediction script")
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "print the full reading as JSON")

	spectrogramCmd.Flags().Float64Var(&maxFrequency, "max-freq", 0, "drop rows above this frequency in Hz")
	spectrogramCmd.Flags().IntVar(&frameLen, "frame-len", 1024, "FFT size")
	spectrogramCmd.Flags().IntVar(&frameShift, "frame-shift", 256, "hop size")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(spectrogramCmd)
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Estimates the pitch of a recording and reports tuning feedback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		pipeline, err := app.NewPipeline(&config.Config{
			Processing: config.ProcessingConfig{
				Estimator:        estimatorName,
				Reducer:          reducerName,
				MinConfidence:    minConfidence,
				PythonCmd:        pythonCmd,
				CrepeScript:      crepeScript,
				FFmpegBin:        ffmpegBin,
				TargetSampleRate: sampleRate,
			},
			Tuning: config.TuningConfig{
				ToleranceCents: toleranceCents,
				ReferenceA4:    referenceA4,
			},
		})
		if err != nil {
			return err
		}

		svc := processing.NewTuningService(pipeline.Decoder, pipeline.Estimator, pipeline.Reducer,
			pipeline.Matcher, nil, nil, processing.Config{})
		reading, err := svc.Analyze(cmd.Context(), processing.ClipUpload{
			Filename:    filepath.Base(args[0]),
			ContentType: contentTypeFor(args[0]),
			Data:        data,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(reading.ToResponseBody(false))
		}
		fmt.Fprintf(out, "%.2f Hz: %s\n", reading.PredictedFrequency, reading.Feedback)
		return nil
	},
}

var spectrogramCmd = &cobra.Command{
	Use:   "spectrogram <input> <output.png>",
	Short: "Writes a log-magnitude spectrogram of a recording as PNG",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		decoder := audio.NewDecoder(audio.DecoderConfig{SampleRate: sampleRate, FFmpegBin: ffmpegBin})
		clip, err := decoder.Decode(cmd.Context(), data, contentTypeFor(args[0]))
		if err != nil {
			return err
		}

		img, err := spectrogram.Render(clip.Samples, spectrogram.Options{
			SampleRate:   clip.SampleRate,
			FrameLen:     frameLen,
			FrameShift:   frameShift,
			MaxFrequency: maxFrequency,
		})
		if err != nil {
			return err
		}

		f, err := os.Create(args[1])
		if err != nil {
			return err
		}
		if err := spectrogram.WritePNG(f, img); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "wrote %dx%d spectrogram to %s\n", img.Bounds().Dx(), img.Bounds().Dy(), args[1])
		return nil
	},
}

// contentTypeFor guesses a MIME type from the file extension
func contentTypeFor(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
