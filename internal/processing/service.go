package processing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RMahshie/tunecheck/internal/audio"
	"github.com/RMahshie/tunecheck/internal/pitch"
	"github.com/RMahshie/tunecheck/internal/repository"
	"github.com/RMahshie/tunecheck/internal/storage"
	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ClipUpload is one recorded clip submitted for analysis
type ClipUpload struct {
	SessionID   string
	Filename    string
	ContentType string
	Data        []byte
}

type TuningService interface {
	Analyze(ctx context.Context, upload ClipUpload) (*models.Reading, error)
	MatchFrequency(frequency float64) (tuning.Result, error)
	Matcher() *tuning.Matcher
}

// Config holds processing service configuration
type Config struct {
	EstimatorTimeout time.Duration
}

type tuningService struct {
	decoder    audio.Decoder
	estimator  pitch.Estimator
	reducer    pitch.Reducer
	matcher    *tuning.Matcher
	store      storage.ClipStore            // nil disables archival
	repository repository.ReadingRepository // nil disables history
	timeout    time.Duration
}

func NewTuningService(
	decoder audio.Decoder,
	estimator pitch.Estimator,
	reducer pitch.Reducer,
	matcher *tuning.Matcher,
	store storage.ClipStore,
	repo repository.ReadingRepository,
	cfg Config,
) TuningService {
	if cfg.EstimatorTimeout <= 0 {
		cfg.EstimatorTimeout = 30 * time.Second
	}
	return &tuningService{
		decoder:    decoder,
		estimator:  estimator,
		reducer:    reducer,
		matcher:    matcher,
		store:      store,
		repository: repo,
		timeout:    cfg.EstimatorTimeout,
	}
}

func (s *tuningService) Matcher() *tuning.Matcher {
	return s.matcher
}

func (s *tuningService) MatchFrequency(frequency float64) (tuning.Result, error) {
	return s.matcher.Match(frequency)
}

func (s *tuningService) Analyze(ctx context.Context, upload ClipUpload) (*models.Reading, error) {
	// Step 1: Decode and resample
	clip, err := s.decoder.Decode(ctx, upload.Data, upload.ContentType)
	if err != nil {
		return nil, classify(err)
	}

	// Step 2: Estimate pitch frames
	estCtx, cancel := context.WithTimeout(ctx, s.timeout)
	frames, err := s.estimator.Estimate(estCtx, clip.Samples, clip.SampleRate)
	cancel()
	if err != nil {
		return nil, classify(err)
	}

	// Step 3: Reduce to one frequency and match
	frequency, err := s.reducer.Reduce(frames)
	if err != nil {
		return nil, classify(err)
	}
	result, err := s.matcher.Match(frequency)
	if err != nil {
		return nil, classify(err)
	}

	log.Info().
		Str("estimator", s.estimator.Name()).
		Int("frames", len(frames)).
		Dur("duration", clip.Duration()).
		Float64("frequency", frequency).
		Str("note", result.Note).
		Float64("cents", result.Cents).
		Msg("Clip analyzed")

	reading := &models.Reading{
		ID:                 uuid.New().String(),
		SessionID:          upload.SessionID,
		PredictedFrequency: result.Frequency,
		ClosestNote:        result.Note,
		ReferenceFrequency: result.Reference,
		CentsDifference:    result.Cents,
		Judgment:           result.Judgment,
		Feedback:           result.Feedback,
		Estimator:          s.estimator.Name(),
		FrameCount:         len(frames),
		CreatedAt:          time.Now().UTC(),
	}

	// Step 4: Archive the clip; a failed archive does not fail the reading
	if s.store != nil {
		key := fmt.Sprintf("clips/%s%s", reading.ID, clipExtension(upload.ContentType))
		contentType := baseContentType(upload.ContentType)
		if err := s.store.PutClip(ctx, key, contentType, upload.Data); err != nil {
			log.Warn().Err(err).Str("readingID", reading.ID).Msg("Failed to archive clip")
		} else {
			reading.AudioKey = &key
		}
	}

	// Step 5: Record history
	if s.repository != nil {
		if err := s.repository.Create(ctx, reading); err != nil {
			if reading.AudioKey != nil {
				if delErr := s.store.DeleteClip(ctx, *reading.AudioKey); delErr != nil {
					log.Warn().Err(delErr).Str("key", *reading.AudioKey).Msg("Failed to remove orphaned clip")
				}
			}
			return nil, &Error{Kind: KindStorageFailed, Err: err}
		}
	}

	return reading, nil
}

// baseContentType strips parameters such as ";codecs=opus"
func baseContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if contentType == "" {
		return "application/octet-stream"
	}
	return contentType
}

func clipExtension(contentType string) string {
	switch baseContentType(contentType) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/flac":
		return ".flac"
	case "audio/mpeg":
		return ".mp3"
	case "audio/mp4":
		return ".m4a"
	default:
		return ".audio"
	}
}
