package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/RMahshie/tunecheck/internal/processing"
	"github.com/RMahshie/tunecheck/internal/repository"
	"github.com/RMahshie/tunecheck/internal/storage"
	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TuningHandler handles clip analysis and reading history requests
type TuningHandler struct {
	svc   processing.TuningService
	repo  repository.ReadingRepository // nil when history is disabled
	store storage.ClipStore            // nil when archival is disabled
}

// NewTuningHandler creates a new tuning handler
func NewTuningHandler(svc processing.TuningService, repo repository.ReadingRepository, store storage.ClipStore) *TuningHandler {
	return &TuningHandler{
		svc:   svc,
		repo:  repo,
		store: store,
	}
}

// ProcessAudio analyzes one uploaded clip and returns tuning feedback
func (h *TuningHandler) ProcessAudio(ctx context.Context, req *models.ProcessAudioRequest) (*models.ProcessAudioResponse, error) {
	form := req.RawBody.Data()
	if form == nil || !form.AudioData.IsSet {
		return nil, models.NewAPIError(http.StatusBadRequest, models.KindMissingAudio, "No audio file provided")
	}
	defer form.AudioData.Close()

	data, err := io.ReadAll(form.AudioData)
	if err != nil {
		return nil, models.NewAPIError(http.StatusBadRequest, models.KindInvalidAudio, "Failed to read audio file")
	}

	log.Info().
		Str("sessionID", req.SessionID).
		Str("filename", form.AudioData.Filename).
		Str("contentType", form.AudioData.ContentType).
		Int("size", len(data)).
		Msg("Processing audio upload")

	reading, err := h.svc.Analyze(ctx, processing.ClipUpload{
		SessionID:   req.SessionID,
		Filename:    form.AudioData.Filename,
		ContentType: form.AudioData.ContentType,
		Data:        data,
	})
	if err != nil {
		return nil, analysisError(err)
	}

	return &models.ProcessAudioResponse{
		Body: reading.ToResponseBody(h.repo != nil),
	}, nil
}

// Match judges a known frequency against the reference table
func (h *TuningHandler) Match(ctx context.Context, req *models.MatchRequest) (*models.MatchResponse, error) {
	result, err := h.svc.MatchFrequency(req.Body.Frequency)
	if err != nil {
		if errors.Is(err, tuning.ErrInvalidFrequency) {
			return nil, models.NewAPIError(http.StatusUnprocessableEntity, models.KindInvalidFrequency,
				"Frequency must be a positive, finite number of Hz")
		}
		return nil, models.NewAPIError(http.StatusInternalServerError, models.KindInternal, err.Error())
	}
	return &models.MatchResponse{Body: result}, nil
}

// ListNotes returns the reference table in order
func (h *TuningHandler) ListNotes(ctx context.Context, _ *struct{}) (*models.NotesResponse, error) {
	m := h.svc.Matcher()
	resp := &models.NotesResponse{}
	resp.Body.ToleranceCents = m.Tolerance()
	resp.Body.Notes = m.Table().Notes()
	return resp, nil
}

// ListReadings returns a session's readings, newest first
func (h *TuningHandler) ListReadings(ctx context.Context, req *models.ListReadingsRequest) (*models.ListReadingsResponse, error) {
	if h.repo == nil {
		return nil, historyDisabled()
	}

	readings, err := h.repo.ListBySession(ctx, req.SessionID, req.Limit)
	if err != nil {
		log.Error().Err(err).Str("sessionID", req.SessionID).Msg("Failed to list readings")
		return nil, models.NewAPIError(http.StatusInternalServerError, models.KindStorageFailed, "Failed to load readings")
	}
	if readings == nil {
		readings = []*models.Reading{}
	}

	resp := &models.ListReadingsResponse{}
	resp.Body.SessionID = req.SessionID
	resp.Body.Readings = readings
	return resp, nil
}

// GetReading returns one stored reading
func (h *TuningHandler) GetReading(ctx context.Context, req *models.GetReadingRequest) (*models.GetReadingResponse, error) {
	if h.repo == nil {
		return nil, historyDisabled()
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		return nil, models.NewAPIError(http.StatusBadRequest, models.KindBadRequest, "Invalid reading ID")
	}

	reading, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewAPIError(http.StatusNotFound, models.KindNotFound, "Reading not found")
		}
		log.Error().Err(err).Str("readingID", req.ID).Msg("Failed to load reading")
		return nil, models.NewAPIError(http.StatusInternalServerError, models.KindStorageFailed, "Failed to load reading")
	}

	return &models.GetReadingResponse{Body: reading}, nil
}

// GetReadingAudio returns a download link for a reading's archived clip
func (h *TuningHandler) GetReadingAudio(ctx context.Context, req *models.GetReadingRequest) (*models.GetReadingAudioResponse, error) {
	if h.store == nil {
		return nil, models.NewAPIError(http.StatusServiceUnavailable, models.KindArchiveDisabled,
			"Clip archive is not configured")
	}

	readingResp, err := h.GetReading(ctx, req)
	if err != nil {
		return nil, err
	}
	reading := readingResp.Body
	if reading.AudioKey == nil {
		return nil, models.NewAPIError(http.StatusNotFound, models.KindNotFound, "No audio archived for this reading")
	}

	url, err := h.store.GenerateDownloadURL(ctx, *reading.AudioKey)
	if err != nil {
		log.Error().Err(err).Str("readingID", reading.ID).Msg("Failed to generate download URL")
		return nil, models.NewAPIError(http.StatusInternalServerError, models.KindStorageFailed, "Failed to generate download URL")
	}

	resp := &models.GetReadingAudioResponse{}
	resp.Body.ReadingID = reading.ID
	resp.Body.URL = url
	return resp, nil
}

func historyDisabled() error {
	return models.NewAPIError(http.StatusServiceUnavailable, models.KindHistoryDisabled,
		"Reading history is not configured")
}

// analysisError maps a processing failure to its response
func analysisError(err error) error {
	kind := processing.KindOf(err)
	switch kind {
	case processing.KindInvalidAudio:
		return models.NewAPIError(http.StatusBadRequest, models.KindInvalidAudio,
			"Could not decode the recording. Please try again.")
	case processing.KindNoPitch:
		return models.NewAPIError(http.StatusUnprocessableEntity, models.KindNoPitch,
			"No pitch detected. Play a sustained note closer to the microphone.")
	case processing.KindEstimatorFailed:
		log.Error().Err(err).Msg("Pitch estimator failed")
		return models.NewAPIError(http.StatusBadGateway, models.KindEstimatorFailed, "Pitch estimator failed")
	case processing.KindStorageFailed:
		log.Error().Err(err).Msg("Failed to record reading")
		return models.NewAPIError(http.StatusInternalServerError, models.KindStorageFailed, "Failed to record reading")
	default:
		log.Error().Err(err).Msg("Audio processing failed")
		return models.NewAPIError(http.StatusInternalServerError, models.KindInternal, err.Error())
	}
}
