package api

import (
	"net/http"

	"github.com/RMahshie/tunecheck/internal/api/handlers"
	"github.com/RMahshie/tunecheck/internal/processing"
	"github.com/RMahshie/tunecheck/internal/repository"
	"github.com/RMahshie/tunecheck/internal/storage"
	"github.com/danielgtaylor/huma/v2"
)

// DefaultMaxUploadBytes caps the process_audio request body
const DefaultMaxUploadBytes = 10 << 20

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, svc processing.TuningService, readingRepo repository.ReadingRepository, clipStore storage.ClipStore, maxUploadBytes int64) {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	// Initialize handlers
	tuningHandler := handlers.NewTuningHandler(svc, readingRepo, clipStore)

	// Register tuning routes
	huma.Register(api, huma.Operation{
		OperationID:  "processAudio",
		Method:       http.MethodPost,
		Path:         ProcessAudioPath,
		Summary:      "Analyze a recorded clip",
		Description:  "Estimates the pitch of an uploaded clip and reports the closest note and cents offset",
		Tags:         []string{"Tuning"},
		MaxBodyBytes: maxUploadBytes,
	}, tuningHandler.ProcessAudio)

	huma.Register(api, huma.Operation{
		OperationID: "matchFrequency",
		Method:      http.MethodPost,
		Path:        "/api/match",
		Summary:     "Match a frequency",
		Description: "Judges a known frequency against the reference table",
		Tags:        []string{"Tuning"},
	}, tuningHandler.Match)

	huma.Register(api, huma.Operation{
		OperationID: "listNotes",
		Method:      http.MethodGet,
		Path:        "/api/notes",
		Summary:     "List reference notes",
		Tags:        []string{"Tuning"},
	}, tuningHandler.ListNotes)

	// Register history routes
	huma.Register(api, huma.Operation{
		OperationID: "listSessionReadings",
		Method:      http.MethodGet,
		Path:        "/api/sessions/{session_id}/readings",
		Summary:     "List session readings",
		Description: "Returns the readings recorded for a session, newest first",
		Tags:        []string{"History"},
	}, tuningHandler.ListReadings)

	huma.Register(api, huma.Operation{
		OperationID: "getReading",
		Method:      http.MethodGet,
		Path:        "/api/readings/{id}",
		Summary:     "Get a reading",
		Tags:        []string{"History"},
	}, tuningHandler.GetReading)

	huma.Register(api, huma.Operation{
		OperationID: "getReadingAudio",
		Method:      http.MethodGet,
		Path:        "/api/readings/{id}/audio",
		Summary:     "Get archived clip",
		Description: "Returns a pre-signed download URL for the clip behind a reading",
		Tags:        []string{"History"},
	}, tuningHandler.GetReadingAudio)
}
