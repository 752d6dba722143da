package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/rs/zerolog/log"
)

// ProcessAudioPath is the upload endpoint guarded by LimitUploadBody
const ProcessAudioPath = "/process_audio"

// LimitUploadBody returns a Chi middleware that caps the process_audio body.
// huma's MaxBodyBytes does not cover multipart forms.
func LimitUploadBody(maxBytes int64) func(next http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != ProcessAudioPath || r.Body == nil || r.Body == http.NoBody {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				uploadTooLarge(w, r.ContentLength, maxBytes)
				return
			}

			if r.ContentLength > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
				next.ServeHTTP(w, r)
				return
			}

			// Unknown length: buffer up to one byte past the limit
			data, err := io.ReadAll(io.LimitReader(r.Body, maxBytes+1))
			r.Body.Close()
			if err != nil {
				writeAPIError(w, models.NewAPIError(http.StatusBadRequest, models.KindBadRequest, "Failed to read request body"))
				return
			}
			if int64(len(data)) > maxBytes {
				uploadTooLarge(w, -1, maxBytes)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(data))
			r.ContentLength = int64(len(data))
			next.ServeHTTP(w, r)
		})
	}
}

func uploadTooLarge(w http.ResponseWriter, size, maxBytes int64) {
	log.Warn().Int64("size", size).Int64("limit", maxBytes).Msg("Rejected oversized upload")
	writeAPIError(w, models.NewAPIError(http.StatusRequestEntityTooLarge, models.KindUploadTooLarge,
		"Recording exceeds the upload size limit"))
}

func writeAPIError(w http.ResponseWriter, apiErr *models.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	if err := json.NewEncoder(w).Encode(apiErr); err != nil {
		log.Error().Err(err).Msg("Failed to write error response")
	}
}
