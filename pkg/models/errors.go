package models

import "net/http"

// Error kinds returned in APIError.Kind
const (
	KindBadRequest       = "bad_request"
	KindMissingAudio     = "missing_audio"
	KindInvalidAudio     = "invalid_audio"
	KindInvalidFrequency = "invalid_frequency"
	KindNoPitch          = "no_pitch"
	KindEstimatorFailed  = "estimator_failed"
	KindStorageFailed    = "storage_failed"
	KindHistoryDisabled  = "history_disabled"
	KindArchiveDisabled  = "archive_disabled"
	KindNotFound         = "not_found"
	KindUploadTooLarge   = "upload_too_large"
	KindUnavailable      = "unavailable"
	KindValidation       = "validation_failed"
	KindInternal         = "internal"
)

// APIError is the error body for every failed request
type APIError struct {
	Status  int      `json:"-"`
	Kind    string   `json:"kind" example:"missing_audio" doc:"Machine-readable error kind"`
	Message string   `json:"message" example:"No audio file provided" doc:"Human-readable message"`
	Details []string `json:"details,omitempty" doc:"Validation details"`
}

// NewAPIError creates an APIError
func NewAPIError(status int, kind, message string) *APIError {
	return &APIError{Status: status, Kind: kind, Message: message}
}

func (e *APIError) Error() string {
	return e.Kind + ": " + e.Message
}

// GetStatus implements huma.StatusError
func (e *APIError) GetStatus() int {
	return e.Status
}

// KindForStatus picks a default kind for errors raised by the framework
func KindForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusRequestEntityTooLarge:
		return KindUploadTooLarge
	case http.StatusServiceUnavailable:
		return KindUnavailable
	}
	if status >= 500 {
		return KindInternal
	}
	return KindBadRequest
}
