package models

import (
	"time"

	"github.com/RMahshie/tunecheck/pkg/tuning"
	"github.com/danielgtaylor/huma/v2"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// AudioForm is the multipart form posted by the recorder
type AudioForm struct {
	AudioData huma.FormFile `form:"audio_data" doc:"Recorded audio clip (webm, ogg, wav, flac, mp3)"`
}

// ProcessAudioRequest represents an uploaded clip to analyze
type ProcessAudioRequest struct {
	SessionID string `query:"session_id" maxLength:"64" doc:"Optional client session used to group readings"`
	RawBody   huma.MultipartFormFiles[AudioForm]
}

// TuningResponseBody is the analysis result for one clip
type TuningResponseBody struct {
	PredictedFrequency float64         `json:"predicted_frequency" doc:"Representative frequency of the clip in Hz"`
	Feedback           string          `json:"feedback" example:"Sharp by 19.56 cents from A4" doc:"Human-readable feedback"`
	ClosestNote        string          `json:"closest_note" example:"A4" doc:"Closest reference note"`
	CentsDifference    float64         `json:"cents_difference" doc:"Signed deviation in cents, positive is sharp"`
	Judgment           tuning.Judgment `json:"judgment" enum:"in tune,sharp,flat" doc:"Tuning judgment"`
	ReferenceFrequency float64         `json:"reference_frequency" doc:"Frequency of the closest note in Hz"`
	Estimator          string          `json:"estimator" doc:"Pitch estimator used"`
	FrameCount         int             `json:"frame_count" doc:"Number of analysis frames"`
	ReadingID          *string         `json:"reading_id,omitempty" doc:"Stored reading ID when history is enabled"`
}

// ProcessAudioResponse represents the result of analyzing an upload
type ProcessAudioResponse struct {
	Body TuningResponseBody
}

// MatchRequest represents a request to match a known frequency
type MatchRequest struct {
	Body struct {
		Frequency float64 `json:"frequency" example:"445" doc:"Frequency in Hz"`
	}
}

// MatchResponse represents the matcher output for a frequency
type MatchResponse struct {
	Body tuning.Result
}

// NotesResponse lists the reference table
type NotesResponse struct {
	Body struct {
		ToleranceCents float64       `json:"tolerance_cents" doc:"Half-width of the in-tune window"`
		Notes          []tuning.Note `json:"notes" doc:"Reference notes in table order"`
	}
}

// ListReadingsRequest represents a request for a session's reading history
type ListReadingsRequest struct {
	SessionID string `path:"session_id" maxLength:"64" doc:"Client session identifier"`
	Limit     int    `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Maximum readings to return"`
}

// ListReadingsResponse represents a session's readings, newest first
type ListReadingsResponse struct {
	Body struct {
		SessionID string     `json:"session_id" doc:"Client session identifier"`
		Readings  []*Reading `json:"readings" doc:"Readings, newest first"`
	}
}

// GetReadingRequest represents a request for one reading
type GetReadingRequest struct {
	ID string `path:"id" doc:"Reading ID"`
}

// GetReadingResponse represents a single stored reading
type GetReadingResponse struct {
	Body *Reading
}

// GetReadingAudioResponse links to the archived clip of a reading
type GetReadingAudioResponse struct {
	Body struct {
		ReadingID string `json:"reading_id" doc:"Reading ID"`
		URL       string `json:"url" doc:"Pre-signed download URL"`
	}
}

// Reading is a stored tuning analysis (for internal use and history)
type Reading struct {
	ID                 string          `json:"id"`
	SessionID          string          `json:"session_id,omitempty"`
	PredictedFrequency float64         `json:"predicted_frequency"`
	ClosestNote        string          `json:"closest_note"`
	ReferenceFrequency float64         `json:"reference_frequency"`
	CentsDifference    float64         `json:"cents_difference"`
	Judgment           tuning.Judgment `json:"judgment"`
	Feedback           string          `json:"feedback"`
	Estimator          string          `json:"estimator"`
	FrameCount         int             `json:"frame_count"`
	AudioKey           *string         `json:"audio_key,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}

// ToResponseBody converts a reading to the public response shape
func (r *Reading) ToResponseBody(stored bool) TuningResponseBody {
	body := TuningResponseBody{
		PredictedFrequency: r.PredictedFrequency,
		Feedback:           r.Feedback,
		ClosestNote:        r.ClosestNote,
		CentsDifference:    r.CentsDifference,
		Judgment:           r.Judgment,
		ReferenceFrequency: r.ReferenceFrequency,
		Estimator:          r.Estimator,
		FrameCount:         r.FrameCount,
	}
	if stored {
		id := r.ID
		body.ReadingID = &id
	}
	return body
}
