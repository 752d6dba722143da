package processing

import (
	"context"
	"errors"

	"github.com/RMahshie/tunecheck/internal/audio"
	"github.com/RMahshie/tunecheck/internal/pitch"
	"github.com/RMahshie/tunecheck/pkg/tuning"
)

// ErrorKind classifies an analysis failure
type ErrorKind string

const (
	KindInvalidAudio    ErrorKind = "invalid_audio"
	KindNoPitch         ErrorKind = "no_pitch"
	KindEstimatorFailed ErrorKind = "estimator_failed"
	KindStorageFailed   ErrorKind = "storage_failed"
	KindInternal        ErrorKind = "internal"
)

// Error is an analysis failure with a kind the API can map to a response
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, or KindInternal for untyped errors
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

// classify maps errors from the pipeline stages to kinds
func classify(err error) *Error {
	kind := KindInternal
	switch {
	case errors.Is(err, audio.ErrEmptyClip),
		errors.Is(err, audio.ErrDecode),
		errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, pitch.ErrClipTooShort):
		kind = KindInvalidAudio
	case errors.Is(err, pitch.ErrNoPitch),
		errors.Is(err, tuning.ErrInvalidFrequency):
		kind = KindNoPitch
	case errors.Is(err, pitch.ErrEstimator),
		errors.Is(err, context.DeadlineExceeded):
		kind = KindEstimatorFailed
	}
	return &Error{Kind: kind, Err: err}
}
