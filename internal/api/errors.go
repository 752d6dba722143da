package api

import (
	"github.com/RMahshie/tunecheck/pkg/models"
	"github.com/danielgtaylor/huma/v2"
)

// UseAPIErrors makes framework errors (validation, body too large, ...)
// share the {kind, message} shape returned by the handlers.
func UseAPIErrors() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		apiErr := models.NewAPIError(status, models.KindForStatus(status), message)
		for _, err := range errs {
			if err != nil {
				apiErr.Details = append(apiErr.Details, err.Error())
			}
		}
		return apiErr
	}
}
