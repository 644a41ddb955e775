package api

import (
	"errors"
	"net/http"

	"github.com/Imd11/DataPrism/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON error envelope. Internal failures carry only the
// correlation id; the cause stays in the server log.
type errorBody struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
}

func errorBodyFromError(err error) errorBody {
	var internal *domain.InternalError
	if errors.As(err, &internal) {
		return errorBody{Error: internal.Error(), CorrelationID: internal.CorrelationID}
	}
	if httpStatusFromDomainError(err) == http.StatusInternalServerError {
		wrapped := domain.ErrInternal(err)
		return errorBody{Error: wrapped.Error(), CorrelationID: wrapped.CorrelationID}
	}
	return errorBody{Error: err.Error()}
}
