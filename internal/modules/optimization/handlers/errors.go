package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/aristath/qdr/internal/modules/marketdata"
	"github.com/aristath/qdr/internal/modules/optimization"
)

// StatusForError maps domain errors to HTTP status codes.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, optimization.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, marketdata.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, optimization.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// nginx convention for a client that went away
		return 499
	default:
		return http.StatusInternalServerError
	}
}
