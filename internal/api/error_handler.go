package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. Gate
// violations additionally carry their kind so clients can branch without
// parsing messages.
type errorResponse struct {
	Error string `json:"error"`
	Gate  string `json:"gate,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the engine's error taxonomy to deterministic HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var gate *domain.GateViolation
	if errors.As(err, &gate) {
		return http.StatusUnprocessableEntity, errorResponse{Error: gate.Reason, Gate: string(gate.Kind)}
	}
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest, errorResponse{Error: validation.Error()}
	}

	switch {
	case errors.Is(err, domain.ErrParcelNotFound):
		return http.StatusNotFound, errorResponse{Error: "parcel not found"}
	case errors.Is(err, domain.ErrTripNotFound):
		return http.StatusNotFound, errorResponse{Error: "trip not found"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrWrongTrip):
		return http.StatusConflict, errorResponse{Error: err.Error()}
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, errorResponse{Error: "parcel was modified concurrently, retry"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
