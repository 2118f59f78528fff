package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/campushub/campushub-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors. The
// success flag mirrors the data envelope so clients can branch on one field.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"success": false, "error": ..., "message": ...}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, label, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Success: false, Error: label, Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, http.StatusText(he.Code), fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "Validation Failed", validationDetail(err)
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Unauthorized", "invalid email or password"
	case errors.Is(err, domain.ErrEmailTaken), errors.Is(err, domain.ErrFederatedIDTaken):
		return http.StatusConflict, "Conflict", "email already registered"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "Not Found", "user not found"
	case errors.Is(err, domain.ErrProviderUnavailable):
		// Should be collapsed before it reaches here; keep the mapping anyway
		// so a missed path never turns into a 500.
		log.Warn().Err(err).Msg("provider error escaped the service layer")
		return http.StatusUnauthorized, "Unauthorized", "invalid email or password"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "Internal Server Error", "something went wrong"
}

// validationDetail strips the sentinel prefix so the client sees only the
// field-level explanation.
func validationDetail(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return "invalid request"
	}
	return msg
}
