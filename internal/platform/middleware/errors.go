package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/platform/apperr"
	"github.com/clinic/clinic/internal/platform/telemetry"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string `json:"message"`
}

// StatusFor maps a classified domain error to its HTTP status.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation, apperr.KindConflict, apperr.KindConfiguration:
		return http.StatusUnprocessableEntity
	case apperr.KindInvalidState:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// HTTPErrorHandler renders errors as {"message": ...}. Domain errors carry
// their own message, echo HTTP errors keep their code, and anything else is
// logged and reported as a generic 500.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, msg := http.StatusInternalServerError, "internal server error"
		var he *echo.HTTPError
		if ae, ok := apperr.As(err); ok && ae.Kind != apperr.KindInternal {
			status, msg = StatusFor(ae.Kind), ae.Message
		} else if errors.As(err, &he) {
			status = he.Code
			if he.Internal != nil && status >= 500 {
				logUnexpected(logger, c, he.Internal)
			}
			msg = fmt.Sprint(he.Message)
			if m, ok := he.Message.(string); ok {
				msg = m
			}
		} else {
			logUnexpected(logger, c, err)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(status)
		} else {
			writeErr = c.JSON(status, ErrorResponse{Message: msg})
		}
		if writeErr != nil {
			logger.Error().Err(writeErr).Msg("write error response")
		}
	}
}

func logUnexpected(logger zerolog.Logger, c echo.Context, err error) {
	rid, _ := c.Get("request_id").(string)
	l := telemetry.Logger(c.Request().Context(), logger)
	l.Error().
		Err(err).
		Str("request_id", rid).
		Str("route", c.Path()).
		Msg("unhandled error")
}
