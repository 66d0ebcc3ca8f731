package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/audit-intake/internal/errors"
	"github.com/p-blackswan/audit-intake/internal/metrics"
	"github.com/p-blackswan/audit-intake/internal/requestid"
)

const internalDetail = "An internal error occurred"

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// problemResponse writes an RFC 7807 Problem Detail response.
func problemResponse(c *fiber.Ctx, status int, errType, title, detail string) error {
	return c.Status(status).JSON(ProblemDetail{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Path(),
	})
}

// errorHandler turns handler errors into problem details. Server-side
// failures are logged with their cause and answered with a generic message.
func errorHandler(logger zerolog.Logger, m *metrics.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := statusOf(err)
		log := requestid.Logger(c.UserContext(), logger)
		detail := err.Error()
		if status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Int("status", status).Str("method", c.Method()).Str("path", c.Path()).Msg("Request failed")
			detail = internalDetail
			if m != nil {
				m.RecordError("api", problemType(status))
			}
		} else {
			log.Debug().Err(err).Int("status", status).Str("path", c.Path()).Msg("Request rejected")
		}

		return problemResponse(c, status, problemType(status), statusTitle(status), detail)
	}
}

// statusOf maps err onto an HTTP status. Fiber's own errors keep their code.
func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return perrors.HTTPStatus(err)
}

func problemType(status int) string {
	switch status {
	case fiber.StatusBadRequest:
		return "invalid_request"
	case fiber.StatusUnauthorized:
		return "unauthorized"
	case fiber.StatusNotFound:
		return "not_found"
	case fiber.StatusConflict:
		return "conflict"
	case fiber.StatusTooManyRequests:
		return "rate_limit_exceeded"
	default:
		if status >= fiber.StatusInternalServerError {
			return "internal_error"
		}
		return "error"
	}
}

func statusTitle(status int) string {
	if status >= fiber.StatusInternalServerError {
		return "Internal Server Error"
	}
	return utils.StatusMessage(status)
}
