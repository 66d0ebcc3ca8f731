package api

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/p-blackswan/audit-intake/internal/requestid"
)

// bearerToken extracts the credential from "Authorization: Bearer <key>".
// Operators using curl scripts may send X-API-Key instead.
func bearerToken(c *fiber.Ctx) (string, bool) {
	if key := c.Get("X-API-Key"); key != "" {
		return key, true
	}
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// NewAdminAuthMiddleware guards the admin routes with a shared API key.
func NewAdminAuthMiddleware(apiKey string, logger zerolog.Logger) fiber.Handler {
	want := []byte(apiKey)
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c)
		if !ok {
			return problemResponse(c, fiber.StatusUnauthorized, "unauthorized", "Unauthorized",
				"a Bearer token or X-API-Key header is required")
		}
		if subtle.ConstantTimeCompare([]byte(token), want) != 1 {
			log := requestid.Logger(c.UserContext(), logger)
			log.Warn().Str("path", c.Path()).Str("ip", c.IP()).Msg("Rejected admin request with a bad API key")
			return problemResponse(c, fiber.StatusUnauthorized, "unauthorized", "Unauthorized", "invalid API key")
		}
		return c.Next()
	}
}
