package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jenga-hub/jenga/internal/apperr"
	"github.com/jenga-hub/jenga/internal/session"
)

const (
	sessionLocalsKey = "session_claim"
	// legacyTokenHeader is accepted for clients that predate bearer auth.
	legacyTokenHeader = "X-Access-Token"
)

// SessionAuth decodes the bearer token and stores its claim for the handler.
// onInvalid is returned when a token is present but cannot be decoded; a
// missing token is always a 401.
func SessionAuth(codec *session.Codec, onInvalid *apperr.Error) fiber.Handler {
	if onInvalid == nil {
		onInvalid = apperr.Unauthorized("Token is invalid")
	}
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return apperr.Unauthorized("Token is missing")
		}
		claim, err := codec.Decode(token)
		if err != nil {
			return onInvalid
		}
		c.Locals(sessionLocalsKey, claim)
		return c.Next()
	}
}

// SessionClaim returns the claim stored by SessionAuth, or the anonymous claim.
func SessionClaim(c *fiber.Ctx) session.Claim {
	claim, _ := c.Locals(sessionLocalsKey).(session.Claim)
	return claim
}

func bearerToken(c *fiber.Ctx) string {
	authz := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return strings.TrimSpace(c.Get(legacyTokenHeader))
}
