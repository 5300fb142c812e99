package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jenga-hub/jenga/internal/middleware"
	"github.com/jenga-hub/jenga/internal/registration"
	"github.com/jenga-hub/jenga/internal/session"
)

// RegisterRegistrationRoutes wires the OTP and member endpoints. idempotency
// may be nil.
func RegisterRegistrationRoutes(r fiber.Router, h *registration.Handler, codec *session.Codec, idempotency fiber.Handler) {
	auth := middleware.SessionAuth(codec, nil)
	validateAuth := middleware.SessionAuth(codec, registration.SessionExpired())

	write := func(h fiber.Handler) []fiber.Handler {
		if idempotency == nil {
			return []fiber.Handler{auth, h}
		}
		return []fiber.Handler{auth, idempotency, h}
	}

	r.Post("/", h.RequestOTP)
	r.Post("/retry", auth, h.ResendOTP)
	r.Post("/validate", validateAuth, h.ValidateOTP)
	r.Post("/details", write(h.SubmitDetails)...)
	r.Post("/edit", write(h.EditDetails)...)
	r.Get("/user", auth, h.Status)
	r.Get("/colleges", h.Colleges)
	r.Get("/skills", h.Skills)
}
