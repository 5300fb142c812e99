package registration

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/jenga-hub/jenga/internal/apperr"
	"github.com/jenga-hub/jenga/internal/directory"
	"github.com/jenga-hub/jenga/internal/middleware"
)

// Handler exposes the registration flow over HTTP.
type Handler struct {
	flow *Flow
}

// NewHandler constructs a registration HTTP handler.
func NewHandler(flow *Flow) *Handler {
	return &Handler{flow: flow}
}

type requestOTPRequest struct {
	Number string `json:"number"`
}

type retryRequest struct {
	RetryType string `json:"retry_type"`
}

type validateRequest struct {
	OTP string `json:"otp"`
}

type tokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type registrationResponse struct {
	Message      string `json:"message"`
	MemberShipID string `json:"memberShipID"`
	Token        string `json:"token"`
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}

// RequestOTP handles POST /. It sends a passcode and starts a session.
func (h *Handler) RequestOTP(c *fiber.Ctx) error {
	var req requestOTPRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	token, err := h.flow.RequestOTP(c.UserContext(), req.Number)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(tokenResponse{Message: msgOTPSent, Token: token})
}

// ResendOTP handles POST /retry.
func (h *Handler) ResendOTP(c *fiber.Ctx) error {
	var req retryRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.flow.ResendOTP(c.UserContext(), middleware.SessionClaim(c), req.RetryType); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": http.StatusOK})
}

// ValidateOTP handles POST /validate.
func (h *Handler) ValidateOTP(c *fiber.Ctx) error {
	var req validateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	token, err := h.flow.ValidateOTP(c.UserContext(), middleware.SessionClaim(c), req.OTP)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(tokenResponse{Message: msgSignedUp, Token: token})
}

// SubmitDetails handles POST /details.
func (h *Handler) SubmitDetails(c *fiber.Ctx) error {
	var payload directory.Fields
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	reg, err := h.flow.SubmitDetails(c.UserContext(), middleware.SessionClaim(c), payload)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(registrationResponse{
		Message:      msgRegistered,
		MemberShipID: reg.MemberID,
		Token:        reg.Token,
	})
}

// EditDetails handles POST /edit.
func (h *Handler) EditDetails(c *fiber.Ctx) error {
	var payload directory.Fields
	if err := parseBody(c, &payload); err != nil {
		return err
	}
	if err := h.flow.EditDetails(c.UserContext(), middleware.SessionClaim(c), payload); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": msgEdited})
}

// Status handles GET /user.
func (h *Handler) Status(c *fiber.Ctx) error {
	member, err := h.flow.Status(c.UserContext(), middleware.SessionClaim(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(member)
}

// Colleges handles GET /colleges.
func (h *Handler) Colleges(c *fiber.Ctx) error {
	colleges, err := h.flow.Colleges(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(colleges)
}

// Skills handles GET /skills.
func (h *Handler) Skills(c *fiber.Ctx) error {
	skills, err := h.flow.Skills(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(skills)
}
