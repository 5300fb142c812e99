package apperr

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Status codes used by the registration API. 419 has no net/http constant.
const (
	StatusValidation   = http.StatusExpectationFailed
	StatusUnauthorized = http.StatusUnauthorized
	StatusConflict     = 419
	StatusExpired      = http.StatusNotFound
)

// Error is the single error kind raised by handlers. It carries the HTTP status
// to respond with and an optional payload merged into the JSON body.
type Error struct {
	Status  int
	Message string
	Payload map[string]any
	cause   error
}

// New builds an Error with the given status and message.
func New(status int, message string) *Error {
	return &Error{Status: status, Message: message}
}

// Validation reports malformed input or a failed external call (417).
func Validation(message string) *Error {
	return New(StatusValidation, message)
}

// Unauthorized reports a missing, invalid or insufficient session (401).
func Unauthorized(message string) *Error {
	return New(StatusUnauthorized, message)
}

// Conflict reports an "already in this state" condition (419).
func Conflict(message string, payload map[string]any) *Error {
	return &Error{Status: StatusConflict, Message: message, Payload: payload}
}

// Expired reports a session that can no longer be used on the validate path (404).
func Expired(message string) *Error {
	return New(StatusExpired, message)
}

// Wrap turns an unexpected collaborator failure into a 417 carrying the
// underlying message. Errors that already are *Error pass through unchanged.
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Status: StatusValidation, Message: err.Error(), cause: err}
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.cause }

// Body renders the JSON envelope: payload keys plus "message".
func (e *Error) Body() fiber.Map {
	body := fiber.Map{}
	for k, v := range e.Payload {
		body[k] = v
	}
	body["message"] = e.Message
	return body
}

// StatusOf returns the HTTP status an error will be rendered with.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return http.StatusInternalServerError
}

// Handler is the boundary error handler installed on the fiber app. No route
// writes an error response itself.
func Handler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *Error
		if !errors.As(err, &e) {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				e = New(fe.Code, fe.Message)
			} else {
				if logger != nil {
					logger.Error("unhandled error", slog.String("path", c.Path()), slog.Any("error", err))
				}
				e = New(http.StatusInternalServerError, "internal server error")
			}
		}
		return c.Status(e.Status).JSON(e.Body())
	}
}
