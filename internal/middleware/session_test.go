package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenga-hub/jenga/internal/apperr"
	"github.com/jenga-hub/jenga/internal/logging"
	"github.com/jenga-hub/jenga/internal/session"
)

func newSessionApp(t *testing.T, onInvalid *apperr.Error) (*fiber.App, *session.Codec) {
	t.Helper()
	codec, err := session.NewCodec([]byte("secret"), time.Minute)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(logging.Discard())})
	app.Use(RequestID())
	app.Get("/whoami", SessionAuth(codec, onInvalid), func(c *fiber.Ctx) error {
		claim := SessionClaim(c)
		return c.JSON(fiber.Map{"state": claim.State.String(), "number": claim.Number, "request_id": RequestIDFrom(c)})
	})
	return app, codec
}

func call(t *testing.T, app *fiber.App, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestSessionAuthBearer(t *testing.T) {
	app, codec := newSessionApp(t, nil)
	token, err := codec.Encode(session.PendingClaim("9876543210"))
	require.NoError(t, err)

	status, body := call(t, app, map[string]string{fiber.HeaderAuthorization: "Bearer " + token, requestIDHeader: "req-1"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "pending", body["state"])
	assert.Equal(t, "9876543210", body["number"])
	assert.Equal(t, "req-1", body["request_id"])

	status, _ = call(t, app, map[string]string{legacyTokenHeader: token})
	assert.Equal(t, fiber.StatusOK, status)
}

func TestSessionAuthFailures(t *testing.T) {
	app, _ := newSessionApp(t, nil)

	status, body := call(t, app, nil)
	assert.Equal(t, apperr.StatusUnauthorized, status)
	assert.Equal(t, "Token is missing", body["message"])

	status, body = call(t, app, map[string]string{fiber.HeaderAuthorization: "Bearer garbage"})
	assert.Equal(t, apperr.StatusUnauthorized, status)
	assert.Equal(t, "Token is invalid", body["message"])

	expiredApp, _ := newSessionApp(t, apperr.Expired("Time expired, retry again"))
	status, _ = call(t, expiredApp, map[string]string{fiber.HeaderAuthorization: "Bearer garbage"})
	assert.Equal(t, apperr.StatusExpired, status)
}

func TestAuditLogsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")
	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(logger)})
	app.Use(RequestID(), Audit(logger))
	app.Get("/", func(c *fiber.Ctx) error { return apperr.Conflict("user already exist", nil) })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, apperr.StatusConflict, resp.StatusCode)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request completed", line["msg"])
	assert.EqualValues(t, apperr.StatusConflict, line["status"])
	assert.NotEmpty(t, line["request_id"])
}
