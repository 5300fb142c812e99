package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenga-hub/jenga/internal/apperr"
	"github.com/jenga-hub/jenga/internal/config"
	"github.com/jenga-hub/jenga/internal/directory"
	"github.com/jenga-hub/jenga/internal/logging"
	"github.com/jenga-hub/jenga/internal/otp"
)

const (
	number = "9876543210"
	code   = "1234"
)

type stubGateway struct{ verifies int }

func (g *stubGateway) Send(context.Context, string) error { return nil }

func (g *stubGateway) Resend(context.Context, string, otp.Channel) error { return nil }

func (g *stubGateway) Verify(_ context.Context, _, got string) (bool, error) {
	g.verifies++
	return got == code, nil
}

type testApp struct {
	app     *fiber.App
	gateway *stubGateway
	members directory.Directory
}

func testConfig() config.Config {
	return config.Config{
		AppName:           "Jenga",
		AppEnv:            "test",
		JWTSecret:         "routes-secret",
		SessionTTL:        time.Minute,
		IdempotencyTTL:    time.Minute,
		ListCacheTTL:      time.Minute,
		OTPProvider:       config.OTPProviderMSG91,
		DirectoryProvider: config.DirectoryMemory,
	}
}

func newTestApp(t *testing.T, withCache bool) testApp {
	t.Helper()
	logger := logging.Discard()
	gw := &stubGateway{}
	members := directory.NewMemory()
	deps := Deps{Cfg: testConfig(), Logger: logger, Gateway: gw, Directory: members}

	if withCache {
		mr := miniredis.RunT(t)
		cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { cache.Close() })
		deps.Cache = cache
	}

	app := fiber.New(fiber.Config{ErrorHandler: apperr.Handler(logger)})
	require.NoError(t, Setup(app, deps))
	return testApp{app: app, gateway: gw, members: members}
}

type call struct {
	method  string
	path    string
	token   string
	body    any
	headers map[string]string
}

func (a testApp) do(t *testing.T, c call) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(c.method, c.path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if c.token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	} else if len(raw) > 0 {
		var list []any
		require.NoError(t, json.Unmarshal(raw, &list))
		out["list"] = list
	}
	return resp.StatusCode, out
}

func (a testApp) register(t *testing.T) (string, string) {
	t.Helper()
	status, body := a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": number}})
	require.Equal(t, http.StatusOK, status, body)
	status, body = a.do(t, call{method: http.MethodPost, path: "/validate", token: body["token"].(string), body: map[string]string{"otp": code}})
	require.Equal(t, http.StatusOK, status, body)
	status, body = a.do(t, call{method: http.MethodPost, path: "/details", token: body["token"].(string), body: map[string]any{
		"College":   "X",
		"My_Skills": "a,b,c",
	}})
	require.Equal(t, http.StatusOK, status, body)
	return body["memberShipID"].(string), body["token"].(string)
}

func TestHappyPath(t *testing.T) {
	a := newTestApp(t, false)

	status, body := a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": number}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Otp has been send. Check your number", body["message"])
	pending := body["token"].(string)

	status, body = a.do(t, call{method: http.MethodPost, path: "/retry", token: pending, body: map[string]string{"retry_type": "voice"}})
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 200, body["success"])

	status, body = a.do(t, call{method: http.MethodPost, path: "/validate", token: pending, body: map[string]string{"otp": code}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "successfully signed up", body["message"])
	verified := body["token"].(string)

	status, body = a.do(t, call{method: http.MethodPost, path: "/details", token: verified, body: map[string]any{
		"College":   "X",
		"My_Skills": "a,b,c",
	}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Successfully registered", body["message"])
	memberID := body["memberShipID"].(string)
	registered := body["token"].(string)

	status, body = a.do(t, call{method: http.MethodGet, path: "/user", token: registered})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, memberID, body["id"])
	fields := body["fields"].(map[string]any)
	assert.Equal(t, []any{"X"}, fields["College"])
	assert.Equal(t, []any{"a", "b", "c"}, fields["My_Skills"])

	status, body = a.do(t, call{method: http.MethodPost, path: "/edit", token: registered, body: map[string]any{"College": "Y"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Successfully edited", body["message"])

	_, body = a.do(t, call{method: http.MethodGet, path: "/colleges"})
	assert.Equal(t, []any{"Y"}, body["list"])
	_, body = a.do(t, call{method: http.MethodGet, path: "/skills"})
	assert.Equal(t, []any{"a", "b", "c"}, body["list"])
}

func TestTokenFailures(t *testing.T) {
	a := newTestApp(t, false)

	status, body := a.do(t, call{method: http.MethodPost, path: "/validate", body: map[string]string{"otp": code}})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token is missing", body["message"])

	status, body = a.do(t, call{method: http.MethodPost, path: "/validate", token: "garbage", body: map[string]string{"otp": code}})
	assert.Equal(t, apperr.StatusExpired, status)
	assert.Equal(t, "Time expired, retry again", body["message"])

	for _, path := range []string{"/retry", "/details", "/edit"} {
		status, _ := a.do(t, call{method: http.MethodPost, path: path, token: "garbage", body: map[string]string{}})
		assert.Equal(t, http.StatusUnauthorized, status, path)
	}
	status, _ = a.do(t, call{method: http.MethodGet, path: "/user", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Zero(t, a.gateway.verifies)
}

func TestInvalidInput(t *testing.T) {
	a := newTestApp(t, false)

	status, body := a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": "12345"}})
	assert.Equal(t, apperr.StatusValidation, status)
	assert.Equal(t, "Invalid Phone number", body["message"])

	_, body = a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": number}})
	pending := body["token"].(string)

	status, _ = a.do(t, call{method: http.MethodPost, path: "/retry", token: pending, body: map[string]string{"retry_type": "pigeon"}})
	assert.Equal(t, apperr.StatusValidation, status)

	status, _ = a.do(t, call{method: http.MethodPost, path: "/validate", token: pending, body: map[string]string{"otp": "0000"}})
	assert.Equal(t, apperr.StatusValidation, status)

	// A pending token cannot submit details.
	status, _ = a.do(t, call{method: http.MethodPost, path: "/details", token: pending, body: map[string]string{"College": "X"}})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestExistingMember(t *testing.T) {
	a := newTestApp(t, false)
	memberID, _ := a.register(t)

	_, body := a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": number}})
	status, body := a.do(t, call{method: http.MethodPost, path: "/validate", token: body["token"].(string), body: map[string]string{"otp": code}})
	require.Equal(t, apperr.StatusConflict, status)
	assert.Equal(t, "user already exist", body["message"])
	assert.Equal(t, memberID, body["memberShipID"])

	status, body = a.do(t, call{method: http.MethodGet, path: "/user", token: body["token"].(string)})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, memberID, body["id"])
}

func TestDuplicateDetails(t *testing.T) {
	a := newTestApp(t, false)

	_, body := a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": number}})
	_, body = a.do(t, call{method: http.MethodPost, path: "/validate", token: body["token"].(string), body: map[string]string{"otp": code}})
	verified := body["token"].(string)

	status, first := a.do(t, call{method: http.MethodPost, path: "/details", token: verified, body: map[string]any{"College": "X"}})
	require.Equal(t, http.StatusOK, status)

	status, body = a.do(t, call{method: http.MethodPost, path: "/details", token: verified, body: map[string]any{"College": "Z"}})
	require.Equal(t, apperr.StatusConflict, status)
	assert.Equal(t, first["memberShipID"], body["memberShipID"])
	assert.NotEmpty(t, body["token"])
}

func TestIdempotentDetailsReplay(t *testing.T) {
	a := newTestApp(t, true)

	_, body := a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": number}})
	_, body = a.do(t, call{method: http.MethodPost, path: "/validate", token: body["token"].(string), body: map[string]string{"otp": code}})
	verified := body["token"].(string)

	headers := map[string]string{"Idempotency-Key": "details-1"}
	status, first := a.do(t, call{method: http.MethodPost, path: "/details", token: verified, body: map[string]any{"College": "X"}, headers: headers})
	require.Equal(t, http.StatusOK, status)

	status, second := a.do(t, call{method: http.MethodPost, path: "/details", token: verified, body: map[string]any{"College": "X"}, headers: headers})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, first, second)

	_, body = a.do(t, call{method: http.MethodGet, path: "/colleges"})
	assert.Equal(t, []any{"X"}, body["list"])
}

func (a testApp) verified(t *testing.T, phone string) string {
	t.Helper()
	_, body := a.do(t, call{method: http.MethodPost, path: "/", body: map[string]string{"number": phone}})
	status, body := a.do(t, call{method: http.MethodPost, path: "/validate", token: body["token"].(string), body: map[string]string{"otp": code}})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

func TestIdempotencyKeyReusedAcrossCallers(t *testing.T) {
	a := newTestApp(t, true)
	headers := map[string]string{"Idempotency-Key": "k1"}

	first := a.verified(t, number)
	status, bodyA := a.do(t, call{method: http.MethodPost, path: "/details", token: first, body: map[string]any{"College": "X"}, headers: headers})
	require.Equal(t, http.StatusOK, status)

	const other = "9123456780"
	second := a.verified(t, other)
	status, bodyB := a.do(t, call{method: http.MethodPost, path: "/details", token: second, body: map[string]any{"College": "Y"}, headers: headers})
	require.Equal(t, http.StatusOK, status)
	assert.NotEqual(t, bodyA["memberShipID"], bodyB["memberShipID"])

	record, err := a.members.FindByPhone(context.Background(), other)
	require.NoError(t, err)
	assert.Equal(t, bodyB["memberShipID"], record.ID)

	status, user := a.do(t, call{method: http.MethodGet, path: "/user", token: bodyB["token"].(string)})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, record.ID, user["id"])
}

func TestListsAreEmptyArrays(t *testing.T) {
	a := newTestApp(t, true)
	for _, path := range []string{"/colleges", "/skills"} {
		status, body := a.do(t, call{method: http.MethodGet, path: path})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []any{}, body["list"], path)
	}
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t, true)
	status, body := a.do(t, call{method: http.MethodGet, path: "/healthz"})
	require.Equal(t, http.StatusOK, status)
	stores := body["status"].(map[string]any)
	assert.Equal(t, "disabled", stores["postgres"])
	assert.Equal(t, "ok", stores["redis"])
}

func TestSetupRejectsMisconfiguredProviders(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"postgres without pool", func(c *config.Config) { c.DirectoryProvider = config.DirectoryPostgres }},
		{"unknown directory", func(c *config.Config) { c.DirectoryProvider = "sheets" }},
		{"local otp without redis", func(c *config.Config) { c.OTPProvider = config.OTPProviderLocal }},
		{"missing secret", func(c *config.Config) { c.JWTSecret = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			err := Setup(fiber.New(), Deps{Cfg: cfg, Logger: logging.Discard()})
			assert.Error(t, err)
		})
	}
}
