package otp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultMSG91BaseURL = "https://control.msg91.com/api/v5"
	defaultTimeout      = 15 * time.Second
)

// MSG91Client talks to the MSG91 OTP API.
// See https://docs.msg91.com/reference/send-otp.
type MSG91Client struct {
	AuthKey    string
	TemplateID string
	BaseURL    string
	Region     string
	HTTPClient *http.Client
}

// NewMSG91Client returns a client for the given auth key and template. An
// empty baseURL selects the public API.
func NewMSG91Client(authKey, templateID, baseURL, region string) *MSG91Client {
	if baseURL == "" {
		baseURL = defaultMSG91BaseURL
	}
	if region == "" {
		region = "IN"
	}
	return &MSG91Client{
		AuthKey:    authKey,
		TemplateID: templateID,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Region:     region,
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
}

type msg91Response struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Send asks MSG91 to generate and text a passcode to number.
func (c *MSG91Client) Send(ctx context.Context, number string) error {
	q := url.Values{}
	q.Set("template_id", c.TemplateID)
	res, err := c.call(ctx, http.MethodPost, "/otp", number, q)
	if err != nil {
		return err
	}
	if res.Type != "success" {
		return &GatewayError{Message: res.Message}
	}
	return nil
}

// Resend asks MSG91 to deliver the pending passcode again over channel.
func (c *MSG91Client) Resend(ctx context.Context, number string, channel Channel) error {
	q := url.Values{}
	q.Set("retrytype", string(channel))
	res, err := c.call(ctx, http.MethodGet, "/otp/retry", number, q)
	if err != nil {
		return err
	}
	if res.Type != "success" {
		return &GatewayError{Message: res.Message}
	}
	return nil
}

// Verify checks code against the passcode MSG91 issued for number. A mismatch
// is reported as (false, nil).
func (c *MSG91Client) Verify(ctx context.Context, number, code string) (bool, error) {
	q := url.Values{}
	q.Set("otp", code)
	res, err := c.call(ctx, http.MethodGet, "/otp/verify", number, q)
	if err != nil {
		return false, err
	}
	return res.Type == "success", nil
}

func (c *MSG91Client) call(ctx context.Context, method, path, number string, q url.Values) (msg91Response, error) {
	if c.AuthKey == "" {
		return msg91Response{}, fmt.Errorf("msg91: auth key not configured")
	}
	mobile, err := InternationalNumber(number, c.Region)
	if err != nil {
		return msg91Response{}, err
	}
	q.Set("mobile", mobile)

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return msg91Response{}, err
	}
	req.Header.Set("authkey", c.AuthKey)
	req.Header.Set("Accept", "application/json")
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return msg91Response{}, fmt.Errorf("msg91 %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return msg91Response{}, fmt.Errorf("msg91 %s: read body: %w", path, err)
	}
	var out msg91Response
	if err := json.Unmarshal(body, &out); err != nil {
		return msg91Response{}, fmt.Errorf("msg91 %s: status=%d body=%s", path, resp.StatusCode, string(body))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return msg91Response{}, fmt.Errorf("msg91 %s: status=%d message=%s", path, resp.StatusCode, out.Message)
	}
	return out, nil
}
