// Package otp issues and checks one-time passcodes for phone numbers.
package otp

import (
	"context"
	"fmt"
)

// Channel is how a resent passcode is delivered.
type Channel string

const (
	ChannelText  Channel = "text"
	ChannelVoice Channel = "voice"
)

// Gateway generates, delivers and verifies passcodes. Numbers are the
// 10-digit national numbers accepted by the registration flow.
type Gateway interface {
	Send(ctx context.Context, number string) error
	Resend(ctx context.Context, number string, channel Channel) error
	Verify(ctx context.Context, number, code string) (bool, error)
}

// GatewayError is a failure reported by the provider itself. Its message is
// meant to be shown to the caller unchanged.
type GatewayError struct {
	Message string
}

func (e *GatewayError) Error() string { return e.Message }

func gatewayError(format string, args ...any) *GatewayError {
	return &GatewayError{Message: fmt.Sprintf(format, args...)}
}
