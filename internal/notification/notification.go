package notification

import (
	"context"
	"log/slog"

	"github.com/jenga-hub/jenga/internal/logging"
)

const (
	// KindOTPText is a passcode delivered as a text message.
	KindOTPText = "otp_text"
	// KindOTPVoice is a passcode read out by a voice call.
	KindOTPVoice = "otp_voice"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger instead of a carrier. It
// backs the local OTP provider in development.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("destination", logging.MaskPhone(message.Destination)),
		slog.String("body", message.Body),
	)
	return nil
}
