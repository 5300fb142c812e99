package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/jenga-hub/jenga/internal/notification"
)

const localKeyPrefix = "otp:v1:"

// LocalGateway generates passcodes itself, keeps a bcrypt hash in Redis until
// it expires or is used, and hands the plain code to a Notifier for delivery.
type LocalGateway struct {
	cache    *redis.Client
	notifier notification.Notifier
	length   int
	ttl      time.Duration
	generate func(length int) (string, error)
}

// NewLocalGateway builds a Redis-backed gateway issuing codes of length digits.
func NewLocalGateway(cache *redis.Client, notifier notification.Notifier, length int, ttl time.Duration) *LocalGateway {
	if length <= 0 {
		length = 4
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LocalGateway{cache: cache, notifier: notifier, length: length, ttl: ttl, generate: randomDigits}
}

// Send issues a new passcode for number, replacing any pending one.
func (g *LocalGateway) Send(ctx context.Context, number string) error {
	return g.issue(ctx, number, notification.KindOTPText)
}

// Resend issues a fresh passcode over channel. It fails when no passcode is pending.
func (g *LocalGateway) Resend(ctx context.Context, number string, channel Channel) error {
	n, err := g.cache.Exists(ctx, localKeyPrefix+number).Result()
	if err != nil {
		return fmt.Errorf("otp lookup: %w", err)
	}
	if n == 0 {
		return gatewayError("No OTP request found for %s, request a new one", number)
	}
	kind := notification.KindOTPText
	if channel == ChannelVoice {
		kind = notification.KindOTPVoice
	}
	return g.issue(ctx, number, kind)
}

// Verify reports whether code matches the pending passcode. A match consumes it.
func (g *LocalGateway) Verify(ctx context.Context, number, code string) (bool, error) {
	key := localKeyPrefix + number
	hash, err := g.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("otp lookup: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(code)) != nil {
		return false, nil
	}
	if err := g.cache.Del(ctx, key).Err(); err != nil {
		return false, fmt.Errorf("otp consume: %w", err)
	}
	return true, nil
}

func (g *LocalGateway) issue(ctx context.Context, number, kind string) error {
	code, err := g.generate(g.length)
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	if err := g.cache.Set(ctx, localKeyPrefix+number, hash, g.ttl).Err(); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return g.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: number,
		Body:        fmt.Sprintf("%s is your Jenga verification code", code),
	})
}

func randomDigits(length int) (string, error) {
	digits := make([]byte, length)
	for i := range digits {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits), nil
}
