package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when a token is malformed, badly signed,
	// expired or carries an inconsistent claim set.
	ErrInvalidToken = errors.New("invalid token")
	// ErrMissingSecret is returned by NewCodec when no signing secret is configured.
	ErrMissingSecret = errors.New("session: signing secret is required")
)

// wireClaims is the JSON shape of the token payload. Absent fields stay absent
// so "never set" and "explicitly false" remain distinguishable.
type wireClaims struct {
	jwt.RegisteredClaims
	Number       string `json:"number,omitempty"`
	Verified     *bool  `json:"verified,omitempty"`
	MemberShipID string `json:"memberShipID,omitempty"`
}

// Codec signs and verifies session tokens with HS256.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec returns a Codec signing with secret; tokens expire ttl after issue.
func NewCodec(secret []byte, ttl time.Duration) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("session: ttl must be positive, got %s", ttl)
	}
	return &Codec{secret: secret, ttl: ttl, now: time.Now}, nil
}

// Encode signs claim into a compact token.
func (c *Codec) Encode(claim Claim) (string, error) {
	wire, err := toWire(claim)
	if err != nil {
		return "", err
	}
	now := c.now().UTC()
	wire.IssuedAt = jwt.NewNumericDate(now)
	wire.ExpiresAt = jwt.NewNumericDate(now.Add(c.ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wire).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token and returns its claim.
// It is the only place that decides whether a session is still alive.
func (c *Codec) Decode(token string) (Claim, error) {
	var wire wireClaims
	_, err := jwt.ParseWithClaims(token, &wire,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return fromWire(wire)
}

func toWire(claim Claim) (wireClaims, error) {
	verified := true
	switch claim.State {
	case Pending:
		if claim.Number == "" {
			return wireClaims{}, errors.New("session: pending claim needs a number")
		}
		return wireClaims{Number: claim.Number}, nil
	case Verified:
		if claim.Number == "" {
			return wireClaims{}, errors.New("session: verified claim needs a number")
		}
		return wireClaims{Number: claim.Number, Verified: &verified}, nil
	case Registered:
		if claim.MemberID == "" {
			return wireClaims{}, errors.New("session: registered claim needs a member id")
		}
		return wireClaims{Number: claim.Number, Verified: &verified, MemberShipID: claim.MemberID}, nil
	default:
		return wireClaims{}, fmt.Errorf("session: cannot encode %s claim", claim.State)
	}
}

func fromWire(wire wireClaims) (Claim, error) {
	verified := wire.Verified != nil && *wire.Verified
	switch {
	case wire.MemberShipID != "":
		if !verified {
			return Claim{}, fmt.Errorf("%w: member id without verification", ErrInvalidToken)
		}
		return RegisteredClaim(wire.MemberShipID, wire.Number), nil
	case wire.Number != "" && verified:
		return VerifiedClaim(wire.Number), nil
	case wire.Number != "":
		return PendingClaim(wire.Number), nil
	default:
		return Claim{}, fmt.Errorf("%w: empty claim set", ErrInvalidToken)
	}
}
