// Package session encodes the registration progress of a caller into a signed,
// expiring bearer token. The token replaces server-side session storage: every
// transition of the registration flow issues a fresh token.
package session

import "fmt"

// State is the registration progress carried by a claim.
type State int

const (
	// Anonymous is the zero state; it is never encoded into a token.
	Anonymous State = iota
	// Pending: an OTP was requested for Number.
	Pending
	// Verified: the OTP for Number was confirmed by the gateway.
	Verified
	// Registered: a member record exists with MemberID.
	Registered
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Pending:
		return "pending"
	case Verified:
		return "verified"
	case Registered:
		return "registered"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Claim is the decoded payload of a session token. Use the constructors so the
// fields always match the state.
type Claim struct {
	State    State
	Number   string
	MemberID string
}

// PendingClaim is issued once an OTP has been sent to number.
func PendingClaim(number string) Claim {
	return Claim{State: Pending, Number: number}
}

// VerifiedClaim is issued once the OTP for number has been checked.
func VerifiedClaim(number string) Claim {
	return Claim{State: Verified, Number: number}
}

// RegisteredClaim is issued once a member record exists. number may be empty
// for tokens minted before registered claims carried it.
func RegisteredClaim(memberID, number string) Claim {
	return Claim{State: Registered, MemberID: memberID, Number: number}
}

// HasNumber reports whether the claim names a phone number.
func (c Claim) HasNumber() bool { return c.Number != "" }

// IsVerified reports whether the phone number was confirmed by OTP.
func (c Claim) IsVerified() bool { return c.State >= Verified }

// IsRegistered reports whether the claim carries a member ID.
func (c Claim) IsRegistered() bool { return c.State == Registered && c.MemberID != "" }
