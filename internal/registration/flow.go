// Package registration sequences OTP verification and member record writes.
// Progress is carried entirely by session tokens:
//
//	anonymous --request otp--> pending --validate--> verified --details--> registered
//
// Validate and details short-circuit to registered (419) when the phone number
// already has a member record.
package registration

import (
	"context"
	"errors"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/jenga-hub/jenga/internal/apperr"
	"github.com/jenga-hub/jenga/internal/directory"
	"github.com/jenga-hub/jenga/internal/logging"
	"github.com/jenga-hub/jenga/internal/otp"
	"github.com/jenga-hub/jenga/internal/session"
)

// OTPLength is the number of digits in a passcode.
const OTPLength = 4

const (
	msgOTPSent        = "Otp has been send. Check your number"
	msgSignedUp       = "successfully signed up"
	msgRegistered     = "Successfully registered"
	msgEdited         = "Successfully edited"
	msgInvalidPhone   = "Invalid Phone number"
	msgInvalidOTP     = "Invalid OTP"
	msgInvalidRetry   = "Invalid otp retry type"
	msgOTPRejected    = "status failed"
	msgExpired        = "Time expired, retry again"
	msgUnauthorized   = "Unauthorized access"
	msgAlreadyExists  = "user already exist"
	msgDoesNotExist   = "user does not exist"
	msgNotRegistered  = "User not registered"
	msgInvalidProfile = "Invalid profile details"
)

var (
	phoneRules = []validation.Rule{validation.Required, validation.Length(10, 10), is.Digit}
	codeRules  = []validation.Rule{validation.Required, validation.Length(OTPLength, OTPLength), is.Digit}
	retryRules = []validation.Rule{validation.Required, validation.In(string(otp.ChannelVoice), string(otp.ChannelText))}
)

// Flow is the registration state machine.
type Flow struct {
	codec   *session.Codec
	otp     otp.Gateway
	members directory.Directory
	logger  *slog.Logger
}

// NewFlow wires the flow to its collaborators.
func NewFlow(codec *session.Codec, gateway otp.Gateway, members directory.Directory, logger *slog.Logger) *Flow {
	return &Flow{codec: codec, otp: gateway, members: members, logger: logger}
}

// SessionExpired is the error for an undecodable token on passcode validation.
func SessionExpired() *apperr.Error { return apperr.Expired(msgExpired) }

// Registration is the outcome of a successful details submission.
type Registration struct {
	MemberID string
	Token    string
}

// RequestOTP sends a passcode to number and returns a pending session token.
func (f *Flow) RequestOTP(ctx context.Context, number string) (string, error) {
	if err := validation.Validate(number, phoneRules...); err != nil {
		f.logger.Info("invalid phone number", slog.String("number", logging.MaskPhone(number)))
		return "", apperr.Validation(msgInvalidPhone)
	}
	if err := f.otp.Send(ctx, number); err != nil {
		f.logger.Error("send otp failed", slog.String("number", logging.MaskPhone(number)), slog.Any("error", err))
		return "", apperr.Wrap(err)
	}
	f.logger.Info("otp sent", slog.String("number", logging.MaskPhone(number)))
	return f.issue(session.PendingClaim(number))
}

// ResendOTP asks the gateway to deliver the pending passcode again. The
// session is not changed.
func (f *Flow) ResendOTP(ctx context.Context, claim session.Claim, retryType string) error {
	if !claim.HasNumber() {
		return apperr.Unauthorized(msgUnauthorized)
	}
	if err := validation.Validate(retryType, retryRules...); err != nil {
		return apperr.Validation(msgInvalidRetry)
	}
	if err := f.otp.Resend(ctx, claim.Number, otp.Channel(retryType)); err != nil {
		f.logger.Error("otp retry failed", slog.String("number", logging.MaskPhone(claim.Number)), slog.Any("error", err))
		return apperr.Wrap(err)
	}
	f.logger.Info("otp retry success", slog.String("retry_type", retryType))
	return nil
}

// ValidateOTP checks code for the session's number. On success it returns a
// verified token, or a 419 carrying a registered token when the number
// already has a member record.
func (f *Flow) ValidateOTP(ctx context.Context, claim session.Claim, code string) (string, error) {
	if !claim.HasNumber() {
		return "", apperr.Expired(msgExpired)
	}
	if err := validation.Validate(code, codeRules...); err != nil {
		return "", apperr.Validation(msgInvalidOTP)
	}

	ok, err := f.otp.Verify(ctx, claim.Number, code)
	if err != nil {
		f.logger.Error("verify otp failed", slog.Any("error", err))
		return "", apperr.Wrap(err)
	}
	if !ok {
		f.logger.Info("otp rejected", slog.String("number", logging.MaskPhone(claim.Number)))
		return "", apperr.Validation(msgOTPRejected)
	}

	existing, found, err := f.lookup(ctx, claim.Number)
	if err != nil {
		return "", err
	}
	if found {
		return "", f.alreadyRegistered(existing, claim.Number)
	}
	return f.issue(session.VerifiedClaim(claim.Number))
}

// SubmitDetails creates the member record for a verified session. Submitting
// twice for the same number never creates a second record.
func (f *Flow) SubmitDetails(ctx context.Context, claim session.Claim, payload directory.Fields) (Registration, error) {
	if !claim.HasNumber() || !claim.IsVerified() {
		return Registration{}, apperr.Unauthorized(msgUnauthorized)
	}

	existing, found, err := f.lookup(ctx, claim.Number)
	if err != nil {
		return Registration{}, err
	}
	if found {
		return Registration{}, f.alreadyRegistered(existing, claim.Number)
	}

	fields, err := normalizeProfile(payload, claim.Number)
	if err != nil {
		return Registration{}, apperr.Validation(msgInvalidProfile)
	}
	member, err := f.members.Insert(ctx, fields)
	if errors.Is(err, directory.ErrExists) {
		// Lost a race with a concurrent submission for the same number.
		if existing, found, lookupErr := f.lookup(ctx, claim.Number); lookupErr == nil && found {
			return Registration{}, f.alreadyRegistered(existing, claim.Number)
		}
	}
	if err != nil {
		f.logger.Error("insert member failed", slog.Any("error", err))
		return Registration{}, apperr.Wrap(err)
	}
	f.logger.Info("member registered", slog.String("member_id", member.ID))

	token, err := f.issue(session.RegisteredClaim(member.ID, claim.Number))
	if err != nil {
		return Registration{}, err
	}
	return Registration{MemberID: member.ID, Token: token}, nil
}

// EditDetails updates the member record of the session's number in place.
func (f *Flow) EditDetails(ctx context.Context, claim session.Claim, payload directory.Fields) error {
	if !claim.HasNumber() || !claim.IsVerified() {
		return apperr.Unauthorized(msgUnauthorized)
	}

	existing, found, err := f.lookup(ctx, claim.Number)
	if err != nil {
		return err
	}
	if !found {
		return apperr.Conflict(msgDoesNotExist, nil)
	}

	fields, err := normalizeProfile(payload, claim.Number)
	if err != nil {
		return apperr.Validation(msgInvalidProfile)
	}
	if _, err := f.members.Update(ctx, existing.ID, fields); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return apperr.Conflict(msgDoesNotExist, nil)
		}
		f.logger.Error("update member failed", slog.String("member_id", existing.ID), slog.Any("error", err))
		return apperr.Wrap(err)
	}
	f.logger.Info("member edited", slog.String("member_id", existing.ID))
	return nil
}

// Status returns the member record of a registered session.
func (f *Flow) Status(ctx context.Context, claim session.Claim) (directory.Member, error) {
	if !claim.IsRegistered() {
		return directory.Member{}, apperr.Unauthorized(msgNotRegistered)
	}
	member, err := f.members.FindByID(ctx, claim.MemberID)
	if errors.Is(err, directory.ErrNotFound) {
		return directory.Member{}, apperr.Unauthorized(msgNotRegistered)
	}
	if err != nil {
		return directory.Member{}, apperr.Wrap(err)
	}
	return member, nil
}

// Colleges lists the distinct college names of all members.
func (f *Flow) Colleges(ctx context.Context) ([]string, error) {
	return nonNil(f.members.Colleges(ctx))
}

// Skills lists the distinct skills of all members.
func (f *Flow) Skills(ctx context.Context) ([]string, error) {
	return nonNil(f.members.Skills(ctx))
}

func nonNil(values []string, err error) ([]string, error) {
	if err != nil {
		return nil, apperr.Wrap(err)
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func (f *Flow) lookup(ctx context.Context, number string) (directory.Member, bool, error) {
	member, err := f.members.FindByPhone(ctx, number)
	switch {
	case err == nil:
		return member, true, nil
	case errors.Is(err, directory.ErrNotFound):
		return directory.Member{}, false, nil
	default:
		f.logger.Error("member lookup failed", slog.Any("error", err))
		return directory.Member{}, false, apperr.Wrap(err)
	}
}

func (f *Flow) alreadyRegistered(member directory.Member, number string) error {
	f.logger.Info("member already exists", slog.String("member_id", member.ID))
	token, err := f.issue(session.RegisteredClaim(member.ID, number))
	if err != nil {
		return err
	}
	return apperr.Conflict(msgAlreadyExists, map[string]any{
		"memberShipID": member.ID,
		"token":        token,
	})
}

func (f *Flow) issue(claim session.Claim) (string, error) {
	token, err := f.codec.Encode(claim)
	if err != nil {
		f.logger.Error("issue session token failed", slog.String("state", claim.State.String()), slog.Any("error", err))
		return "", apperr.Wrap(err)
	}
	return token, nil
}
