package otp

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// InternationalNumber converts a national number into the digits-only E.164
// form SMS providers expect (e.g. 9876543210 -> 919876543210 for region IN).
func InternationalNumber(number, region string) (string, error) {
	parsed, err := phonenumbers.Parse(number, region)
	if err != nil {
		return "", fmt.Errorf("parse phone number: %w", err)
	}
	if !phonenumbers.IsPossibleNumber(parsed) {
		return "", fmt.Errorf("phone number %s is not possible for region %s", number, region)
	}
	return strings.TrimPrefix(phonenumbers.Format(parsed, phonenumbers.E164), "+"), nil
}
