package phone

import (
	"os"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// defaultRegion is used when a number has no country prefix.
// Most inbound leads are domestic, so it comes from deployment config.
func defaultRegion() string {
	if r := os.Getenv("DEFAULT_PHONE_REGION"); r != "" {
		return r
	}
	return "IN"
}

// Normalize returns the E.164 form of a phone number when it parses as a
// valid number, otherwise the trimmed input unchanged. Intake only requires
// that a phone is present; a number we can't parse is still a lead.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	parsed, err := phonenumbers.Parse(raw, defaultRegion())
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return raw
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// IsValid reports whether the number parses as a real, dialable number.
func IsValid(raw string) bool {
	parsed, err := phonenumbers.Parse(strings.TrimSpace(raw), defaultRegion())
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(parsed)
}
