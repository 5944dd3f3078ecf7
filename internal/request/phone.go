package request

import (
	"fmt"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone validates a phone number and returns it in E.164 form.
// Numbers without a country prefix are interpreted in defaultRegion.
// An empty input is allowed and returned unchanged.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	if raw == "" {
		return "", nil
	}

	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return "", fmt.Errorf("invalid phone number %q: %w", raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}
