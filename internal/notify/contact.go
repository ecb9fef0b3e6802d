package notify

import (
	"errors"
	"strings"
)

// DefaultCountryCode is prefixed to bare local numbers.
const DefaultCountryCode = "91"

// ErrInvalidRecipient is returned for contacts that cannot be addressed.
var ErrInvalidRecipient = errors.New("invalid recipient")

// NormalizeMobile converts a free-form mobile number to E.164. Separators are
// dropped; a 10-digit local number gets countryCode prepended, as does any
// other number that does not already start with it.
func NormalizeMobile(mobile, countryCode string) (string, error) {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	var b strings.Builder
	for _, r := range mobile {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return "", ErrInvalidRecipient
	}

	if len(digits) == 10 || !strings.HasPrefix(digits, countryCode) {
		digits = countryCode + digits
	}
	// E.164 allows at most 15 digits
	if len(digits) < 11 || len(digits) > 15 {
		return "", ErrInvalidRecipient
	}
	return "+" + digits, nil
}
