package utils

import "strings"

// NormalizePhoneNumber converts a Kenyan mobile number to the canonical
// international form: 254 followed by nine digits. Accepted inputs are
// "07XXXXXXXX" (leading zero), "7XXXXXXXX" (bare local part) and
// "2547XXXXXXXX" (already international), with any spacing or
// punctuation. The result is stable under re-normalization.
func NormalizePhoneNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "254"):
		return digits
	case strings.HasPrefix(digits, "0"):
		return "254" + digits[1:]
	default:
		return "254" + digits
	}
}
