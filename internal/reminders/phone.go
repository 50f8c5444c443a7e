package reminders

import (
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts a North American contact number to E.164.
// Ten digits get +1, eleven digits starting with 1 get +, and values already
// starting with + pass through when they are at least eleven characters long.
func NormalizePhone(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, raw)

	switch {
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits, nil
	case len(digits) == 10:
		return "+1" + digits, nil
	case strings.HasPrefix(raw, "+") && len(raw) >= 11:
		return raw, nil
	default:
		return "", ErrInvalidPhone
	}
}
