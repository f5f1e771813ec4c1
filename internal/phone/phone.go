// Package phone normalizes Uzbekistan mobile numbers. The client contract is
// E.164 with the +998 country code; the SMS gateway and the ERP both address
// subscribers by the last nine digits.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

var e164UZ = regexp.MustCompile(`^\+998[0-9]{9}$`)

// ErrInvalid indicates the value is not a valid Uzbekistan phone number.
var ErrInvalid = errors.New("invalid phone number")

// Number holds the accepted representations of one phone number.
type Number struct {
	// Raw is the E.164 form as submitted, e.g. "+998901234567".
	Raw string
	// Digits is Raw stripped to digits only.
	Digits string
	// Last9 is the subscriber part used by the SMS gateway and ERP lookups.
	Last9 string
}

// Normalize validates an E.164 +998 number and derives its digit forms.
func Normalize(raw string) (Number, error) {
	raw = strings.TrimSpace(raw)
	if !e164UZ.MatchString(raw) {
		return Number{}, ErrInvalid
	}

	digits := strings.TrimPrefix(raw, "+")
	return Number{
		Raw:    raw,
		Digits: digits,
		Last9:  digits[len(digits)-9:],
	}, nil
}

// Valid reports whether raw is an acceptable E.164 +998 number.
func Valid(raw string) bool {
	_, err := Normalize(raw)
	return err == nil
}
