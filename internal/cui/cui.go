// Package cui validates and normalizes Romanian fiscal identification codes
// (CUI / CIF). The last digit is a control digit computed with a weighted
// modulo-11 sum over the remaining digits.
package cui

import (
	"errors"
	"strings"
	"unicode"
)

const controlKey = "753217532"

var (
	ErrEmpty    = errors.New("cui is empty")
	ErrFormat   = errors.New("cui must contain 2 to 10 digits")
	ErrChecksum = errors.New("cui control digit mismatch")
)

// Clean strips whitespace, punctuation and an optional "RO" prefix, returning
// only the digits of the code. It does not validate the result.
func Clean(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) || unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "RO")
}

// Validate reports whether raw is a well-formed CUI with a correct control digit.
func Validate(raw string) error {
	digits := Clean(raw)
	if digits == "" {
		return ErrEmpty
	}
	if len(digits) < 2 || len(digits) > 10 {
		return ErrFormat
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return ErrFormat
		}
	}

	body := digits[:len(digits)-1]
	want := int(digits[len(digits)-1] - '0')

	padded := strings.Repeat("0", len(controlKey)-len(body)) + body
	sum := 0
	for i := range controlKey {
		sum += int(padded[i]-'0') * int(controlKey[i]-'0')
	}
	control := sum * 10 % 11
	if control == 10 {
		control = 0
	}
	if control != want {
		return ErrChecksum
	}
	return nil
}

// IsValid is a boolean shorthand for Validate.
func IsValid(raw string) bool {
	return Validate(raw) == nil
}

// HasROPrefix reports whether the code was written with the VAT "RO" prefix,
// which marks a VAT-registered company.
func HasROPrefix(raw string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), "RO")
}
