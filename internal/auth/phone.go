package auth

import (
	"regexp"
	"strings"

	"github.com/hackx/skillos/internal/errors"
)

// CodeLength is the number of digits in an SMS one-time passcode.
const CodeLength = 6

// e164Pattern matches a leading '+', a non-zero country digit and up to 14 more digits.
var e164Pattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// phoneNoise matches the separators users commonly type into phone numbers.
var phoneNoise = regexp.MustCompile(`[\s\-()]`)

// PhoneFormatMessage is shown for phone numbers that fail validation.
const PhoneFormatMessage = "Please enter a valid phone number in E.164 format (e.g., +1234567890)"

// SanitizePhone strips whitespace, dashes and parentheses.
func SanitizePhone(phone string) string {
	return phoneNoise.ReplaceAllString(phone, "")
}

// ValidatePhone checks that a sanitized number is in E.164 format.
func ValidatePhone(phone string) error {
	if !e164Pattern.MatchString(phone) {
		return errors.New(errors.ErrValidation, PhoneFormatMessage, "")
	}
	return nil
}

// SanitizeCode keeps only the digits of a typed passcode.
func SanitizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ValidateCode checks that a sanitized passcode has exactly CodeLength digits.
func ValidateCode(code string) error {
	if len(code) != CodeLength {
		return errors.New(errors.ErrValidation, "Enter the 6-digit code we sent you", "")
	}
	return nil
}
