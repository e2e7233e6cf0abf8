package utils

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxTextLength bounds free-text fields such as cancel reasons and audit notes
const MaxTextLength = 1000

var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// SanitizeString removes control characters and surrounding whitespace.
// Newlines and tabs are kept.
func SanitizeString(s string) string {
	return strings.TrimSpace(controlChars.ReplaceAllString(s, ""))
}

// ValidateText checks a sanitized free-text value against MaxTextLength
func ValidateText(field, s string) error {
	if n := utf8.RuneCountInString(s); n > MaxTextLength {
		return fmt.Errorf("%s exceeds %d characters: %d", field, MaxTextLength, n)
	}
	return nil
}
