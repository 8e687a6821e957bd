package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidateLength rejects values longer than max characters. VARCHAR limits count
// characters, not bytes.
func ValidateLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s too long (max %d characters)", field, max)
	}
	return nil
}

// Truncate shortens value to at most max characters without splitting one,
// then trims trailing space.
func Truncate(value string, max int) string {
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	return strings.TrimSpace(string(runes[:max]))
}
