package errors

import (
	"unicode"
)

// ValidateFormatName validates a format identifier for safety and correctness.
// Format names are used as graph node keys and cache key components, so the
// rules are intentionally conservative:
//   - No empty names
//   - Lowercase letters and digits only
//   - Maximum length of 64 characters
func ValidateFormatName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFormat, "format name cannot be empty")
	}

	if len(name) > 64 {
		return New(ErrCodeInvalidFormat, "format name too long (max 64 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFormat, "format name contains control characters")
		}
		if !unicode.IsLower(r) && !unicode.IsDigit(r) {
			return New(ErrCodeInvalidFormat, "format name must be lowercase alphanumeric: %q", name)
		}
	}

	return nil
}
