package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateCategory validates a drawing category name for safety.
// Category names become part of output file names, so names that could be
// used for path traversal are rejected.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateCategory(name string) error {
	if name == "" {
		return New(ErrCodeInvalidCategory, "category cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidCategory, "category too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidCategory, "category contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidCategory, "category contains invalid characters: %q", pattern)
		}
	}

	if !categoryRegex.MatchString(name) {
		return New(ErrCodeInvalidCategory, "invalid category name: %q", name)
	}

	return nil
}

// categoryRegex matches QuickDraw category names such as "apple" or
// "The Eiffel Tower".
var categoryRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 ._-]*$`)

// ValidatePath validates an output path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateGridSize checks that size is one of the supported output resolutions.
func ValidateGridSize(size int) error {
	switch size {
	case 14, 28:
		return nil
	default:
		return New(ErrCodeInvalidSize, "unsupported grid size %d (must be 14 or 28)", size)
	}
}
