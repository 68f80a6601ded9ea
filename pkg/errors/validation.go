package errors

import (
	"strings"
	"unicode"
)

// ValidateLayerName validates a layer name for safety and correctness.
// Layer names come from user input (CLI flags, HTTP payloads) and are echoed
// back in diagnostics, so they must be printable and of reasonable length.
func ValidateLayerName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "layer name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "layer name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "layer name contains invalid control characters")
		}
	}

	return nil
}

// ValidateOutputPath validates an output file path for safety.
// It prevents null bytes and control characters and ensures reasonable length.
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "output path cannot be empty")
	}

	if len(path) > 500 {
		return New(ErrCodeInvalidInput, "output path too long (max 500 characters)")
	}

	if strings.Contains(path, "\x00") {
		return New(ErrCodeInvalidInput, "output path contains null byte")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "output path contains invalid control characters")
		}
	}

	return nil
}
