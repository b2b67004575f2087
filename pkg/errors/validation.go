package errors

import (
	"math"
	"strings"
	"unicode"
)

// maxNodeNameLength bounds node names accepted from files and the API.
const maxNodeNameLength = 512

// ValidateNodeName validates a node name read from an external source.
//
// The validation rules are intentionally conservative:
//   - No empty or whitespace-only names
//   - No control characters or null bytes
//   - Maximum length of 512 bytes
func ValidateNodeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidGraph, "node name cannot be empty")
	}

	if len(name) > maxNodeNameLength {
		return New(ErrCodeInvalidGraph, "node name too long (max %d characters)", maxNodeNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidGraph, "node name %q contains control characters", name)
		}
	}

	return nil
}

// ValidateWeight rejects negative, NaN and infinite edge weights.
func ValidateWeight(source, target string, w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) {
		return New(ErrCodeInvalidGraph, "edge %s -> %s has non-finite weight", source, target)
	}
	if w < 0 {
		return New(ErrCodeInvalidGraph, "edge %s -> %s has negative weight %g", source, target, w)
	}
	return nil
}

// ValidatePath validates an output path supplied on the command line.
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
