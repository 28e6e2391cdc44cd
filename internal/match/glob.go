// Package match provides glob matching and rename rules for tree paths.
package match

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidatePatterns checks every pattern for glob syntax errors.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern: %q", p)
		}
	}
	return nil
}

// Glob reports whether path matches the pattern. Patterns support
// "*", "**", "?" and character classes.
func Glob(pattern, path string) (bool, error) {
	ok, err := doublestar.Match(pattern, path)
	if err != nil {
		return false, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}
	return ok, nil
}

// Any reports whether path matches any of the patterns.
func Any(patterns []string, path string) (bool, error) {
	for _, p := range patterns {
		ok, err := Glob(p, path)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
