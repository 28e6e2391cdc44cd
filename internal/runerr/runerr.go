// Package runerr defines the error taxonomy of a pipeline run and the
// exit-code contract with the CLI.
package runerr

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap an error with one sentinel so the CLI can map it
// to an exit code and callers can branch with errors.Is.
var (
	ErrManifest   = errors.New("manifest error")
	ErrGraph      = errors.New("graph error")
	ErrFetch      = errors.New("fetch error")
	ErrProjection = errors.New("projection error")
	ErrMerge      = errors.New("merge error")
	ErrTemplate   = errors.New("template error")
	ErrWrite      = errors.New("write error")
)

// Exit codes advertised to the CLI.
const (
	ExitOK       = 0
	ExitGeneral  = 1
	ExitManifest = 2
	ExitFetch    = 3
)

// Wrap tags err with a kind sentinel while keeping the cause chain.
func Wrap(kind, err error) error {
	return fmt.Errorf("%w: %w", kind, err)
}

// Wrapf tags a formatted error with a kind sentinel.
func Wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %w", kind, fmt.Errorf(format, args...))
}

// ExitCode maps an error to the CLI exit-code contract.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrManifest):
		return ExitManifest
	case errors.Is(err, ErrFetch):
		return ExitFetch
	default:
		return ExitGeneral
	}
}
