package core

import (
	"errors"
	"regexp"
)

// ErrNotFound is a sentinel error for "not found" cases
var ErrNotFound = errors.New("not found")

// ErrNoPersonas is returned when an operation needs at least one active persona
var ErrNoPersonas = errors.New("no active personas configured")

// ErrRoundLimit is returned when a discussion is asked to go past its last round
var ErrRoundLimit = errors.New("discussion round limit exceeded")

// ErrJobLocked is returned when another job already holds the lock for the same target
var ErrJobLocked = errors.New("another job is already running for this target")

var notFoundRegex = regexp.MustCompile(`(?i)not found`)

// IsNotFoundError checks if an error is a "not found" error.
// Handles both the ErrNotFound sentinel and string-based errors from SDK clients.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return true
	}
	return notFoundRegex.MatchString(err.Error())
}
