package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when no quiz is running in a channel.
	ErrSessionNotFound = errors.New("no quiz is in progress")
	// ErrAlreadyInProgress is returned when a quiz is started twice.
	ErrAlreadyInProgress = errors.New("a quiz is already in progress")
	// ErrNoActiveRound is returned by skip when the session is not running.
	ErrNoActiveRound = errors.New("no active round")
	// ErrBackendUnavailable marks failures of the question/audio backend.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrNoQuestions is returned when the backend yields nothing to play.
	ErrNoQuestions = errors.New("no questions available")
	// ErrInvalidOptions is returned for out-of-range rounds or time limits.
	ErrInvalidOptions = errors.New("invalid quiz options")
	// ErrSessionClosed is returned when starting a session that already ran or was ended.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrInvalidQuestion marks a malformed song payload.
	ErrInvalidQuestion = errors.New("invalid question")
)

func invalidQuestion(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuestion, reason)
}
