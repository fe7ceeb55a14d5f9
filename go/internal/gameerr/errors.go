// Package gameerr defines the error taxonomy shared by the session core.
//
// Callers match on the five base sentinels with errors.Is; every specific
// condition wraps exactly one of them.
package gameerr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrCapacityExceeded  = errors.New("capacity exceeded")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrConfiguration     = errors.New("configuration error")
)

var (
	ErrSessionNotFound  = fmt.Errorf("%w: session", ErrNotFound)
	ErrLobbyNotFound    = fmt.Errorf("%w: lobby", ErrNotFound)
	ErrPlayerNotFound   = fmt.Errorf("%w: player", ErrNotFound)
	ErrStoreUnavailable = fmt.Errorf("%w: backing store unavailable", ErrNotFound)

	ErrNotYourTurn      = fmt.Errorf("%w: not your turn", ErrInvalidTransition)
	ErrSessionFinished  = fmt.Errorf("%w: session already finished", ErrInvalidTransition)
	ErrWrongStage       = fmt.Errorf("%w: lobby is no longer accepting changes", ErrInvalidTransition)
	ErrAlreadyJoined    = fmt.Errorf("%w: player already joined", ErrInvalidTransition)
	ErrNotHost          = fmt.Errorf("%w: only the host can start", ErrInvalidTransition)
	ErrSeatsNotReady    = fmt.Errorf("%w: every seat must be filled and ready", ErrInvalidTransition)
	ErrAlreadyQueued    = fmt.Errorf("%w: player already queued", ErrInvalidTransition)
	ErrNoCompatibleTier = fmt.Errorf("%w: no compatible stake tier", ErrNotFound)
	ErrVersionConflict  = fmt.Errorf("%w: session changed on another instance", ErrInvalidTransition)
)

// Code is a machine-readable error classification.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeCapacityExceeded  Code = "CAPACITY_EXCEEDED"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeConfiguration     Code = "CONFIGURATION"
	CodeInternal          Code = "INTERNAL"
)

// Kind classifies err into one of the taxonomy codes.
func Kind(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return CodeConfiguration
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrCapacityExceeded):
		return CodeCapacityExceeded
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	default:
		return CodeInternal
	}
}

// Recoverable reports whether err is a typed rejection the caller can act on
// without the operation having mutated any state.
func Recoverable(err error) bool {
	switch Kind(err) {
	case CodeNotFound, CodeInvalidTransition, CodeCapacityExceeded, CodeInsufficientFunds:
		return true
	default:
		return false
	}
}
