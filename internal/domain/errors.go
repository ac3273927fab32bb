package domain

import "errors"

var (
	// ErrInvalidEvent marks a malformed incoming event. Such events are
	// discarded before trust evaluation.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrInvalidSignal marks a malformed ML signal set. The bid engine
	// degrades to the conservative strategy and reports the error.
	ErrInvalidSignal = errors.New("invalid ml signal")

	// ErrOracleUnavailable marks a scoring oracle failure or timeout.
	ErrOracleUnavailable = errors.New("scoring oracle unavailable")
)
