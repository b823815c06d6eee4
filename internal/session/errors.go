package session

import (
	"errors"
	"fmt"
)

// State-machine violations surfaced synchronously to start/stop callers.
var (
	// ErrAlreadyRunning is returned by start operations while a session is
	// in flight.
	ErrAlreadyRunning = errors.New("profiling session already running")

	// ErrNotRunning is returned by Stop when no session is in flight.
	ErrNotRunning = errors.New("no profiling session running")
)

// DecodeError wraps a failure to decode an encoded configuration blob. A
// decode failure aborts the start attempt before any state mutation.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode profiling config: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
