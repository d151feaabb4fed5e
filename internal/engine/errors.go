package engine

import (
	"errors"
	"fmt"
)

// EngineError represents a failure of the engine process or its protocol.
//
// Engine errors include:
//   - Spawn failure: binary missing or unstartable
//   - Handshake failure: unexpected line shape, missing uciok, bad option line
//   - I/O failure: a pipe broke while servicing a command
//   - Engine stopped: the driver has terminated, no more commands are accepted
//   - Queue full: the bounded command queue rejected a command
//
// EngineError includes structured fields for diagnostics.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed (e.g. "start process", "write").
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeSpawnFailed indicates the engine binary could not be started.
	CodeSpawnFailed ErrorCode = "SPAWN_FAILED"

	// CodeHandshakeFailed indicates the startup exchange did not complete.
	CodeHandshakeFailed ErrorCode = "HANDSHAKE_FAILED"

	// CodeIOFailed indicates a read or write on the engine pipes failed.
	CodeIOFailed ErrorCode = "IO_FAILED"

	// CodeEngineStopped indicates the driver is no longer running.
	CodeEngineStopped ErrorCode = "ENGINE_STOPPED"

	// CodeQueueFull indicates the command queue is at capacity.
	CodeQueueFull ErrorCode = "QUEUE_FULL"
)

var (
	// ErrEngineStopped matches any EngineError with CodeEngineStopped.
	ErrEngineStopped = &EngineError{Code: CodeEngineStopped, Message: "engine is not running"}

	// ErrQueueFull matches any EngineError with CodeQueueFull.
	ErrQueueFull = &EngineError{Code: CodeQueueFull, Message: "command queue is full"}
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Message
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches sentinel engine errors by code.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return (t == ErrEngineStopped || t == ErrQueueFull) && t.Code == e.Code
}

// IsSpawnError returns true if the engine process could not be started.
// Uses errors.As to handle wrapped errors.
func IsSpawnError(err error) bool {
	return hasCode(err, CodeSpawnFailed)
}

// IsHandshakeError returns true if the handshake failed.
func IsHandshakeError(err error) bool {
	return hasCode(err, CodeHandshakeFailed)
}

// IsIOError returns true if a pipe operation failed.
func IsIOError(err error) bool {
	return hasCode(err, CodeIOFailed)
}

// hasCode walks nested engine errors, so a stopped error caused by an I/O
// failure matches both codes.
func hasCode(err error, code ErrorCode) bool {
	for err != nil {
		var ee *EngineError
		if !errors.As(err, &ee) {
			return false
		}
		if ee.Code == code {
			return true
		}
		err = ee.Err
	}
	return false
}

func spawnError(op string, err error) *EngineError {
	return &EngineError{Code: CodeSpawnFailed, Op: op, Message: "cannot start engine", Err: err}
}

func handshakeError(msg string, err error) *EngineError {
	return &EngineError{Code: CodeHandshakeFailed, Op: "handshake", Message: msg, Err: err}
}

func ioError(op string, err error) *EngineError {
	return &EngineError{Code: CodeIOFailed, Op: op, Message: "engine pipe failed", Err: err}
}

// stoppedError wraps the cause that ended the driver, if any.
func stoppedError(cause error) error {
	if cause == nil {
		return ErrEngineStopped
	}
	return &EngineError{Code: CodeEngineStopped, Message: "engine is not running", Err: cause}
}
