package errors

import (
	"errors"
	"fmt"
)

// ErrorType classifies playback errors.
type ErrorType string

const (
	ErrorTypeOpen       ErrorType = "OPEN_ERROR"       // source or decoder failed at open time
	ErrorTypeRead       ErrorType = "READ_ERROR"       // demux read failed mid-playback
	ErrorTypeDecode     ErrorType = "DECODE_ERROR"     // single unit failed to decode
	ErrorTypeDevice     ErrorType = "DEVICE_ERROR"     // hardware decoder or device context unavailable
	ErrorTypeStarvation ErrorType = "STARVATION"       // a consumer found its queue empty
	ErrorTypeShutdown   ErrorType = "SHUTDOWN_TIMEOUT" // a worker failed to stop in time
	ErrorTypeInternal   ErrorType = "INTERNAL_ERROR"
)

// Severity decides what the player-facing layer does with an error.
type Severity int

const (
	// SeverityTransient errors are logged and playback continues.
	SeverityTransient Severity = iota
	// SeverityFatal errors stop playback and surface a single message.
	SeverityFatal
)

// PlayerError is a classified playback error.
type PlayerError struct {
	Type     ErrorType
	Severity Severity
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *PlayerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error.
func (e *PlayerError) Unwrap() error {
	return e.Err
}

// New creates a new PlayerError.
func New(errType ErrorType, severity Severity, message string) *PlayerError {
	return &PlayerError{Type: errType, Severity: severity, Message: message}
}

// Wrap wraps an existing error.
func Wrap(err error, errType ErrorType, severity Severity, message string) *PlayerError {
	return &PlayerError{Type: errType, Severity: severity, Message: message, Err: err}
}

// NewOpenError creates a fatal open-time error. Playback must not start.
func NewOpenError(message string) *PlayerError {
	return New(ErrorTypeOpen, SeverityFatal, message)
}

// WrapOpenError wraps an open-time failure.
func WrapOpenError(err error, message string) *PlayerError {
	return Wrap(err, ErrorTypeOpen, SeverityFatal, message)
}

// WrapReadError wraps a mid-playback read failure. Fatal to the demux stage.
func WrapReadError(err error, message string) *PlayerError {
	return Wrap(err, ErrorTypeRead, SeverityFatal, message)
}

// WrapDecodeError wraps a per-unit decode failure. The pipeline skips the
// unit and continues.
func WrapDecodeError(err error, message string) *PlayerError {
	return Wrap(err, ErrorTypeDecode, SeverityTransient, message)
}

// WrapDeviceError wraps a hardware decoder or device-context failure. Not
// fatal unless hardware decode is required by configuration.
func WrapDeviceError(err error, message string) *PlayerError {
	return Wrap(err, ErrorTypeDevice, SeverityTransient, message)
}

// NewStarvationError marks a queue-empty condition. Diagnostic only.
func NewStarvationError(message string) *PlayerError {
	return New(ErrorTypeStarvation, SeverityTransient, message)
}

// NewShutdownTimeoutError marks a worker that did not observe stop in time.
func NewShutdownTimeoutError(message string) *PlayerError {
	return New(ErrorTypeShutdown, SeverityFatal, message)
}

// IsFatal reports whether err should stop playback.
func IsFatal(err error) bool {
	var pe *PlayerError
	if errors.As(err, &pe) {
		return pe.Severity == SeverityFatal
	}
	return false
}

// GetPlayerError extracts a PlayerError from an error chain.
func GetPlayerError(err error) (*PlayerError, bool) {
	var pe *PlayerError
	ok := errors.As(err, &pe)
	return pe, ok
}
