package gpuenc

import (
	"errors"
	"fmt"
)

// Encoder state errors.
var (
	// ErrEncoderLocked is reported when a command is issued while a pass is
	// active. The encoder becomes invalid.
	ErrEncoderLocked = errors.New("gpuenc: encoder state is locked")

	// ErrEncoderEnded is reported when a command is issued after Finish.
	ErrEncoderEnded = errors.New("gpuenc: encoder state is ended")

	// ErrEncoderInvalid is returned by Finish and Err for an encoder that
	// recorded a validation failure.
	ErrEncoderInvalid = errors.New("gpuenc: encoder state is invalid")
)

// Validation and resource errors.
var (
	// ErrValidation is the target of every *ValidationError.
	ErrValidation = errors.New("gpuenc: validation failed")

	// ErrNilBackend is returned by NewDevice for a nil native device.
	ErrNilBackend = errors.New("gpuenc: native device is nil")

	// ErrDeviceMismatch is used when a resource belongs to another device.
	ErrDeviceMismatch = errors.New("gpuenc: resource belongs to another device")

	// ErrDestroyed is returned when a destroyed resource is accessed outside
	// of an encoder.
	ErrDestroyed = errors.New("gpuenc: resource is destroyed")

	// ErrSubmitInvalid is reported when a submitted command buffer references
	// a resource destroyed after it was encoded.
	ErrSubmitInvalid = errors.New("gpuenc: command buffer references a destroyed resource")

	// ErrCommandBufferUsed is reported when a command buffer is submitted twice.
	ErrCommandBufferUsed = errors.New("gpuenc: command buffer already submitted")

	// ErrNotSupported is returned when the native device lacks an optional
	// capability, such as buffer uploads or readback.
	ErrNotSupported = errors.New("gpuenc: not supported by the native device")
)

// ValidationError describes a command that broke an API rule. It is the
// reason recorded by an invalid encoder or pass.
type ValidationError struct {
	// Op is the command that failed, e.g. "CopyBufferToBuffer".
	Op string

	// Reason is a human-readable description of the broken rule.
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return "gpuenc: " + e.Op + ": " + e.Reason
}

// Unwrap returns ErrValidation.
func (e *ValidationError) Unwrap() error { return ErrValidation }

// invalidf builds a *ValidationError with a formatted reason.
func invalidf(op, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
