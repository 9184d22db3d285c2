package shortener

import (
	"errors"
	"fmt"

	"github.com/vsavik/url-shortener/adapters"
)

// Domain errors. These are the only failures a caller sees for a
// well-formed request, and they are terminal: retrying will not help.
var (
	// ErrInvalidURL indicates the target URL failed validation.
	ErrInvalidURL = errors.New("shortener: invalid url")

	// ErrSlugAlreadyInUse indicates the slug already has a link.
	ErrSlugAlreadyInUse = errors.New("shortener: slug already in use")

	// ErrSlugNotFound indicates the slug does not map to any link.
	ErrSlugNotFound = errors.New("shortener: slug not found")
)

// Infrastructure errors.
var (
	// ErrConcurrencyConflict indicates an optimistic concurrency violation in the event log.
	ErrConcurrencyConflict = adapters.ErrConcurrencyConflict

	// ErrAdapterClosed indicates the event log has been closed.
	ErrAdapterClosed = adapters.ErrAdapterClosed

	// ErrSerializationFailed indicates event serialization or deserialization failed.
	ErrSerializationFailed = errors.New("shortener: serialization failed")

	// ErrUnknownEventType indicates an event payload of an unsupported type.
	ErrUnknownEventType = errors.New("shortener: unknown event type")

	// ErrNilCommand indicates a nil command was dispatched.
	ErrNilCommand = errors.New("shortener: nil command")

	// ErrHandlerNotFound indicates no handler is registered for a command type.
	ErrHandlerNotFound = errors.New("shortener: handler not found")

	// ErrHandlerPanicked indicates a handler panicked during execution.
	ErrHandlerPanicked = errors.New("shortener: handler panicked")

	// ErrCommandBusClosed indicates the command bus has been closed.
	ErrCommandBusClosed = errors.New("shortener: command bus closed")

	// ErrServiceClosed indicates the service has been shut down.
	ErrServiceClosed = errors.New("shortener: service closed")
)

// IsDomainError reports whether err is one of the domain errors.
func IsDomainError(err error) bool {
	return errors.Is(err, ErrInvalidURL) ||
		errors.Is(err, ErrSlugAlreadyInUse) ||
		errors.Is(err, ErrSlugNotFound)
}

// LinkError records a failed operation on a short link, in the manner of
// os.PathError. errors.Is matches the wrapped sentinel.
type LinkError struct {
	Op   string
	Slug Slug
	Err  error
}

// Error returns the error message.
func (e *LinkError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, string(e.Slug), e.Err)
}

// Unwrap returns the underlying sentinel.
func (e *LinkError) Unwrap() error {
	return e.Err
}

// NewLinkError creates a new LinkError.
func NewLinkError(op string, slug Slug, err error) *LinkError {
	return &LinkError{Op: op, Slug: slug, Err: err}
}

// SerializationError provides detailed information about a serialization failure.
type SerializationError struct {
	EventType string
	Operation string // "serialize" or "deserialize"
	Cause     error
}

// Error returns the error message.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("shortener: failed to %s event type %q: %v",
		e.Operation, e.EventType, e.Cause)
}

// Is reports whether this error matches the target error.
func (e *SerializationError) Is(target error) bool {
	return target == ErrSerializationFailed
}

// Unwrap returns the underlying cause.
func (e *SerializationError) Unwrap() error {
	return e.Cause
}

// NewSerializationError creates a new SerializationError.
func NewSerializationError(eventType, operation string, cause error) *SerializationError {
	return &SerializationError{
		EventType: eventType,
		Operation: operation,
		Cause:     cause,
	}
}

// HandlerNotFoundError provides detailed information about a missing handler.
type HandlerNotFoundError struct {
	CommandType string
}

// Error returns the error message.
func (e *HandlerNotFoundError) Error() string {
	return fmt.Sprintf("shortener: no handler registered for command type %q", e.CommandType)
}

// Is reports whether this error matches the target error.
func (e *HandlerNotFoundError) Is(target error) bool {
	return target == ErrHandlerNotFound
}

// Unwrap returns the underlying error.
func (e *HandlerNotFoundError) Unwrap() error {
	return ErrHandlerNotFound
}

// NewHandlerNotFoundError creates a new HandlerNotFoundError.
func NewHandlerNotFoundError(cmdType string) *HandlerNotFoundError {
	return &HandlerNotFoundError{CommandType: cmdType}
}

// PanicError provides detailed information about a handler panic.
type PanicError struct {
	CommandType string
	Value       interface{}
	Stack       string
	CommandData string // JSON rendering of the command, if available
}

// Error returns the error message.
func (e *PanicError) Error() string {
	return fmt.Sprintf("shortener: handler panicked while processing %q: %v", e.CommandType, e.Value)
}

// Is reports whether this error matches the target error.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanicked
}

// Unwrap returns the underlying error.
func (e *PanicError) Unwrap() error {
	return ErrHandlerPanicked
}

// NewPanicError creates a new PanicError.
func NewPanicError(cmdType string, value interface{}, stack string) *PanicError {
	return &PanicError{
		CommandType: cmdType,
		Value:       value,
		Stack:       stack,
	}
}
