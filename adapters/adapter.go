// Package adapters provides the event log contract and shared helpers for
// short-link event log backends.
package adapters

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for event log implementations.
// Implementations should return these (or errors that match via errors.Is)
// so callers can handle failures the same way for every backend.
var (
	// ErrConcurrencyConflict is returned when the optimistic concurrency check fails.
	ErrConcurrencyConflict = errors.New("shortener: concurrency conflict")

	// ErrStreamNotFound is returned when a stream does not exist.
	ErrStreamNotFound = errors.New("shortener: stream not found")

	// ErrEmptyStreamID is returned when an empty stream ID is provided.
	ErrEmptyStreamID = errors.New("shortener: stream ID is required")

	// ErrNoEvents is returned when attempting to append zero events.
	ErrNoEvents = errors.New("shortener: no events to append")

	// ErrInvalidVersion is returned when an invalid expected version is specified.
	ErrInvalidVersion = errors.New("shortener: invalid version")

	// ErrAdapterClosed is returned when operations are attempted on a closed log.
	ErrAdapterClosed = errors.New("shortener: event log is closed")
)

// Metadata carries event context for tracing.
type Metadata struct {
	// CorrelationID links all events caused by one external request.
	CorrelationID string `json:"correlationId,omitempty"`

	// CausationID identifies the command that caused this event.
	CausationID string `json:"causationId,omitempty"`

	// Custom holds any additional metadata.
	Custom map[string]string `json:"custom,omitempty"`
}

// Clone returns a copy of m that shares no map with it.
func (m Metadata) Clone() Metadata {
	if m.Custom == nil {
		return m
	}
	custom := make(map[string]string, len(m.Custom))
	for k, v := range m.Custom {
		custom[k] = v
	}
	m.Custom = custom
	return m
}

// StoredEvent is a persisted event with its storage metadata.
type StoredEvent struct {
	// ID is the unique event identifier.
	ID string

	// StreamID is the stream this event belongs to.
	StreamID string

	// Type is the event type identifier.
	Type string

	// Data is the serialized event payload.
	Data []byte

	// Metadata contains contextual information.
	Metadata Metadata

	// Version is the position within the stream (1-based).
	Version int64

	// GlobalPosition is the ordering position across all streams (1-based).
	GlobalPosition uint64

	// Timestamp is when the event was stored.
	Timestamp time.Time
}

// Clone returns a copy of e that shares no payload bytes or metadata map
// with it.
func (e StoredEvent) Clone() StoredEvent {
	if e.Data != nil {
		e.Data = append([]byte(nil), e.Data...)
	}
	e.Metadata = e.Metadata.Clone()
	return e
}

// StreamInfo contains metadata about an event stream.
type StreamInfo struct {
	StreamID   string
	Category   string
	Version    int64
	EventCount int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EventRecord is an event to be appended to a stream.
type EventRecord struct {
	// Type is the event type identifier.
	Type string

	// Data is the serialized event payload.
	Data []byte

	// Metadata contains optional contextual information.
	Metadata Metadata
}

// EventLog is the append-only store of domain events keyed by stream.
// Events are never removed or reordered.
type EventLog interface {
	// Append stores events to the specified stream with optimistic concurrency control.
	// expectedVersion specifies the expected current version of the stream:
	//   - AnyVersion (-1): skip the version check
	//   - NoStream (0): stream must not exist
	//   - StreamExists (-2): stream must exist
	//   - any positive number: stream must be at exactly this version
	// Returns the stored events with their assigned positions.
	Append(ctx context.Context, streamID string, events []EventRecord, expectedVersion int64) ([]StoredEvent, error)

	// Load returns the events of a stream with a version greater than fromVersion,
	// in order. An unknown stream yields an empty slice, not an error.
	Load(ctx context.Context, streamID string, fromVersion int64) ([]StoredEvent, error)

	// GetStreamInfo returns metadata about a stream.
	// Returns ErrStreamNotFound if the stream does not exist.
	GetStreamInfo(ctx context.Context, streamID string) (*StreamInfo, error)

	// GetLastPosition returns the global position of the last stored event,
	// or 0 if the log is empty.
	GetLastPosition(ctx context.Context) (uint64, error)

	// LoadFromPosition returns up to limit events with a global position
	// greater than fromPosition, ordered by global position.
	LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]StoredEvent, error)

	// Close releases any resources held by the log.
	Close() error
}

// HealthChecker provides health check capabilities.
type HealthChecker interface {
	// Ping reports whether the log is usable.
	Ping(ctx context.Context) error
}
