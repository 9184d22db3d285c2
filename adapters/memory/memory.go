// Package memory provides the in-memory event log used by the short-link
// service. The log lives for the lifetime of the process.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vsavik/url-shortener/adapters"
)

// Version constants re-exported for convenience.
const (
	AnyVersion   = adapters.AnyVersion
	NoStream     = adapters.NoStream
	StreamExists = adapters.StreamExists
)

var (
	_ adapters.EventLog      = (*EventLog)(nil)
	_ adapters.HealthChecker = (*EventLog)(nil)
)

// EventLog is an in-memory, thread-safe implementation of adapters.EventLog.
type EventLog struct {
	mu             sync.RWMutex
	streams        map[string]*streamData
	globalEvents   []adapters.StoredEvent
	globalPosition uint64
	closed         bool
	now            func() time.Time
}

type streamData struct {
	info   adapters.StreamInfo
	events []adapters.StoredEvent
}

// Option configures an EventLog.
type Option func(*EventLog)

// WithClock overrides the clock used to timestamp events.
func WithClock(now func() time.Time) Option {
	return func(l *EventLog) {
		if now != nil {
			l.now = now
		}
	}
}

// NewEventLog creates an empty in-memory event log.
func NewEventLog(opts ...Option) *EventLog {
	l := &EventLog{
		streams:      make(map[string]*streamData),
		globalEvents: make([]adapters.StoredEvent, 0),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Append stores events to the specified stream with optimistic concurrency control.
func (l *EventLog) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrAdapterClosed
	}

	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	if len(events) == 0 {
		return nil, ErrNoEvents
	}

	stream, exists := l.streams[streamID]
	currentVersion := int64(0)
	if exists {
		currentVersion = stream.info.Version
	}

	if err := adapters.CheckVersion(streamID, expectedVersion, currentVersion, exists); err != nil {
		return nil, err
	}

	now := l.now()
	if !exists {
		stream = &streamData{
			info: adapters.StreamInfo{
				StreamID:  streamID,
				Category:  adapters.ExtractCategory(streamID),
				CreatedAt: now,
				UpdatedAt: now,
			},
			events: make([]adapters.StoredEvent, 0, len(events)),
		}
		l.streams[streamID] = stream
	}

	stored := make([]adapters.StoredEvent, len(events))
	for i, event := range events {
		l.globalPosition++
		currentVersion++

		// The log keeps its own copy so callers cannot rewrite history.
		kept := adapters.StoredEvent{
			ID:             uuid.New().String(),
			StreamID:       streamID,
			Type:           event.Type,
			Data:           event.Data,
			Metadata:       event.Metadata,
			Version:        currentVersion,
			GlobalPosition: l.globalPosition,
			Timestamp:      now,
		}.Clone()

		stream.events = append(stream.events, kept)
		l.globalEvents = append(l.globalEvents, kept)
		stored[i] = kept.Clone()
	}

	stream.info.Version = currentVersion
	stream.info.EventCount = int64(len(stream.events))
	stream.info.UpdatedAt = now

	return stored, nil
}

// Load returns the events of a stream newer than fromVersion.
// An unknown stream yields an empty slice.
func (l *EventLog) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrAdapterClosed
	}

	if streamID == "" {
		return nil, ErrEmptyStreamID
	}

	stream, exists := l.streams[streamID]
	if !exists {
		return []adapters.StoredEvent{}, nil
	}

	events := make([]adapters.StoredEvent, 0, len(stream.events))
	for _, event := range stream.events {
		if event.Version > fromVersion {
			events = append(events, event.Clone())
		}
	}

	return events, nil
}

// GetStreamInfo returns metadata about a stream.
func (l *EventLog) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrAdapterClosed
	}

	stream, exists := l.streams[streamID]
	if !exists {
		return nil, NewStreamNotFoundError(streamID)
	}

	info := stream.info
	return &info, nil
}

// GetLastPosition returns the global position of the last stored event.
func (l *EventLog) GetLastPosition(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return 0, ErrAdapterClosed
	}

	return l.globalPosition, nil
}

// LoadFromPosition returns up to limit events after the given global position.
func (l *EventLog) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrAdapterClosed
	}

	limit = adapters.DefaultLimit(limit, 1000)

	// Global positions are dense and 1-based, so the slice index is position-1.
	if fromPosition >= uint64(len(l.globalEvents)) {
		return []adapters.StoredEvent{}, nil
	}

	end := int(fromPosition) + limit
	if end > len(l.globalEvents) {
		end = len(l.globalEvents)
	}

	events := make([]adapters.StoredEvent, 0, end-int(fromPosition))
	for _, event := range l.globalEvents[fromPosition:end] {
		events = append(events, event.Clone())
	}
	return events, nil
}

// Ping reports whether the log is open.
func (l *EventLog) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return ErrAdapterClosed
	}

	return nil
}

// Close marks the log closed. Further operations fail with ErrAdapterClosed.
func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	return nil
}

// EventCount returns the total number of events stored.
func (l *EventLog) EventCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.globalEvents)
}

// StreamCount returns the number of streams.
func (l *EventLog) StreamCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.streams)
}
