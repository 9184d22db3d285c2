package shortener

import (
	"context"
	"fmt"
	"sync"

	"github.com/vsavik/url-shortener/adapters"
)

// EventBroker is the event sink and source an aggregate works against.
type EventBroker interface {
	// Publish appends one event to its slug's stream and folds it into the
	// read model. expectedVersion is checked against the stream version,
	// see adapters.CheckVersion. The returned event carries its stored
	// position.
	Publish(ctx context.Context, expectedVersion int64, event Event) (Event, error)

	// Stream returns every event of a slug in order. An unknown slug has an
	// empty stream.
	Stream(ctx context.Context, slug Slug) ([]Event, error)
}

// EventListener is called after an event has been published.
type EventListener func(ctx context.Context, event Event)

var _ EventBroker = (*Broker)(nil)

// Broker is the single mutation gateway of the service. It appends events to
// the event log and folds them into an inline projection under one lock, so
// a published event is visible to every subsequent read of either.
type Broker struct {
	mu         sync.RWMutex
	log        adapters.EventLog
	projection InlineProjection
	serializer Serializer
	listeners  []EventListener
	logger     Logger
}

// BrokerOption configures a Broker.
type BrokerOption func(*Broker)

// WithBrokerSerializer sets the payload serializer. Defaults to JSON.
func WithBrokerSerializer(s Serializer) BrokerOption {
	return func(b *Broker) {
		if s != nil {
			b.serializer = s
		}
	}
}

// WithBrokerLogger sets the broker's logger.
func WithBrokerLogger(l Logger) BrokerOption {
	return func(b *Broker) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithBrokerListener registers a listener notified of every published event.
func WithBrokerListener(l EventListener) BrokerOption {
	return func(b *Broker) {
		if l != nil {
			b.listeners = append(b.listeners, l)
		}
	}
}

// NewBroker creates a Broker over an event log and a projection.
func NewBroker(log adapters.EventLog, projection InlineProjection, opts ...BrokerOption) *Broker {
	b := &Broker{
		log:        log,
		projection: projection,
		serializer: NewJSONSerializer(),
		logger:     &noopLogger{},
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Publish appends event to the log and folds it into the projection.
// Correlation and causation IDs found on ctx are stamped into the event
// metadata.
func (b *Broker) Publish(ctx context.Context, expectedVersion int64, event Event) (Event, error) {
	if event.Slug == "" {
		return Event{}, adapters.ErrEmptyStreamID
	}

	event.Metadata = stampMetadata(ctx, event.Metadata)

	record, err := encodeEvent(b.serializer, event)
	if err != nil {
		return Event{}, err
	}

	published, err := b.appendAndFold(ctx, event, record, expectedVersion)
	if err != nil {
		return Event{}, err
	}

	b.logger.Debug("Event published",
		"slug", published.Slug,
		"kind", published.Kind(),
		"version", published.Version,
		"position", published.GlobalPosition,
	)

	for _, l := range b.listeners {
		l(ctx, published)
	}

	return published, nil
}

func (b *Broker) appendAndFold(ctx context.Context, event Event, record adapters.EventRecord, expectedVersion int64) (Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stored, err := b.log.Append(ctx, StreamIDFor(event.Slug), []adapters.EventRecord{record}, expectedVersion)
	if err != nil {
		return Event{}, err
	}

	published := eventFromStored(stored[0], event.Data)
	if err := b.projection.Apply(ctx, published); err != nil {
		b.logger.Error("Projection apply failed",
			"projection", b.projection.Name(),
			"slug", published.Slug,
			"error", err,
		)
		return published, fmt.Errorf("shortener: projection %s: %w", b.projection.Name(), err)
	}

	return published, nil
}

// Stream returns the deserialized event history of a slug.
func (b *Broker) Stream(ctx context.Context, slug Slug) ([]Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stored, err := b.log.Load(ctx, StreamIDFor(slug), 0)
	if err != nil {
		return nil, err
	}

	events := make([]Event, len(stored))
	for i, s := range stored {
		event, err := decodeEvent(b.serializer, s)
		if err != nil {
			return nil, fmt.Errorf("shortener: failed to deserialize event %d of %q: %w", i, slug, err)
		}
		events[i] = event
	}

	return events, nil
}

// replayBatchSize is the page size used when replaying the whole log.
const replayBatchSize = 500

// Replay resets the projection and folds every event of the log into it in
// global order. Publishing is blocked while the replay runs. It returns the
// number of events replayed.
func (b *Broker) Replay(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.projection.Reset()

	var position uint64
	replayed := 0
	for {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}

		batch, err := b.log.LoadFromPosition(ctx, position, replayBatchSize)
		if err != nil {
			return replayed, err
		}
		if len(batch) == 0 {
			break
		}

		for _, stored := range batch {
			position = stored.GlobalPosition

			if _, ok := SlugFromStreamID(stored.StreamID); !ok {
				continue
			}

			event, err := decodeEvent(b.serializer, stored)
			if err != nil {
				return replayed, err
			}
			if err := b.projection.Apply(ctx, event); err != nil {
				return replayed, err
			}
			replayed++
		}
	}

	b.logger.Info("Projection rebuilt",
		"projection", b.projection.Name(),
		"events", replayed,
	)

	return replayed, nil
}

// stampMetadata copies correlation and causation IDs from ctx into m unless
// m already carries them.
func stampMetadata(ctx context.Context, m Metadata) Metadata {
	if m.CorrelationID == "" {
		m.CorrelationID = CorrelationIDFromContext(ctx)
	}
	if m.CausationID == "" {
		m.CausationID = CausationIDFromContext(ctx)
	}
	return m
}
