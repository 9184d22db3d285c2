package shortener

// Shared test doubles for the shortener package tests.

import (
	"context"
	"errors"
	"sync"

	"github.com/vsavik/url-shortener/adapters"
	"github.com/vsavik/url-shortener/adapters/memory"
)

// testLogger records log messages by level.
type testLogger struct {
	mu        sync.Mutex
	debugLogs []string
	infoLogs  []string
	warnLogs  []string
	errorLogs []string
}

func newTestLogger() *testLogger {
	return &testLogger{}
}

func (l *testLogger) Debug(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debugLogs = append(l.debugLogs, msg)
}

func (l *testLogger) Info(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infoLogs = append(l.infoLogs, msg)
}

func (l *testLogger) Warn(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warnLogs = append(l.warnLogs, msg)
}

func (l *testLogger) Error(msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLogs = append(l.errorLogs, msg)
}

func (l *testLogger) infoMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.infoLogs...)
}

func (l *testLogger) errorMessages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errorLogs...)
}

// fakeBroker is an in-memory EventBroker that records every publish.
type fakeBroker struct {
	mu        sync.Mutex
	streams   map[Slug][]Event
	published []Event
	position  uint64

	publishErr error
	streamErr  error
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{streams: make(map[Slug][]Event)}
}

// seed appends events to a stream without recording them as published.
func (b *fakeBroker) seed(slug Slug, payloads ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range payloads {
		b.position++
		b.streams[slug] = append(b.streams[slug], Event{
			Slug:           slug,
			Data:           p,
			Version:        int64(len(b.streams[slug]) + 1),
			GlobalPosition: b.position,
		})
	}
}

func (b *fakeBroker) Publish(ctx context.Context, expectedVersion int64, event Event) (Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.publishErr != nil {
		return Event{}, b.publishErr
	}

	current := int64(len(b.streams[event.Slug]))
	if err := adapters.CheckVersion(StreamIDFor(event.Slug), expectedVersion, current, current > 0); err != nil {
		return Event{}, err
	}

	b.position++
	event.Version = current + 1
	event.GlobalPosition = b.position
	b.streams[event.Slug] = append(b.streams[event.Slug], event)
	b.published = append(b.published, event)
	return event, nil
}

func (b *fakeBroker) Stream(ctx context.Context, slug Slug) ([]Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamErr != nil {
		return nil, b.streamErr
	}
	return append([]Event(nil), b.streams[slug]...), nil
}

func (b *fakeBroker) publishedEvents() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Event(nil), b.published...)
}

var errBoom = errors.New("boom")

// fixedSlugs returns a generator that hands out the given slugs in order
// and then repeats the last one.
func fixedSlugs(slugs ...Slug) SlugGenerator {
	var mu sync.Mutex
	i := 0
	return SlugGeneratorFunc(func() Slug {
		mu.Lock()
		defer mu.Unlock()
		s := slugs[i]
		if i < len(slugs)-1 {
			i++
		}
		return s
	})
}

func newTestService(opts ...Option) (*Service, *memory.EventLog) {
	log := memory.NewEventLog()
	return New(log, opts...), log
}
