// Package bdd provides Given-When-Then fixtures for short link aggregates
// and for commands dispatched through a Service.
package bdd

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	shortener "github.com/vsavik/url-shortener"
	"github.com/vsavik/url-shortener/adapters"
	"github.com/vsavik/url-shortener/adapters/memory"
)

// TB is an alias for testing.TB interface to allow mocking in tests
type TB = testing.TB

// LinkFixture runs one aggregate transition over a fresh in-memory broker.
type LinkFixture struct {
	t         TB
	ctx       context.Context
	slug      shortener.Slug
	given     []interface{}
	generator shortener.SlugGenerator
	validator shortener.URLValidator

	broker     *shortener.Broker
	projection *shortener.StatsProjection
	aggregate  *shortener.ShortLinkAggregate

	mu        sync.Mutex
	published []shortener.Event

	result   error
	executed bool
}

// Given sets up the history of slug. Events are payloads, LinkCreated or
// LinkRedirected. An empty slug makes the aggregate take a generated one.
func Given(t TB, slug shortener.Slug, events ...interface{}) *LinkFixture {
	t.Helper()
	return &LinkFixture{
		t:     t,
		ctx:   context.Background(),
		slug:  slug,
		given: events,
	}
}

// WithContext sets the context passed to the transition.
func (f *LinkFixture) WithContext(ctx context.Context) *LinkFixture {
	f.ctx = ctx
	return f
}

// WithGenerator sets the slug generator of the aggregate.
func (f *LinkFixture) WithGenerator(g shortener.SlugGenerator) *LinkFixture {
	f.generator = g
	return f
}

// WithValidator sets the URL validator of the aggregate.
func (f *LinkFixture) WithValidator(v shortener.URLValidator) *LinkFixture {
	f.validator = v
	return f
}

// When publishes the given history, rehydrates a fresh aggregate and runs
// transition against it. Only events published by transition are recorded.
func (f *LinkFixture) When(transition func(ctx context.Context, a *shortener.ShortLinkAggregate) error) *LinkFixture {
	f.t.Helper()

	f.projection = shortener.NewStatsProjection()
	f.broker = shortener.NewBroker(memory.NewEventLog(), f.projection,
		shortener.WithBrokerListener(f.record))

	for _, data := range f.given {
		if _, err := f.broker.Publish(f.ctx, adapters.AnyVersion, shortener.NewEvent(f.slug, data)); err != nil {
			f.t.Fatalf("Failed to publish given event %T: %v", data, err)
		}
	}
	f.mu.Lock()
	f.published = nil
	f.mu.Unlock()

	f.aggregate = shortener.NewShortLinkAggregate(f.broker, f.generator, f.validator)
	var err error
	if f.slug == "" {
		err = f.aggregate.AssignRandomSlug(f.ctx)
	} else {
		err = f.aggregate.Rehydrate(f.ctx, f.slug)
	}
	if err != nil {
		f.t.Fatalf("Failed to rehydrate %q: %v", f.slug, err)
	}

	f.result = transition(f.ctx, f.aggregate)
	f.executed = true

	return f
}

func (f *LinkFixture) record(_ context.Context, event shortener.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, event)
}

func (f *LinkFixture) payloads() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.published))
	for i, e := range f.published {
		out[i] = e.Data
	}
	return out
}

func (f *LinkFixture) mustHaveRun(step string) {
	f.t.Helper()
	if !f.executed {
		f.t.Fatalf("bdd: %s must be called after When() - no transition was run", step)
	}
}

// Then asserts that the transition succeeded and published exactly the
// expected payloads.
func (f *LinkFixture) Then(expectedEvents ...interface{}) *LinkFixture {
	f.t.Helper()
	f.mustHaveRun("Then()")

	if f.result != nil {
		f.t.Fatalf("Expected success but got error: %v", f.result)
	}

	actual := f.payloads()
	if len(actual) != len(expectedEvents) {
		f.t.Fatalf("Expected %d events, got %d.\nExpected: %+v\nActual: %+v",
			len(expectedEvents), len(actual), expectedEvents, actual)
	}

	for i, expected := range expectedEvents {
		if !reflect.DeepEqual(actual[i], expected) {
			f.t.Errorf("Event %d mismatch:\nExpected: %+v\nActual: %+v",
				i, expected, actual[i])
		}
	}
	return f
}

// ThenError asserts that the transition failed with expectedErr and
// published nothing.
func (f *LinkFixture) ThenError(expectedErr error) {
	f.t.Helper()
	f.mustHaveRun("ThenError()")

	if f.result == nil {
		f.t.Fatal("Expected error but got success")
	}

	if !errors.Is(f.result, expectedErr) {
		f.t.Errorf("Expected error %v, got %v", expectedErr, f.result)
	}

	if n := len(f.payloads()); n > 0 {
		f.t.Errorf("Expected no events on failure, got %d", n)
	}
}

// ThenErrorContains asserts that the error message contains a substring.
func (f *LinkFixture) ThenErrorContains(substring string) {
	f.t.Helper()
	f.mustHaveRun("ThenErrorContains()")

	if f.result == nil {
		f.t.Fatal("Expected error but got success")
	}

	if !strings.Contains(f.result.Error(), substring) {
		f.t.Errorf("Expected error containing %q, got %q", substring, f.result.Error())
	}
}

// ThenNoEvents asserts that the transition succeeded without publishing.
func (f *LinkFixture) ThenNoEvents() {
	f.t.Helper()
	f.mustHaveRun("ThenNoEvents()")

	if f.result != nil {
		f.t.Fatalf("Expected success but got error: %v", f.result)
	}

	if actual := f.payloads(); len(actual) > 0 {
		f.t.Errorf("Expected no events, got %d: %+v", len(actual), actual)
	}
}

// ThenState asserts the aggregate snapshot and version after the transition.
func (f *LinkFixture) ThenState(expected shortener.ShortLink, version int64) *LinkFixture {
	f.t.Helper()
	f.mustHaveRun("ThenState()")

	if got := f.aggregate.State(); got != expected {
		f.t.Errorf("Expected state %+v, got %+v", expected, got)
	}
	if got := f.aggregate.Version(); got != version {
		f.t.Errorf("Expected version %d, got %d", version, got)
	}
	return f
}

// ThenStats asserts the projected statistics of the aggregate's slug.
func (f *LinkFixture) ThenStats(expected shortener.Stats) *LinkFixture {
	f.t.Helper()
	f.mustHaveRun("ThenStats()")

	got, ok := f.projection.Get(f.aggregate.Slug())
	if !ok {
		f.t.Fatalf("Expected statistics for %q, found none", f.aggregate.Slug())
	}
	if got != expected {
		f.t.Errorf("Expected stats %+v, got %+v", expected, got)
	}
	return f
}

// CommandTestFixture runs one command through a Service's bus.
type CommandTestFixture struct {
	t     TB
	ctx   context.Context
	svc   *shortener.Service
	given []struct {
		slug  shortener.Slug
		event interface{}
	}
	result   shortener.CommandResult
	err      error
	executed bool
}

// GivenCommand creates a new command test fixture over svc.
func GivenCommand(t TB, svc *shortener.Service) *CommandTestFixture {
	t.Helper()
	return &CommandTestFixture{
		t:   t,
		ctx: context.Background(),
		svc: svc,
	}
}

// WithContext sets a custom context for the command execution.
func (f *CommandTestFixture) WithContext(ctx context.Context) *CommandTestFixture {
	f.ctx = ctx
	return f
}

// WithExistingEvents queues history for slug, published before dispatch.
func (f *CommandTestFixture) WithExistingEvents(slug shortener.Slug, events ...interface{}) *CommandTestFixture {
	for _, event := range events {
		f.given = append(f.given, struct {
			slug  shortener.Slug
			event interface{}
		}{slug: slug, event: event})
	}
	return f
}

// WithExistingLink queues a LinkCreated binding slug to url.
func (f *CommandTestFixture) WithExistingLink(slug shortener.Slug, url shortener.URL) *CommandTestFixture {
	return f.WithExistingEvents(slug, shortener.LinkCreated{Slug: slug, URL: url})
}

// When dispatches the command.
func (f *CommandTestFixture) When(cmd shortener.Command) *CommandTestFixture {
	f.t.Helper()

	for _, g := range f.given {
		if _, err := f.svc.Broker().Publish(f.ctx, adapters.AnyVersion, shortener.NewEvent(g.slug, g.event)); err != nil {
			f.t.Fatalf("Failed to publish given event: %v", err)
		}
	}

	f.result, f.err = f.svc.Dispatch(f.ctx, cmd)
	f.executed = true
	return f
}

// ThenSucceeds asserts the command succeeded.
func (f *CommandTestFixture) ThenSucceeds() *CommandTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenSucceeds() must be called after When() - no command was dispatched")
	}

	if f.err != nil {
		f.t.Fatalf("Expected success but got error: %v", f.err)
	}

	if !f.result.IsSuccess() {
		f.t.Fatalf("Expected success result but got error: %v", f.result.Error)
	}

	return f
}

// ThenFails asserts the command failed with the expected error.
func (f *CommandTestFixture) ThenFails(expectedErr error) {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenFails() must be called after When() - no command was dispatched")
	}

	if f.err == nil && f.result.IsSuccess() {
		f.t.Fatal("Expected failure but got success")
	}

	errToCheck := f.err
	if errToCheck == nil {
		errToCheck = f.result.Error
	}

	if !errors.Is(errToCheck, expectedErr) {
		f.t.Errorf("Expected error %v, got %v", expectedErr, errToCheck)
	}
}

// ThenReturnsAggregateID asserts the result names the expected slug.
func (f *CommandTestFixture) ThenReturnsAggregateID(expected string) *CommandTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenReturnsAggregateID() must be called after When() - no command was dispatched")
	}

	if f.result.AggregateID != expected {
		f.t.Errorf("Expected aggregate ID %q, got %q", expected, f.result.AggregateID)
	}

	return f
}

// ThenReturnsVersion asserts the result contains the expected version.
func (f *CommandTestFixture) ThenReturnsVersion(expected int64) *CommandTestFixture {
	f.t.Helper()

	if !f.executed {
		f.t.Fatal("bdd: ThenReturnsVersion() must be called after When() - no command was dispatched")
	}

	if f.result.Version != expected {
		f.t.Errorf("Expected version %d, got %d", expected, f.result.Version)
	}

	return f
}

// ThenRedirects asserts the projected redirect count of slug.
func (f *CommandTestFixture) ThenRedirects(slug shortener.Slug, expected uint64) *CommandTestFixture {
	f.t.Helper()

	stats, err := f.svc.GetStats(f.ctx, slug)
	if err != nil {
		f.t.Fatalf("Expected statistics for %q: %v", slug, err)
	}
	if stats.Redirects != expected {
		f.t.Errorf("Expected %d redirects, got %d", expected, stats.Redirects)
	}
	return f
}
