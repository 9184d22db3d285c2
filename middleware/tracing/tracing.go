// Package tracing provides OpenTelemetry integration for the short-link service.
//
// Basic usage:
//
//	tp := sdktrace.NewTracerProvider(...)
//	otel.SetTracerProvider(tp)
//
//	tracer := tracing.NewTracer()
//	svc := shortener.New(tracer.WrapEventLog(memory.NewEventLog()),
//		shortener.WithMiddleware(tracing.CommandMiddleware(tracer)),
//		shortener.WithEventListener(tracing.EventListener()),
//	)
//
// The tracing middleware captures:
//   - Command type, slug and execution duration
//   - Success/failure status with error details
//   - Correlation and causation IDs
//   - Event log calls as child spans of the command
package tracing

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	shortener "github.com/vsavik/url-shortener"
	"github.com/vsavik/url-shortener/adapters"
)

const (
	// TracerName is the instrumentation name of the shortener tracer.
	TracerName = "github.com/vsavik/url-shortener"

	// DefaultServiceName is the default service name for spans.
	DefaultServiceName = "shortener"
)

// Tracer wraps an OpenTelemetry tracer for shortener operations.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithTracerProvider sets a custom TracerProvider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(t *Tracer) {
		t.tracer = tp.Tracer(TracerName)
	}
}

// WithServiceName sets the service name for spans.
func WithServiceName(name string) TracerOption {
	return func(t *Tracer) {
		t.serviceName = name
	}
}

// NewTracer creates a new Tracer with the global TracerProvider.
func NewTracer(opts ...TracerOption) *Tracer {
	t := &Tracer{
		tracer:      otel.Tracer(TracerName),
		serviceName: DefaultServiceName,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewStdoutProvider returns a TracerProvider exporting spans synchronously
// to w. The caller must Shutdown it.
func NewStdoutProvider(w io.Writer, pretty bool) (*sdktrace.TracerProvider, error) {
	opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
	if pretty {
		opts = append(opts, stdouttrace.WithPrettyPrint())
	}

	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("tracing: create stdout exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)), nil
}

// StartSpan starts a new span with the given name.
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Tracer returns the underlying OpenTelemetry tracer.
func (t *Tracer) Tracer() trace.Tracer {
	return t.tracer
}

// ServiceName returns the configured service name.
func (t *Tracer) ServiceName() string {
	return t.serviceName
}

// CommandMiddleware creates middleware that traces command execution.
func CommandMiddleware(tracer *Tracer) shortener.Middleware {
	return func(next shortener.MiddlewareFunc) shortener.MiddlewareFunc {
		return func(ctx context.Context, cmd shortener.Command) (shortener.CommandResult, error) {
			spanName := fmt.Sprintf("command.%s", cmd.CommandType())

			ctx, span := tracer.StartSpan(ctx, spanName,
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			defer span.End()

			span.SetAttributes(
				attribute.String("shortener.service", tracer.serviceName),
				attribute.String("shortener.command.type", cmd.CommandType()),
			)
			if slug := cmd.AggregateID(); slug != "" {
				span.SetAttributes(attribute.String("shortener.slug", slug))
			}

			if id := shortener.CorrelationIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("shortener.correlation_id", id))
			}
			if id := shortener.CausationIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("shortener.causation_id", id))
			}

			result, err := next(ctx, cmd)

			switch {
			case err != nil:
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			case result.IsError():
				span.RecordError(result.Error)
				span.SetStatus(codes.Error, result.Error.Error())
			default:
				span.SetStatus(codes.Ok, "")
				span.SetAttributes(
					attribute.String("shortener.result.slug", result.AggregateID),
					attribute.Int64("shortener.result.version", result.Version),
				)
			}

			return result, err
		}
	}
}

// EventListener returns a listener that records every published event on
// the span active in the publishing context.
func EventListener() shortener.EventListener {
	return func(ctx context.Context, event shortener.Event) {
		AddEvent(ctx, "event.published", trace.WithAttributes(
			attribute.String("shortener.event.kind", string(event.Kind())),
			attribute.String("shortener.event.id", event.ID),
			attribute.String("shortener.slug", string(event.Slug)),
			attribute.Int64("shortener.event.version", event.Version),
			attribute.Int64("shortener.event.global_position", int64(event.GlobalPosition)),
		))
	}
}

var (
	_ adapters.EventLog      = (*EventLogMiddleware)(nil)
	_ adapters.HealthChecker = (*EventLogMiddleware)(nil)
)

// EventLogMiddleware wraps an adapters.EventLog with tracing.
type EventLogMiddleware struct {
	log    adapters.EventLog
	tracer *Tracer
}

// WrapEventLog wraps an event log with tracing.
func (t *Tracer) WrapEventLog(log adapters.EventLog) *EventLogMiddleware {
	return &EventLogMiddleware{
		log:    log,
		tracer: t,
	}
}

func (m *EventLogMiddleware) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := m.tracer.StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(attribute.String("shortener.service", m.tracer.serviceName))
	span.SetAttributes(attrs...)
	return ctx, span
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

// Append stores events with tracing.
func (m *EventLogMiddleware) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	ctx, span := m.start(ctx, "eventlog.append",
		attribute.String("shortener.stream_id", streamID),
		attribute.Int64("shortener.expected_version", expectedVersion),
		attribute.Int("shortener.events.count", len(events)),
	)
	defer span.End()

	if len(events) > 0 {
		eventTypes := make([]string, len(events))
		for i, e := range events {
			eventTypes[i] = e.Type
		}
		span.SetAttributes(attribute.StringSlice("shortener.events.types", eventTypes))
	}

	stored, err := m.log.Append(ctx, streamID, events, expectedVersion)
	finish(span, err)

	if err == nil && len(stored) > 0 {
		last := stored[len(stored)-1]
		span.SetAttributes(
			attribute.Int64("shortener.stored.version", last.Version),
			attribute.Int64("shortener.stored.global_position", int64(last.GlobalPosition)),
		)
	}

	return stored, err
}

// Load reads a stream with tracing.
func (m *EventLogMiddleware) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	ctx, span := m.start(ctx, "eventlog.load",
		attribute.String("shortener.stream_id", streamID),
		attribute.Int64("shortener.from_version", fromVersion),
	)
	defer span.End()

	events, err := m.log.Load(ctx, streamID, fromVersion)
	finish(span, err)

	if err == nil {
		span.SetAttributes(attribute.Int("shortener.events.loaded", len(events)))
	}

	return events, err
}

// GetStreamInfo returns stream metadata with tracing.
func (m *EventLogMiddleware) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	ctx, span := m.start(ctx, "eventlog.get_stream_info",
		attribute.String("shortener.stream_id", streamID),
	)
	defer span.End()

	info, err := m.log.GetStreamInfo(ctx, streamID)
	finish(span, err)

	if err == nil {
		span.SetAttributes(attribute.Int64("shortener.stream.version", info.Version))
	}

	return info, err
}

// GetLastPosition returns the last global position with tracing.
func (m *EventLogMiddleware) GetLastPosition(ctx context.Context) (uint64, error) {
	ctx, span := m.start(ctx, "eventlog.get_last_position")
	defer span.End()

	pos, err := m.log.GetLastPosition(ctx)
	finish(span, err)

	if err == nil {
		span.SetAttributes(attribute.Int64("shortener.last_position", int64(pos)))
	}

	return pos, err
}

// LoadFromPosition reads the global log with tracing.
func (m *EventLogMiddleware) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	ctx, span := m.start(ctx, "eventlog.load_from_position",
		attribute.Int64("shortener.from_position", int64(fromPosition)),
		attribute.Int("shortener.limit", limit),
	)
	defer span.End()

	events, err := m.log.LoadFromPosition(ctx, fromPosition, limit)
	finish(span, err)

	if err == nil {
		span.SetAttributes(attribute.Int("shortener.events.loaded", len(events)))
	}

	return events, err
}

// Ping forwards to the wrapped log if it supports health checks.
func (m *EventLogMiddleware) Ping(ctx context.Context) error {
	if hc, ok := m.log.(adapters.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped log.
func (m *EventLogMiddleware) Close() error {
	return m.log.Close()
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, opts ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, opts...)
}

// SetError sets an error on the current span.
func SetError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// SetAttributes sets attributes on the current span.
func SetAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attrs...)
}
