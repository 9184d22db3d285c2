// Package metrics provides Prometheus metrics for the short-link service.
//
// Basic usage:
//
//	m := metrics.New(metrics.WithMetricsServiceName("shortener"))
//	m.MustRegister()
//
//	svc := shortener.New(m.WrapEventLog(memory.NewEventLog()),
//		shortener.WithMiddleware(m.CommandMiddleware()),
//		shortener.WithEventListener(m.EventListener()),
//	)
//
// The metrics collected include:
//   - Command execution counts, durations and in-flight gauges
//   - Command rejections and failures by error type
//   - Event log operations (append, load, replay reads)
//   - Published events by kind
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	shortener "github.com/vsavik/url-shortener"
	"github.com/vsavik/url-shortener/adapters"
)

// Metric labels.
const (
	LabelCommandType = "command_type"
	LabelEventType   = "event_type"
	LabelOperation   = "operation"
	LabelStatus      = "status"
	LabelErrorType   = "error_type"
	LabelService     = "service"
)

// Status values.
const (
	StatusSuccess  = "success"
	StatusRejected = "rejected"
	StatusError    = "error"
)

// Operation values.
const (
	OperationAppend           = "append"
	OperationLoad             = "load"
	OperationLoadFromPosition = "load_from_position"
	OperationGetStreamInfo    = "get_stream_info"
	OperationGetLastPosition  = "get_last_position"
)

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	namespace   string
	subsystem   string
	serviceName string

	commandsTotal    *prometheus.CounterVec
	commandDuration  *prometheus.HistogramVec
	commandsInFlight *prometheus.GaugeVec

	eventLogOperationsTotal   *prometheus.CounterVec
	eventLogOperationDuration *prometheus.HistogramVec
	eventsAppendedTotal       *prometheus.CounterVec
	eventsLoadedTotal         *prometheus.CounterVec

	eventsPublishedTotal *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// MetricsOption configures Metrics.
type MetricsOption func(*Metrics)

// WithNamespace sets the Prometheus namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(m *Metrics) {
		m.namespace = namespace
	}
}

// WithSubsystem sets the Prometheus subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(m *Metrics) {
		m.subsystem = subsystem
	}
}

// WithMetricsServiceName sets the service name label.
func WithMetricsServiceName(name string) MetricsOption {
	return func(m *Metrics) {
		m.serviceName = name
	}
}

// New creates a new Metrics instance.
func New(opts ...MetricsOption) *Metrics {
	m := &Metrics{
		namespace:   "shortener",
		serviceName: "unknown",
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initMetrics()
	return m
}

func (m *Metrics) initMetrics() {
	m.commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "commands_total",
			Help:      "Total number of commands processed.",
		},
		[]string{LabelService, LabelCommandType, LabelStatus},
	)

	m.commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "command_duration_seconds",
			Help:      "Duration of command processing in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelService, LabelCommandType},
	)

	m.commandsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "commands_in_flight",
			Help:      "Number of commands currently being processed.",
		},
		[]string{LabelService, LabelCommandType},
	)

	m.eventLogOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "eventlog_operations_total",
			Help:      "Total number of event log operations.",
		},
		[]string{LabelService, LabelOperation, LabelStatus},
	)

	m.eventLogOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "eventlog_operation_duration_seconds",
			Help:      "Duration of event log operations in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{LabelService, LabelOperation},
	)

	m.eventsAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_appended_total",
			Help:      "Total number of events appended to the log.",
		},
		[]string{LabelService, LabelEventType},
	)

	m.eventsLoadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_loaded_total",
			Help:      "Total number of events read from the log.",
		},
		[]string{LabelService},
	)

	m.eventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_published_total",
			Help:      "Total number of events published and projected.",
		},
		[]string{LabelService, LabelEventType},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_total",
			Help:      "Total number of command errors by type.",
		},
		[]string{LabelService, LabelErrorType},
	)
}

// Collectors returns all Prometheus collectors for registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.commandsTotal,
		m.commandDuration,
		m.commandsInFlight,
		m.eventLogOperationsTotal,
		m.eventLogOperationDuration,
		m.eventsAppendedTotal,
		m.eventsLoadedTotal,
		m.eventsPublishedTotal,
		m.errorsTotal,
	}
}

// MustRegister registers all collectors with the default registry.
// Panics if registration fails.
func (m *Metrics) MustRegister() {
	prometheus.MustRegister(m.Collectors()...)
}

// Register registers all collectors with the given registry.
func (m *Metrics) Register(registry prometheus.Registerer) error {
	for _, collector := range m.Collectors() {
		if err := registry.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// CommandMiddleware returns middleware that records command metrics.
// Domain rejections are counted with status "rejected", everything else
// that fails with status "error".
func (m *Metrics) CommandMiddleware() shortener.Middleware {
	return func(next shortener.MiddlewareFunc) shortener.MiddlewareFunc {
		return func(ctx context.Context, cmd shortener.Command) (shortener.CommandResult, error) {
			cmdType := cmd.CommandType()

			m.commandsInFlight.WithLabelValues(m.serviceName, cmdType).Inc()
			defer m.commandsInFlight.WithLabelValues(m.serviceName, cmdType).Dec()

			start := time.Now()
			result, err := next(ctx, cmd)
			m.commandDuration.WithLabelValues(m.serviceName, cmdType).Observe(time.Since(start).Seconds())

			// A failed result without an error is still counted as a failure.
			failure := err
			if failure == nil && result.IsError() {
				failure = result.Error
			}

			status := StatusSuccess
			switch {
			case failure == nil:
			case shortener.IsDomainError(failure):
				status = StatusRejected
				m.errorsTotal.WithLabelValues(m.serviceName, errorTypeName(failure)).Inc()
			default:
				status = StatusError
				m.errorsTotal.WithLabelValues(m.serviceName, errorTypeName(failure)).Inc()
			}

			m.commandsTotal.WithLabelValues(m.serviceName, cmdType, status).Inc()

			return result, err
		}
	}
}

// EventListener returns a listener counting published events by kind.
func (m *Metrics) EventListener() shortener.EventListener {
	return func(ctx context.Context, event shortener.Event) {
		m.eventsPublishedTotal.WithLabelValues(m.serviceName, string(event.Kind())).Inc()
	}
}

// errorTypeName maps an error to a metric label.
func errorTypeName(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, shortener.ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, shortener.ErrSlugAlreadyInUse):
		return "slug_already_in_use"
	case errors.Is(err, shortener.ErrSlugNotFound):
		return "slug_not_found"
	case errors.Is(err, shortener.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, shortener.ErrHandlerNotFound):
		return "handler_not_found"
	case errors.Is(err, shortener.ErrHandlerPanicked):
		return "handler_panicked"
	case errors.Is(err, shortener.ErrSerializationFailed):
		return "serialization_failed"
	case errors.Is(err, shortener.ErrUnknownEventType):
		return "unknown_event_type"
	case errors.Is(err, shortener.ErrNilCommand):
		return "nil_command"
	case errors.Is(err, shortener.ErrServiceClosed):
		return "service_closed"
	case errors.Is(err, adapters.ErrEmptyStreamID):
		return "empty_stream_id"
	case errors.Is(err, adapters.ErrAdapterClosed):
		return "adapter_closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "context"
	default:
		return "unknown"
	}
}

var (
	_ adapters.EventLog      = (*EventLogMiddleware)(nil)
	_ adapters.HealthChecker = (*EventLogMiddleware)(nil)
)

// EventLogMiddleware wraps an adapters.EventLog with metrics.
type EventLogMiddleware struct {
	log     adapters.EventLog
	metrics *Metrics
}

// WrapEventLog wraps an event log with metrics collection.
func (m *Metrics) WrapEventLog(log adapters.EventLog) *EventLogMiddleware {
	return &EventLogMiddleware{
		log:     log,
		metrics: m,
	}
}

func (em *EventLogMiddleware) observe(operation string, start time.Time, err error) {
	em.metrics.eventLogOperationDuration.WithLabelValues(em.metrics.serviceName, operation).Observe(time.Since(start).Seconds())

	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	em.metrics.eventLogOperationsTotal.WithLabelValues(em.metrics.serviceName, operation, status).Inc()
}

// Append stores events with metrics.
func (em *EventLogMiddleware) Append(ctx context.Context, streamID string, events []adapters.EventRecord, expectedVersion int64) ([]adapters.StoredEvent, error) {
	start := time.Now()
	stored, err := em.log.Append(ctx, streamID, events, expectedVersion)
	em.observe(OperationAppend, start, err)

	if err == nil {
		for _, e := range events {
			em.metrics.eventsAppendedTotal.WithLabelValues(em.metrics.serviceName, e.Type).Inc()
		}
	}

	return stored, err
}

// Load reads a stream with metrics.
func (em *EventLogMiddleware) Load(ctx context.Context, streamID string, fromVersion int64) ([]adapters.StoredEvent, error) {
	start := time.Now()
	events, err := em.log.Load(ctx, streamID, fromVersion)
	em.observe(OperationLoad, start, err)

	if err == nil {
		em.metrics.eventsLoadedTotal.WithLabelValues(em.metrics.serviceName).Add(float64(len(events)))
	}

	return events, err
}

// GetStreamInfo returns stream metadata with metrics.
func (em *EventLogMiddleware) GetStreamInfo(ctx context.Context, streamID string) (*adapters.StreamInfo, error) {
	start := time.Now()
	info, err := em.log.GetStreamInfo(ctx, streamID)
	em.observe(OperationGetStreamInfo, start, err)
	return info, err
}

// GetLastPosition returns the last global position with metrics.
func (em *EventLogMiddleware) GetLastPosition(ctx context.Context) (uint64, error) {
	start := time.Now()
	pos, err := em.log.GetLastPosition(ctx)
	em.observe(OperationGetLastPosition, start, err)
	return pos, err
}

// LoadFromPosition reads the global log with metrics.
func (em *EventLogMiddleware) LoadFromPosition(ctx context.Context, fromPosition uint64, limit int) ([]adapters.StoredEvent, error) {
	start := time.Now()
	events, err := em.log.LoadFromPosition(ctx, fromPosition, limit)
	em.observe(OperationLoadFromPosition, start, err)

	if err == nil {
		em.metrics.eventsLoadedTotal.WithLabelValues(em.metrics.serviceName).Add(float64(len(events)))
	}

	return events, err
}

// Ping forwards to the wrapped log if it supports health checks.
func (em *EventLogMiddleware) Ping(ctx context.Context) error {
	if hc, ok := em.log.(adapters.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	return nil
}

// Close closes the wrapped log.
func (em *EventLogMiddleware) Close() error {
	return em.log.Close()
}

// CommandsTotal returns the commands counter.
func (m *Metrics) CommandsTotal() *prometheus.CounterVec {
	return m.commandsTotal
}

// CommandDuration returns the command duration histogram.
func (m *Metrics) CommandDuration() *prometheus.HistogramVec {
	return m.commandDuration
}

// CommandsInFlight returns the in-flight commands gauge.
func (m *Metrics) CommandsInFlight() *prometheus.GaugeVec {
	return m.commandsInFlight
}

// EventLogOperationsTotal returns the event log operations counter.
func (m *Metrics) EventLogOperationsTotal() *prometheus.CounterVec {
	return m.eventLogOperationsTotal
}

// EventsAppendedTotal returns the events appended counter.
func (m *Metrics) EventsAppendedTotal() *prometheus.CounterVec {
	return m.eventsAppendedTotal
}

// EventsLoadedTotal returns the events loaded counter.
func (m *Metrics) EventsLoadedTotal() *prometheus.CounterVec {
	return m.eventsLoadedTotal
}

// EventsPublishedTotal returns the published events counter.
func (m *Metrics) EventsPublishedTotal() *prometheus.CounterVec {
	return m.eventsPublishedTotal
}

// ErrorsTotal returns the errors counter.
func (m *Metrics) ErrorsTotal() *prometheus.CounterVec {
	return m.errorsTotal
}
