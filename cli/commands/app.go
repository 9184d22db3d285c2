package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	shortener "github.com/vsavik/url-shortener"
	"github.com/vsavik/url-shortener/adapters"
	"github.com/vsavik/url-shortener/adapters/memory"
	"github.com/vsavik/url-shortener/cli/config"
	"github.com/vsavik/url-shortener/logging"
	"github.com/vsavik/url-shortener/middleware/metrics"
	"github.com/vsavik/url-shortener/middleware/tracing"
	"github.com/vsavik/url-shortener/serializer/msgpack"
	"github.com/vsavik/url-shortener/slug"
	"github.com/vsavik/url-shortener/urlcheck"
)

// App is one in-memory service instance assembled from a Config.
type App struct {
	Service  *shortener.Service
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	tracerProvider *sdktrace.TracerProvider
}

// NewApp builds the service described by cfg. Logs and exported spans go
// to diag.
func NewApp(cfg *config.Config, diag io.Writer) (*App, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: diag,
	})
	if err != nil {
		return nil, err
	}
	logger = logger.With("service", cfg.Service.Name)

	generator, err := slug.New(cfg.Slug.Generator, cfg.Slug.Length)
	if err != nil {
		return nil, err
	}

	validator, err := urlcheck.New(cfg.Validator.Kind, urlcheck.Config{
		MaxLength:       cfg.Validator.MaxLength,
		BlockedDomains:  cfg.Validator.BlockedDomains,
		AllowPrivateIPs: cfg.Validator.AllowPrivateIPs,
	})
	if err != nil {
		return nil, err
	}

	opts := []shortener.Option{
		shortener.WithLogger(logger),
		shortener.WithSlugGenerator(generator),
		shortener.WithURLValidator(validator),
	}

	if cfg.EventLog.Encoding == "msgpack" {
		opts = append(opts, shortener.WithSerializer(msgpack.NewSerializer()))
	}

	app := &App{}
	var log adapters.EventLog = memory.NewEventLog()

	if cfg.Telemetry.Metrics {
		app.Metrics = metrics.New(metrics.WithMetricsServiceName(cfg.Service.Name))
		app.Registry = prometheus.NewRegistry()
		if err := app.Metrics.Register(app.Registry); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		log = app.Metrics.WrapEventLog(log)
		opts = append(opts,
			shortener.WithMiddleware(app.Metrics.CommandMiddleware()),
			shortener.WithEventListener(app.Metrics.EventListener()),
		)
	}

	if cfg.Telemetry.Tracing {
		tp, err := tracing.NewStdoutProvider(diag, false)
		if err != nil {
			return nil, err
		}
		app.tracerProvider = tp
		tracer := tracing.NewTracer(
			tracing.WithTracerProvider(tp),
			tracing.WithServiceName(cfg.Service.Name),
		)
		log = tracer.WrapEventLog(log)
		opts = append(opts,
			shortener.WithMiddleware(tracing.CommandMiddleware(tracer)),
			shortener.WithEventListener(tracing.EventListener()),
		)
	}

	app.Service = shortener.New(log, opts...)
	return app, nil
}

// Close shuts down the service and flushes pending spans.
func (a *App) Close(ctx context.Context) error {
	err := a.Service.Close()
	if a.tracerProvider != nil {
		if shutdownErr := a.tracerProvider.Shutdown(ctx); err == nil {
			err = shutdownErr
		}
	}
	return err
}

// MetricSample is one counter or gauge value.
type MetricSample struct {
	Name   string
	Labels string
	Value  float64
}

// MetricSamples returns the current counter and gauge values, sorted by
// name. It returns nil when metrics are disabled.
func (a *App) MetricSamples() ([]MetricSample, error) {
	if a.Registry == nil {
		return nil, nil
	}

	families, err := a.Registry.Gather()
	if err != nil {
		return nil, err
	}

	var samples []MetricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var value float64
			switch {
			case m.GetCounter() != nil:
				value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				value = m.GetGauge().GetValue()
			default:
				continue
			}

			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				if lp.GetName() == metrics.LabelService {
					continue
				}
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}

			samples = append(samples, MetricSample{
				Name:   mf.GetName(),
				Labels: strings.Join(labels, ","),
				Value:  value,
			})
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}
