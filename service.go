package shortener

import (
	"context"

	"github.com/google/uuid"

	"github.com/vsavik/url-shortener/adapters"
)

var _ QueryHandler = (*Service)(nil)

// Service owns one instance of the short-link engine: the event log, the
// broker, the statistics projection and the command bus. Create it with New
// at startup and release it with Close at shutdown.
type Service struct {
	log        adapters.EventLog
	projection *StatsProjection
	broker     *Broker
	bus        *CommandBus
	generator  SlugGenerator
	validator  URLValidator
	logger     Logger
	locks      *slugLocks
}

type serviceConfig struct {
	serializer Serializer
	generator  SlugGenerator
	validator  URLValidator
	logger     Logger
	middleware []Middleware
	listeners  []EventListener
}

// Option configures a Service.
type Option func(*serviceConfig)

// WithLogger sets the logger used by the service, its broker and its
// logging middleware.
func WithLogger(l Logger) Option {
	return func(c *serviceConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSerializer sets the event payload serializer. Defaults to JSON.
func WithSerializer(s Serializer) Option {
	return func(c *serviceConfig) {
		if s != nil {
			c.serializer = s
		}
	}
}

// WithSlugGenerator sets the generator used for links created without a
// slug. Defaults to TimestampSlugs.
func WithSlugGenerator(g SlugGenerator) Option {
	return func(c *serviceConfig) {
		if g != nil {
			c.generator = g
		}
	}
}

// WithURLValidator sets the URL validator. Defaults to IsValidURL.
func WithURLValidator(v URLValidator) Option {
	return func(c *serviceConfig) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithMiddleware appends command middleware. It runs inside the built-in
// recovery, correlation and logging middleware.
func WithMiddleware(middleware ...Middleware) Option {
	return func(c *serviceConfig) {
		c.middleware = append(c.middleware, middleware...)
	}
}

// WithEventListener registers a listener notified of every published event.
func WithEventListener(l EventListener) Option {
	return func(c *serviceConfig) {
		if l != nil {
			c.listeners = append(c.listeners, l)
		}
	}
}

// New creates a Service over an event log.
func New(log adapters.EventLog, opts ...Option) *Service {
	cfg := &serviceConfig{
		serializer: NewJSONSerializer(),
		generator:  TimestampSlugs(),
		validator:  URLValidatorFunc(IsValidURL),
		logger:     &noopLogger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	projection := NewStatsProjection()

	brokerOpts := []BrokerOption{
		WithBrokerSerializer(cfg.serializer),
		WithBrokerLogger(cfg.logger),
	}
	for _, l := range cfg.listeners {
		brokerOpts = append(brokerOpts, WithBrokerListener(l))
	}

	s := &Service{
		log:        log,
		projection: projection,
		broker:     NewBroker(log, projection, brokerOpts...),
		generator:  cfg.generator,
		validator:  cfg.validator,
		logger:     cfg.logger,
		locks:      newSlugLocks(),
	}

	s.bus = NewCommandBus(
		WithBusMiddleware(
			RecoveryMiddleware(),
			CorrelationIDMiddleware(nil),
			CausationIDMiddleware(),
			NewLoggingMiddleware(cfg.logger).Middleware(),
		),
		WithBusMiddleware(cfg.middleware...),
	)
	s.bus.Register(NewGenericHandler(s.handleCreate))
	s.bus.Register(NewGenericHandler(s.handleRedirect))

	return s
}

// HandleCreateShortLink creates a link from slug to url. An empty slug asks
// the slug generator for one.
func (s *Service) HandleCreateShortLink(ctx context.Context, url URL, slug Slug) (ShortLink, error) {
	result, err := s.Dispatch(ctx, CreateShortLink{
		CommandBase: CommandBase{CommandID: uuid.NewString()},
		URL:         url,
		Slug:        slug,
	})
	if err != nil {
		return ShortLink{}, err
	}
	return result.Link, nil
}

// HandleRedirect resolves slug and counts the visit.
func (s *Service) HandleRedirect(ctx context.Context, slug Slug) (ShortLink, error) {
	result, err := s.Dispatch(ctx, RedirectLink{
		CommandBase: CommandBase{CommandID: uuid.NewString()},
		Slug:        slug,
	})
	if err != nil {
		return ShortLink{}, err
	}
	return result.Link, nil
}

// Dispatch sends a command through the service's command bus.
func (s *Service) Dispatch(ctx context.Context, cmd Command) (CommandResult, error) {
	if s.bus.IsClosed() {
		return NewErrorResult(ErrServiceClosed), ErrServiceClosed
	}
	return s.bus.Dispatch(ctx, cmd)
}

// GetStats returns the statistics of slug from the projection. It never
// reads the event log.
func (s *Service) GetStats(ctx context.Context, slug Slug) (Stats, error) {
	if s.bus.IsClosed() {
		return Stats{}, ErrServiceClosed
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}

	stats, ok := s.projection.Get(slug)
	if !ok {
		return Stats{}, NewLinkError("stats", slug, ErrSlugNotFound)
	}
	return stats, nil
}

// Events returns the recorded history of slug, oldest first.
func (s *Service) Events(ctx context.Context, slug Slug) ([]Event, error) {
	if s.bus.IsClosed() {
		return nil, ErrServiceClosed
	}
	return s.broker.Stream(ctx, slug)
}

// RebuildProjection discards the statistics and refolds them from the whole
// event log. It returns the number of events replayed.
func (s *Service) RebuildProjection(ctx context.Context) (int, error) {
	if s.bus.IsClosed() {
		return 0, ErrServiceClosed
	}
	return s.broker.Replay(ctx)
}

// Projection returns the statistics projection.
func (s *Service) Projection() *StatsProjection {
	return s.projection
}

// Broker returns the service's event broker.
func (s *Service) Broker() *Broker {
	return s.broker
}

// Close shuts the service down and closes its event log.
// Calls after the first are no-ops.
func (s *Service) Close() error {
	if !s.bus.shutdown() {
		return nil
	}
	return s.log.Close()
}

func (s *Service) handleCreate(ctx context.Context, cmd CreateShortLink) (CommandResult, error) {
	agg := NewShortLinkAggregate(s.broker, s.generator, s.validator)

	if cmd.Slug == "" {
		// A generated slug is rehydrated before it can be locked. A creation
		// racing in between is still caught by the NoStream check on append.
		if err := agg.AssignRandomSlug(ctx); err != nil {
			return NewErrorResult(err), err
		}
		unlock := s.locks.lock(agg.Slug())
		defer unlock()
	} else {
		unlock := s.locks.lock(cmd.Slug)
		defer unlock()

		if err := agg.Rehydrate(ctx, cmd.Slug); err != nil {
			return NewErrorResult(err), err
		}
	}

	link, err := agg.Create(ctx, cmd.URL)
	if err != nil {
		return NewErrorResult(err), err
	}

	return NewSuccessResult(link, agg.Version()), nil
}

func (s *Service) handleRedirect(ctx context.Context, cmd RedirectLink) (CommandResult, error) {
	unlock := s.locks.lock(cmd.Slug)
	defer unlock()

	agg := NewShortLinkAggregate(s.broker, s.generator, s.validator)
	if err := agg.Rehydrate(ctx, cmd.Slug); err != nil {
		return NewErrorResult(err), err
	}

	link, err := agg.Redirect(ctx)
	if err != nil {
		return NewErrorResult(err), err
	}

	return NewSuccessResult(link, agg.Version()), nil
}
