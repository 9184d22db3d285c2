package shortener

import (
	"context"
	"sync"
)

// Projection is the base interface for read models derived from events.
type Projection interface {
	// Name returns the unique identifier for this projection.
	Name() string

	// HandledEvents returns the event kinds this projection handles.
	// An empty list means the projection handles all kinds.
	HandledEvents() []EventKind
}

// InlineProjection is folded synchronously as part of each publish, so a
// returned publish is already visible through the read model.
type InlineProjection interface {
	Projection

	// Apply folds a single event into the read model.
	Apply(ctx context.Context, event Event) error

	// Reset discards all state so the projection can be rebuilt from the log.
	Reset()
}

// StatsProjectionName is the name of the statistics projection.
const StatsProjectionName = "ShortLinkStats"

var _ InlineProjection = (*StatsProjection)(nil)

// StatsProjection maps every created slug to its Stats.
//
// Writes come only from the broker. Reads take a shared lock and return
// copies, so queries never observe a half-applied event.
type StatsProjection struct {
	mu    sync.RWMutex
	stats map[Slug]Stats
}

// NewStatsProjection creates an empty statistics projection.
func NewStatsProjection() *StatsProjection {
	return &StatsProjection{
		stats: make(map[Slug]Stats),
	}
}

// Name returns the projection name.
func (p *StatsProjection) Name() string {
	return StatsProjectionName
}

// HandledEvents returns the event kinds this projection folds.
func (p *StatsProjection) HandledEvents() []EventKind {
	return []EventKind{KindLinkCreated, KindLinkRedirected}
}

// Apply folds one event into the statistics.
//
// LinkCreated inserts a fresh entry with zero redirects, overwriting any
// previous one. LinkRedirected increments the entry of its slug and is a
// no-op for a slug without an entry. Other payloads are ignored.
func (p *StatsProjection) Apply(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e := event.Data.(type) {
	case LinkCreated:
		p.created(event.Slug, e)
	case *LinkCreated:
		p.created(event.Slug, *e)
	case LinkRedirected, *LinkRedirected:
		if s, ok := p.stats[event.Slug]; ok {
			s.Redirects++
			p.stats[event.Slug] = s
		}
	}

	return nil
}

func (p *StatsProjection) created(slug Slug, e LinkCreated) {
	p.stats[slug] = Stats{
		Link:      ShortLink{Slug: slug, URL: e.URL},
		Redirects: 0,
	}
}

// Get returns a copy of the statistics of a slug.
func (p *StatsProjection) Get(slug Slug) (Stats, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s, ok := p.stats[slug]
	return s, ok
}

// Len returns the number of slugs with statistics.
func (p *StatsProjection) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.stats)
}

// Reset discards all statistics.
func (p *StatsProjection) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats = make(map[Slug]Stats)
}
