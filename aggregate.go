package shortener

import (
	"context"
	"errors"
)

// Fold applies one event to a link state and returns the new state.
//
// LinkCreated binds the URL. LinkRedirected leaves the state unchanged, since
// the redirect counter lives only in the projection. Fold has no side
// effects, so replaying a stream any number of times yields the same link.
func Fold(state ShortLink, event Event) ShortLink {
	switch e := event.Data.(type) {
	case LinkCreated:
		return foldCreated(state, e)
	case *LinkCreated:
		return foldCreated(state, *e)
	}
	return state
}

func foldCreated(state ShortLink, e LinkCreated) ShortLink {
	if e.Slug != "" {
		state.Slug = e.Slug
	}
	state.URL = e.URL
	return state
}

// ShortLinkAggregate is the transient, per-command aggregate of one slug.
//
// A command handler creates a fresh aggregate, rehydrates it from the
// slug's stream, then calls exactly one transition. Only a transition
// publishes, and it publishes at most one event.
type ShortLinkAggregate struct {
	broker    EventBroker
	generator SlugGenerator
	validator URLValidator

	state   ShortLink
	version int64
}

// NewShortLinkAggregate creates an aggregate bound to a broker.
func NewShortLinkAggregate(broker EventBroker, generator SlugGenerator, validator URLValidator) *ShortLinkAggregate {
	if generator == nil {
		generator = TimestampSlugs()
	}
	if validator == nil {
		validator = URLValidatorFunc(IsValidURL)
	}
	return &ShortLinkAggregate{
		broker:    broker,
		generator: generator,
		validator: validator,
	}
}

// State returns the current snapshot.
func (a *ShortLinkAggregate) State() ShortLink {
	return a.state
}

// Slug returns the slug the aggregate is bound to.
func (a *ShortLinkAggregate) Slug() Slug {
	return a.state.Slug
}

// Version returns the stream version the aggregate was rehydrated at,
// plus any event it committed since.
func (a *ShortLinkAggregate) Version() int64 {
	return a.version
}

// Rehydrate resets the aggregate to slug and folds its whole stream.
func (a *ShortLinkAggregate) Rehydrate(ctx context.Context, slug Slug) error {
	events, err := a.broker.Stream(ctx, slug)
	if err != nil {
		return err
	}

	a.state = ShortLink{Slug: slug}
	a.version = 0
	for _, event := range events {
		a.state = Fold(a.state, event)
		if event.Version > a.version {
			a.version = event.Version
		} else {
			a.version++
		}
	}

	return nil
}

// AssignRandomSlug binds the aggregate to a freshly generated slug.
func (a *ShortLinkAggregate) AssignRandomSlug(ctx context.Context) error {
	return a.Rehydrate(ctx, a.generator.Generate())
}

// Create binds the slug to url.
// It fails with ErrSlugAlreadyInUse if the slug already has a link and with
// ErrInvalidURL if url is rejected by the validator.
func (a *ShortLinkAggregate) Create(ctx context.Context, url URL) (ShortLink, error) {
	if a.state.Exists() {
		return ShortLink{}, NewLinkError("create", a.state.Slug, ErrSlugAlreadyInUse)
	}
	if !a.validator.IsValid(url) {
		return ShortLink{}, NewLinkError("create", a.state.Slug, ErrInvalidURL)
	}

	err := a.commit(ctx, LinkCreated{Slug: a.state.Slug, URL: url})
	if errors.Is(err, ErrConcurrencyConflict) {
		return ShortLink{}, NewLinkError("create", a.state.Slug, ErrSlugAlreadyInUse)
	}
	if err != nil {
		return ShortLink{}, err
	}

	return a.state, nil
}

// Redirect records one resolution of the slug.
// It fails with ErrSlugNotFound if the slug has no link.
func (a *ShortLinkAggregate) Redirect(ctx context.Context) (ShortLink, error) {
	if !a.state.Exists() {
		return ShortLink{}, NewLinkError("redirect", a.state.Slug, ErrSlugNotFound)
	}

	if err := a.commit(ctx, LinkRedirected{Slug: a.state.Slug}); err != nil {
		return ShortLink{}, err
	}

	return a.state, nil
}

// commit publishes one new fact and folds it into the local state.
// It is the only path from the aggregate to Broker.Publish.
func (a *ShortLinkAggregate) commit(ctx context.Context, data interface{}) error {
	// A fresh stream is at version 0, which is adapters.NoStream.
	published, err := a.broker.Publish(ctx, a.version, NewEvent(a.state.Slug, data))
	if err != nil {
		return err
	}

	a.state = Fold(a.state, published)
	a.version = published.Version
	return nil
}
