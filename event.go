package shortener

import (
	"time"

	"github.com/vsavik/url-shortener/adapters"
)

// EventKind names the type of a short-link domain event. It is also the type
// identifier stored alongside the serialized payload in the event log.
type EventKind string

const (
	// KindLinkCreated is the first and only creation fact of a slug.
	KindLinkCreated EventKind = "LinkCreated"

	// KindLinkRedirected is recorded once per successful redirect.
	KindLinkRedirected EventKind = "LinkRedirected"
)

// LinkCreated records that a slug was bound to a target URL.
type LinkCreated struct {
	Slug Slug `json:"slug" msgpack:"slug"`
	URL  URL  `json:"url" msgpack:"url"`
}

// LinkRedirected records one resolution of a slug.
type LinkRedirected struct {
	Slug Slug `json:"slug" msgpack:"slug"`
}

// Metadata contains contextual information about an event.
type Metadata = adapters.Metadata

// Event is a deserialized domain event of one short link.
type Event struct {
	// ID is the globally unique event identifier, assigned by the log.
	ID string

	// Slug identifies the link (and stream) this event belongs to.
	Slug Slug

	// Data is the payload: LinkCreated or LinkRedirected.
	Data interface{}

	// Metadata contains contextual information.
	Metadata Metadata

	// Version is the position within the slug's stream (1-based).
	Version int64

	// GlobalPosition is the position across all streams.
	GlobalPosition uint64

	// Timestamp is when the event was stored.
	Timestamp time.Time
}

// NewEvent creates an unstored event for a slug.
func NewEvent(slug Slug, data interface{}) Event {
	return Event{Slug: slug, Data: data}
}

// Kind reports the kind of the event payload, or "" for an unknown payload.
func (e Event) Kind() EventKind {
	return kindOf(e.Data)
}

func kindOf(data interface{}) EventKind {
	switch data.(type) {
	case LinkCreated, *LinkCreated:
		return KindLinkCreated
	case LinkRedirected, *LinkRedirected:
		return KindLinkRedirected
	default:
		return ""
	}
}

// eventFromStored builds an Event from a stored record and its decoded payload.
func eventFromStored(stored adapters.StoredEvent, data interface{}) Event {
	slug, _ := SlugFromStreamID(stored.StreamID)
	return Event{
		ID:             stored.ID,
		Slug:           slug,
		Data:           data,
		Metadata:       stored.Metadata,
		Version:        stored.Version,
		GlobalPosition: stored.GlobalPosition,
		Timestamp:      stored.Timestamp,
	}
}
