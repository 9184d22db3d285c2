// Package shortener is an event-sourced short-link service built on CQRS.
//
// A short link is an aggregate whose state is derived entirely from its
// append-only event stream. Commands go through a command bus into a
// transient aggregate that rehydrates from the log, checks its invariants
// and commits at most one new event. Every committed event is folded into a
// statistics projection in the same step, and queries read that projection
// directly.
//
// # Quick Start
//
//	svc := shortener.New(memory.NewEventLog())
//	defer svc.Close()
//
//	link, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
//	link, err = svc.HandleRedirect(ctx, "goog")
//	stats, err := svc.GetStats(ctx, "goog")
//	// stats.Redirects == 1
//
// Passing an empty slug to HandleCreateShortLink asks the configured
// SlugGenerator for one.
//
// # Errors
//
// Domain failures are reported with sentinel errors that can be matched with
// errors.Is: ErrInvalidURL, ErrSlugAlreadyInUse and ErrSlugNotFound. No event
// is appended when a command fails.
//
// # Collaborators
//
// Slug generation and URL validation are pluggable through the SlugGenerator
// and URLValidator interfaces. The slug and urlcheck packages provide
// implementations.
package shortener

import "strings"

// Version returns the library version string.
func Version() string {
	return "0.3.0"
}

// StreamCategory is the stream category used for short-link event streams.
const StreamCategory = "ShortLink"

// BuildStreamID creates a stream ID from a category and an ID, following
// the "{Category}-{ID}" convention.
func BuildStreamID(category, id string) string {
	return category + "-" + id
}

// StreamIDFor returns the event stream ID of a slug.
func StreamIDFor(slug Slug) string {
	return BuildStreamID(StreamCategory, string(slug))
}

// SlugFromStreamID extracts the slug from a short-link stream ID.
// It reports false for streams of any other category.
func SlugFromStreamID(streamID string) (Slug, bool) {
	prefix := StreamCategory + "-"
	if !strings.HasPrefix(streamID, prefix) || len(streamID) == len(prefix) {
		return "", false
	}
	return Slug(streamID[len(prefix):]), true
}
