package shortener

// Slug is the short alias that identifies one link. It is the identity of the
// link's aggregate and event stream, and never changes once assigned.
type Slug string

// String returns the slug text.
func (s Slug) String() string {
	return string(s)
}

// URL is the redirect target of a short link.
type URL string

// String returns the URL text.
func (u URL) String() string {
	return string(u)
}

// ShortLink is the externally visible state of a short-link aggregate.
type ShortLink struct {
	Slug Slug `json:"slug"`
	URL  URL  `json:"url"`
}

// Exists reports whether the link has been created, that is whether a
// LinkCreated event has been folded into it.
func (l ShortLink) Exists() bool {
	return l.URL != ""
}

// Stats is the read model kept for every created link.
// Redirects never decreases.
type Stats struct {
	Link      ShortLink `json:"link"`
	Redirects uint64    `json:"redirects"`
}
