package shortener

import (
	"strconv"
	"strings"
	"time"
)

// SlugGenerator produces fresh slugs for links created without one.
// Generated slugs are expected, not guaranteed, to be unused. A collision
// fails the creation with ErrSlugAlreadyInUse.
type SlugGenerator interface {
	Generate() Slug
}

// SlugGeneratorFunc adapts a function to SlugGenerator.
type SlugGeneratorFunc func() Slug

// Generate calls f().
func (f SlugGeneratorFunc) Generate() Slug {
	return f()
}

// URLValidator decides whether a URL may be used as a redirect target.
type URLValidator interface {
	IsValid(url URL) bool
}

// URLValidatorFunc adapts a function to URLValidator.
type URLValidatorFunc func(url URL) bool

// IsValid calls f(url).
func (f URLValidatorFunc) IsValid(url URL) bool {
	return f(url)
}

// TimestampSlugPrefix prefixes slugs produced by TimestampSlugs.
const TimestampSlugPrefix = "rand"

// TimestampSlugs returns the default generator, which derives a slug from
// the current time in nanoseconds, e.g. "rand1718035200123456789".
func TimestampSlugs() SlugGenerator {
	return timestampSlugs(time.Now)
}

func timestampSlugs(now func() time.Time) SlugGenerator {
	return SlugGeneratorFunc(func() Slug {
		return Slug(TimestampSlugPrefix + strconv.FormatInt(now().UnixNano(), 10))
	})
}

// IsValidURL is the default URL rule: the URL is non-empty, contains a dot
// and starts with http:// or https://.
func IsValidURL(url URL) bool {
	s := string(url)
	if s == "" || !strings.Contains(s, ".") {
		return false
	}
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
