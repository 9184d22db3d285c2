// Package slug provides slug generators for links created without a
// caller-supplied slug.
package slug

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	shortener "github.com/vsavik/url-shortener"
)

// Generator kinds accepted by New.
const (
	KindRandom    = "random"
	KindUUID      = "uuid"
	KindTimestamp = "timestamp"
)

// DefaultLength is the length of slugs produced by Random when none is given.
const DefaultLength = 7

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// maxUnbiased is the largest multiple of len(alphabet) that fits in a byte.
// Bytes at or above it are discarded so every symbol is equally likely.
const maxUnbiased = 256 - 256%len(alphabet)

// New returns the generator named by kind. length only applies to "random".
func New(kind string, length int) (shortener.SlugGenerator, error) {
	switch strings.ToLower(kind) {
	case KindRandom, "":
		return Random(length), nil
	case KindUUID:
		return UUID(), nil
	case KindTimestamp:
		return Timestamp(), nil
	default:
		return nil, fmt.Errorf("slug: unknown generator %q", kind)
	}
}

// Random returns a generator of base62 slugs read from crypto/rand.
// A non-positive length means DefaultLength.
func Random(length int) shortener.SlugGenerator {
	return randomFrom(rand.Reader, length)
}

func randomFrom(r io.Reader, length int) shortener.SlugGenerator {
	if length <= 0 {
		length = DefaultLength
	}

	return shortener.SlugGeneratorFunc(func() shortener.Slug {
		out := make([]byte, 0, length)
		buf := make([]byte, length*2)
		for len(out) < length {
			if _, err := io.ReadFull(r, buf); err != nil {
				// crypto/rand does not fail on supported platforms.
				panic(fmt.Sprintf("slug: read random bytes: %v", err))
			}
			for _, b := range buf {
				if int(b) >= maxUnbiased {
					continue
				}
				out = append(out, alphabet[int(b)%len(alphabet)])
				if len(out) == length {
					break
				}
			}
		}
		return shortener.Slug(out)
	})
}

// UUID returns a generator of random version 4 UUID slugs.
func UUID() shortener.SlugGenerator {
	return shortener.SlugGeneratorFunc(func() shortener.Slug {
		return shortener.Slug(uuid.NewString())
	})
}

// Timestamp returns the service's default time-derived generator.
func Timestamp() shortener.SlugGenerator {
	return shortener.TimestampSlugs()
}
