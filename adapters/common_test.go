package adapters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionConstants(t *testing.T) {
	assert.Equal(t, int64(-1), AnyVersion)
	assert.Equal(t, int64(0), NoStream)
	assert.Equal(t, int64(-2), StreamExists)
}

func TestSentinelErrors(t *testing.T) {
	sentinels := map[string]error{
		"ErrConcurrencyConflict": ErrConcurrencyConflict,
		"ErrStreamNotFound":      ErrStreamNotFound,
		"ErrEmptyStreamID":       ErrEmptyStreamID,
		"ErrNoEvents":            ErrNoEvents,
		"ErrInvalidVersion":      ErrInvalidVersion,
		"ErrAdapterClosed":       ErrAdapterClosed,
	}

	for name, err := range sentinels {
		t.Run(name, func(t *testing.T) {
			assert.Contains(t, err.Error(), "shortener:")
			for otherName, other := range sentinels {
				if otherName != name {
					assert.False(t, errors.Is(err, other), "%s should not match %s", name, otherName)
				}
			}
		})
	}
}

func TestExtractCategory(t *testing.T) {
	tests := []struct {
		name     string
		streamID string
		expected string
	}{
		{"short link stream", "ShortLink-goog", "ShortLink"},
		{"slug containing hyphens", "ShortLink-my-link", "ShortLink"},
		{"no hyphen returns entire ID", "SingleWord", "SingleWord"},
		{"empty string", "", ""},
		{"starts with hyphen", "-goog", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractCategory(tt.streamID))
		})
	}
}

func TestCheckVersion(t *testing.T) {
	t.Run("AnyVersion always passes", func(t *testing.T) {
		assert.NoError(t, CheckVersion("ShortLink-a", AnyVersion, 0, false))
		assert.NoError(t, CheckVersion("ShortLink-a", AnyVersion, 7, true))
	})

	t.Run("NoStream passes for a new stream", func(t *testing.T) {
		assert.NoError(t, CheckVersion("ShortLink-a", NoStream, 0, false))
	})

	t.Run("NoStream conflicts when the stream exists", func(t *testing.T) {
		err := CheckVersion("ShortLink-a", NoStream, 1, true)

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConcurrencyConflict)

		var concErr *ConcurrencyError
		require.ErrorAs(t, err, &concErr)
		assert.Equal(t, "ShortLink-a", concErr.StreamID)
		assert.Equal(t, NoStream, concErr.ExpectedVersion)
		assert.Equal(t, int64(1), concErr.ActualVersion)
	})

	t.Run("StreamExists fails for a missing stream", func(t *testing.T) {
		err := CheckVersion("ShortLink-a", StreamExists, 0, false)

		assert.ErrorIs(t, err, ErrStreamNotFound)
	})

	t.Run("exact version must match", func(t *testing.T) {
		assert.NoError(t, CheckVersion("ShortLink-a", 3, 3, true))
		assert.ErrorIs(t, CheckVersion("ShortLink-a", 2, 3, true), ErrConcurrencyConflict)
	})

	t.Run("unknown negative version is invalid", func(t *testing.T) {
		assert.ErrorIs(t, CheckVersion("ShortLink-a", -9, 0, false), ErrInvalidVersion)
	})
}

func TestStreamNotFoundError(t *testing.T) {
	err := NewStreamNotFoundError("ShortLink-missing")

	assert.Equal(t, `shortener: stream "ShortLink-missing" not found`, err.Error())
	assert.True(t, errors.Is(err, ErrStreamNotFound))
	assert.False(t, errors.Is(err, ErrConcurrencyConflict))
}

func TestDefaultLimit(t *testing.T) {
	assert.Equal(t, 100, DefaultLimit(0, 100))
	assert.Equal(t, 100, DefaultLimit(-5, 100))
	assert.Equal(t, 10, DefaultLimit(10, 100))
}

func TestMetadata_Clone(t *testing.T) {
	t.Run("nil custom stays nil", func(t *testing.T) {
		m := Metadata{CorrelationID: "c1"}
		assert.Equal(t, m, m.Clone())
	})

	t.Run("custom map is copied", func(t *testing.T) {
		m := Metadata{CorrelationID: "c1", Custom: map[string]string{"k": "v"}}
		c := m.Clone()
		c.Custom["k"] = "changed"

		assert.Equal(t, "v", m.Custom["k"])
		assert.Equal(t, "c1", c.CorrelationID)
	})
}

func TestStoredEvent_Clone(t *testing.T) {
	e := StoredEvent{ID: "1", Data: []byte("abc"), Metadata: Metadata{Custom: map[string]string{"k": "v"}}}
	c := e.Clone()
	c.Data[0] = 'X'
	c.Metadata.Custom["k"] = "changed"

	assert.Equal(t, "abc", string(e.Data))
	assert.Equal(t, "v", e.Metadata.Custom["k"])
	assert.Equal(t, "1", c.ID)
}
