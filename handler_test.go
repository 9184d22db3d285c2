package shortener

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenericHandler(t *testing.T) {
	ctx := context.Background()
	handler := NewGenericHandler(func(ctx context.Context, cmd CreateShortLink) (CommandResult, error) {
		return NewSuccessResult(ShortLink{Slug: cmd.Slug, URL: cmd.URL}, 1), nil
	})

	t.Run("reports its command type", func(t *testing.T) {
		assert.Equal(t, CreateShortLinkType, handler.CommandType())
	})

	t.Run("handles matching command", func(t *testing.T) {
		result, err := handler.Handle(ctx, CreateShortLink{URL: "https://google.com", Slug: "goog"})

		require.NoError(t, err)
		assert.Equal(t, ShortLink{Slug: "goog", URL: "https://google.com"}, result.Link)
	})

	t.Run("rejects other command types", func(t *testing.T) {
		result, err := handler.Handle(ctx, RedirectLink{Slug: "goog"})

		require.Error(t, err)
		assert.True(t, result.IsError())
	})
}

func TestHandlerRegistry(t *testing.T) {
	registry := NewHandlerRegistry()
	assert.Nil(t, registry.Get(RedirectLinkType))

	registry.Register(echoRedirectHandler())
	assert.NotNil(t, registry.Get(RedirectLinkType))
	assert.Nil(t, registry.Get(CreateShortLinkType))

	// Registering again replaces the handler.
	replacement := NewGenericHandler(func(ctx context.Context, cmd RedirectLink) (CommandResult, error) {
		return NewSuccessResult(ShortLink{Slug: cmd.Slug, URL: "https://replaced.com"}, 1), nil
	})
	registry.Register(replacement)
	result, err := registry.Get(RedirectLinkType).Handle(context.Background(), RedirectLink{Slug: "goog"})
	require.NoError(t, err)
	assert.Equal(t, URL("https://replaced.com"), result.Link.URL)
}
