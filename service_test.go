package shortener

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestService_Scenarios(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	defer svc.Close()

	t.Run("create with caller slug", func(t *testing.T) {
		link, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")

		require.NoError(t, err)
		assert.Equal(t, ShortLink{Slug: "goog", URL: "https://google.com"}, link)
	})

	t.Run("duplicate creation", func(t *testing.T) {
		_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")

		assert.ErrorIs(t, err, ErrSlugAlreadyInUse)
	})

	t.Run("invalid url with generated slug", func(t *testing.T) {
		_, err := svc.HandleCreateShortLink(ctx, "invalid-url", "")

		assert.ErrorIs(t, err, ErrInvalidURL)
	})

	t.Run("two redirects are counted", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			link, err := svc.HandleRedirect(ctx, "goog")
			require.NoError(t, err)
			assert.Equal(t, URL("https://google.com"), link.URL)
		}

		stats, err := svc.GetStats(ctx, "goog")

		require.NoError(t, err)
		assert.Equal(t, Stats{
			Link:      ShortLink{Slug: "goog", URL: "https://google.com"},
			Redirects: 2,
		}, stats)
	})

	t.Run("missing slug", func(t *testing.T) {
		_, err := svc.HandleRedirect(ctx, "missing")
		assert.ErrorIs(t, err, ErrSlugNotFound)

		_, err = svc.GetStats(ctx, "missing")
		assert.ErrorIs(t, err, ErrSlugNotFound)
	})
}

func TestService_CreateShortLink(t *testing.T) {
	ctx := context.Background()

	t.Run("generated slug", func(t *testing.T) {
		svc, _ := newTestService(WithSlugGenerator(fixedSlugs("abc123")))
		defer svc.Close()

		link, err := svc.HandleCreateShortLink(ctx, "https://example.com", "")

		require.NoError(t, err)
		assert.Equal(t, ShortLink{Slug: "abc123", URL: "https://example.com"}, link)

		stats, err := svc.GetStats(ctx, "abc123")
		require.NoError(t, err)
		assert.Equal(t, uint64(0), stats.Redirects)
	})

	t.Run("default generator uses timestamp slugs", func(t *testing.T) {
		svc, _ := newTestService()
		defer svc.Close()

		link, err := svc.HandleCreateShortLink(ctx, "https://example.com", "")

		require.NoError(t, err)
		assert.Contains(t, string(link.Slug), TimestampSlugPrefix)
	})

	t.Run("generator collision surfaces as slug in use", func(t *testing.T) {
		svc, _ := newTestService(WithSlugGenerator(fixedSlugs("same")))
		defer svc.Close()

		_, err := svc.HandleCreateShortLink(ctx, "https://example.com", "")
		require.NoError(t, err)

		_, err = svc.HandleCreateShortLink(ctx, "https://example.org", "")
		assert.ErrorIs(t, err, ErrSlugAlreadyInUse)
	})

	t.Run("uniqueness holds for any url", func(t *testing.T) {
		svc, log := newTestService()
		defer svc.Close()

		_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
		require.NoError(t, err)

		for _, url := range []URL{"https://google.com", "https://bing.com", "invalid-url", ""} {
			_, err := svc.HandleCreateShortLink(ctx, url, "goog")
			assert.ErrorIs(t, err, ErrSlugAlreadyInUse, "url %q", url)
		}
		assert.Equal(t, 1, log.EventCount())
	})

	t.Run("failed creation appends nothing", func(t *testing.T) {
		svc, log := newTestService()
		defer svc.Close()

		_, err := svc.HandleCreateShortLink(ctx, "ftp://example.com", "x")

		assert.ErrorIs(t, err, ErrInvalidURL)
		assert.Equal(t, 0, log.EventCount())
		assert.Equal(t, 0, svc.Projection().Len())
	})

	t.Run("custom validator", func(t *testing.T) {
		onlyExample := URLValidatorFunc(func(u URL) bool { return u == "https://example.com" })
		svc, _ := newTestService(WithURLValidator(onlyExample))
		defer svc.Close()

		_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "a")
		assert.ErrorIs(t, err, ErrInvalidURL)

		_, err = svc.HandleCreateShortLink(ctx, "https://example.com", "a")
		assert.NoError(t, err)
	})
}

func TestService_RedirectMonotonicity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	defer svc.Close()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)

	for i := uint64(1); i <= 10; i++ {
		_, err := svc.HandleRedirect(ctx, "goog")
		require.NoError(t, err)

		stats, err := svc.GetStats(ctx, "goog")
		require.NoError(t, err)
		assert.Equal(t, i, stats.Redirects)
	}
}

func TestService_UnknownSlugSymmetry(t *testing.T) {
	ctx := context.Background()
	svc, log := newTestService()
	defer svc.Close()

	for _, slug := range []Slug{"missing", "", "ShortLink-x"} {
		_, redirectErr := svc.HandleRedirect(ctx, slug)
		_, statsErr := svc.GetStats(ctx, slug)

		assert.ErrorIs(t, redirectErr, ErrSlugNotFound, "slug %q", slug)
		assert.ErrorIs(t, statsErr, ErrSlugNotFound, "slug %q", slug)
	}
	assert.Equal(t, 0, log.EventCount())
}

func TestService_ConcurrentCreateSameSlug(t *testing.T) {
	ctx := context.Background()
	svc, log := newTestService()
	defer svc.Close()

	const writers = 20
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		inUse     atomic.Int32
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.HandleCreateShortLink(ctx, URL(fmt.Sprintf("https://example.com/%d", i)), "race")
			switch {
			case err == nil:
				succeeded.Add(1)
			case assert.ErrorIs(t, err, ErrSlugAlreadyInUse):
				inUse.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(writers-1), inUse.Load())
	assert.Equal(t, 1, log.EventCount())
	assert.Equal(t, 0, svc.locks.len())
}

func TestService_ConcurrentRedirects(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	defer svc.Close()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)

	const redirects = 50
	var wg sync.WaitGroup
	for i := 0; i < redirects; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.HandleRedirect(ctx, "goog")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := svc.GetStats(ctx, "goog")
	require.NoError(t, err)
	assert.Equal(t, uint64(redirects), stats.Redirects)

	events, err := svc.Events(ctx, "goog")
	require.NoError(t, err)
	assert.Len(t, events, redirects+1)
}

func TestService_Events(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	defer svc.Close()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)
	_, err = svc.HandleRedirect(ctx, "goog")
	require.NoError(t, err)

	events, err := svc.Events(ctx, "goog")

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, KindLinkCreated, events[0].Kind())
	assert.Equal(t, KindLinkRedirected, events[1].Kind())
	assert.Equal(t, int64(1), events[0].Version)
	assert.Equal(t, int64(2), events[1].Version)
	assert.Equal(t, Slug("goog"), events[1].Slug)

	for _, e := range events {
		assert.NotEmpty(t, e.ID)
		assert.NotEmpty(t, e.Metadata.CorrelationID, "correlation id is stamped")
		assert.NotEmpty(t, e.Metadata.CausationID, "causation id is stamped")
	}
	assert.NotEqual(t, events[0].Metadata.CausationID, events[1].Metadata.CausationID)

	t.Run("unknown slug has empty history", func(t *testing.T) {
		events, err := svc.Events(ctx, "missing")
		require.NoError(t, err)
		assert.Empty(t, events)
	})
}

func TestService_CorrelationIDFromContext(t *testing.T) {
	svc, _ := newTestService()
	defer svc.Close()

	ctx := WithCorrelationID(context.Background(), "req-42")
	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)

	events, err := svc.Events(context.Background(), "goog")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "req-42", events[0].Metadata.CorrelationID)
}

func TestService_RebuildProjection(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	defer svc.Close()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)
	_, err = svc.HandleCreateShortLink(ctx, "https://bing.com", "bing")
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = svc.HandleRedirect(ctx, "goog")
		require.NoError(t, err)
	}

	before, err := svc.GetStats(ctx, "goog")
	require.NoError(t, err)

	replayed, err := svc.RebuildProjection(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, replayed)

	after, err := svc.GetStats(ctx, "goog")
	require.NoError(t, err)
	assert.Equal(t, before, after)

	bing, err := svc.GetStats(ctx, "bing")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bing.Redirects)

	t.Run("rebuilding twice does not double count", func(t *testing.T) {
		_, err := svc.RebuildProjection(ctx)
		require.NoError(t, err)

		stats, err := svc.GetStats(ctx, "goog")
		require.NoError(t, err)
		assert.Equal(t, uint64(3), stats.Redirects)
	})
}

func TestService_EventListener(t *testing.T) {
	ctx := context.Background()
	var kinds []EventKind
	var mu sync.Mutex
	svc, _ := newTestService(WithEventListener(func(ctx context.Context, e Event) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, e.Kind())
	}))
	defer svc.Close()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)
	_, err = svc.HandleRedirect(ctx, "goog")
	require.NoError(t, err)
	_, err = svc.HandleRedirect(ctx, "missing")
	require.Error(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventKind{KindLinkCreated, KindLinkRedirected}, kinds)
}

func TestService_Logging(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	svc, _ := newTestService(WithLogger(logger))
	defer svc.Close()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)
	_, err = svc.HandleRedirect(ctx, "missing")
	require.Error(t, err)

	assert.Contains(t, logger.infoMessages(), "Command completed")
	assert.Contains(t, logger.infoMessages(), "Command rejected")
	assert.Empty(t, logger.errorMessages())
}

func TestService_Middleware(t *testing.T) {
	ctx := context.Background()
	var seen []string
	mw := func(next MiddlewareFunc) MiddlewareFunc {
		return func(ctx context.Context, cmd Command) (CommandResult, error) {
			seen = append(seen, cmd.CommandType())
			return next(ctx, cmd)
		}
	}
	svc, _ := newTestService(WithMiddleware(mw))
	defer svc.Close()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	require.NoError(t, err)
	_, err = svc.HandleRedirect(ctx, "goog")
	require.NoError(t, err)
	_, err = svc.GetStats(ctx, "goog")
	require.NoError(t, err)

	assert.Equal(t, []string{CreateShortLinkType, RedirectLinkType}, seen)
}

func TestService_Dispatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	defer svc.Close()

	result, err := svc.Dispatch(ctx, CreateShortLink{URL: "https://google.com", Slug: "goog"})

	require.NoError(t, err)
	assert.True(t, result.IsSuccess())
	assert.Equal(t, "goog", result.AggregateID)
	assert.Equal(t, int64(1), result.Version)

	result, err = svc.Dispatch(ctx, RedirectLink{Slug: "goog"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Version)
}

func TestService_Close(t *testing.T) {
	ctx := context.Background()
	svc, log := newTestService()

	require.NoError(t, svc.Close())
	require.NoError(t, svc.Close())
	assert.True(t, svc.bus.IsClosed())

	result, err := svc.Dispatch(ctx, RedirectLink{Slug: "goog"})
	assert.ErrorIs(t, err, ErrServiceClosed)
	assert.True(t, result.IsError())

	_, err = svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	assert.ErrorIs(t, err, ErrServiceClosed)

	_, err = svc.HandleRedirect(ctx, "goog")
	assert.ErrorIs(t, err, ErrServiceClosed)

	_, err = svc.GetStats(ctx, "goog")
	assert.ErrorIs(t, err, ErrServiceClosed)

	_, err = svc.Events(ctx, "goog")
	assert.ErrorIs(t, err, ErrServiceClosed)

	_, err = svc.RebuildProjection(ctx)
	assert.ErrorIs(t, err, ErrServiceClosed)

	assert.ErrorIs(t, log.Ping(ctx), ErrAdapterClosed)
}

func TestService_CancelledContext(t *testing.T) {
	svc, log := newTestService()
	defer svc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.HandleCreateShortLink(ctx, "https://google.com", "goog")
	assert.ErrorIs(t, err, context.Canceled)

	_, err = svc.GetStats(ctx, "goog")
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 0, log.EventCount())
}
