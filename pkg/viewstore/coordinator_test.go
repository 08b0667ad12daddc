package viewstore_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-marketdata/pkg/types"
	"github.com/illmade-knight/go-marketdata/pkg/viewstore"
)

func TestCoordinator_EnsureFresh(t *testing.T) {
	ctx := context.Background()

	t.Run("Fetches once and serves fresh entries from cache", func(t *testing.T) {
		// Arrange
		reg := viewstore.NewRegistry(zerolog.Nop())
		coord := viewstore.NewCoordinator(reg, zerolog.Nop())
		var calls atomic.Int32
		fetch := func(ctx context.Context, key viewstore.ViewKey) (any, error) {
			calls.Add(1)
			return []string{"one"}, nil
		}
		key := viewstore.AllListings()

		// Act
		first, err1 := coord.EnsureFresh(ctx, key, fetch)
		second, err2 := coord.EnsureFresh(ctx, key, fetch)

		// Assert
		require.NoError(t, err1)
		require.NoError(t, err2)
		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), calls.Load(), "a fresh entry must not be refetched")
	})

	t.Run("Concurrent callers coalesce into one fetch", func(t *testing.T) {
		// Arrange
		reg := viewstore.NewRegistry(zerolog.Nop())
		coord := viewstore.NewCoordinator(reg, zerolog.Nop())
		var calls atomic.Int32
		release := make(chan struct{})
		fetch := func(ctx context.Context, key viewstore.ViewKey) (any, error) {
			calls.Add(1)
			<-release
			return "result", nil
		}
		key := viewstore.Search("navy")

		// Act: many callers arrive while the first fetch is blocked.
		var wg sync.WaitGroup
		results := make([]any, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				v, err := coord.EnsureFresh(ctx, key, fetch)
				assert.NoError(t, err)
				results[i] = v
			}(i)
		}
		close(release)
		wg.Wait()

		// Assert
		assert.Equal(t, int32(1), calls.Load(), "concurrent requests for one key must share one flight")
		for _, v := range results {
			assert.Equal(t, "result", v)
		}
	})

	t.Run("Failure keeps the last good value and marks stale", func(t *testing.T) {
		// Arrange: a key that already holds three items from a prior fetch.
		reg := viewstore.NewRegistry(zerolog.Nop())
		coord := viewstore.NewCoordinator(reg, zerolog.Nop())
		key := viewstore.SellerListings(types.Principal("p"))
		items := []string{"a", "b", "c"}
		_, err := coord.EnsureFresh(ctx, key, func(context.Context, viewstore.ViewKey) (any, error) {
			return items, nil
		})
		require.NoError(t, err)
		reg.Invalidate(key)

		// Act: the refetch fails.
		fetchErr := errors.New("backend down")
		value, err := coord.EnsureFresh(ctx, key, func(context.Context, viewstore.ViewKey) (any, error) {
			return nil, fetchErr
		})

		// Assert: error surfaced, three items still visible, entry Stale.
		require.ErrorIs(t, err, fetchErr)
		assert.Equal(t, items, value)
		entry, ok := reg.Get(key)
		require.True(t, ok)
		assert.Equal(t, viewstore.Stale, entry.State)
		assert.Equal(t, items, entry.Value)
		assert.False(t, entry.InFlight)
	})

	t.Run("Failure with no prior value reverts to Absent", func(t *testing.T) {
		// Arrange
		reg := viewstore.NewRegistry(zerolog.Nop())
		coord := viewstore.NewCoordinator(reg, zerolog.Nop())
		key := viewstore.Messages("m-1")
		reg.Observe(key)

		// Act
		value, err := coord.EnsureFresh(ctx, key, func(context.Context, viewstore.ViewKey) (any, error) {
			return nil, errors.New("boom")
		})

		// Assert
		require.Error(t, err)
		assert.Nil(t, value)
		entry, ok := reg.Get(key)
		require.True(t, ok)
		assert.Equal(t, viewstore.Absent, entry.State)
	})

	t.Run("No automatic retry after failure", func(t *testing.T) {
		// Arrange
		reg := viewstore.NewRegistry(zerolog.Nop())
		coord := viewstore.NewCoordinator(reg, zerolog.Nop())
		var calls atomic.Int32
		fetch := func(context.Context, viewstore.ViewKey) (any, error) {
			calls.Add(1)
			return nil, errors.New("boom")
		}
		key := viewstore.CallerProfile()

		// Act
		_, err := coord.EnsureFresh(ctx, key, fetch)

		// Assert: exactly one attempt per EnsureFresh call.
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("Fetch survives caller context cancellation", func(t *testing.T) {
		// Arrange: the observer goes away mid-flight; the result must still
		// land in the registry.
		reg := viewstore.NewRegistry(zerolog.Nop())
		coord := viewstore.NewCoordinator(reg, zerolog.Nop())
		cancelCtx, cancel := context.WithCancel(context.Background())
		key := viewstore.FeaturedListings()
		fetch := func(fetchCtx context.Context, _ viewstore.ViewKey) (any, error) {
			cancel()
			require.NoError(t, fetchCtx.Err(), "in-flight fetches must not inherit caller cancellation")
			return "late-result", nil
		}

		// Act
		value, err := coord.EnsureFresh(cancelCtx, key, fetch)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "late-result", value)
		entry, ok := reg.Get(key)
		require.True(t, ok)
		assert.Equal(t, viewstore.Fresh, entry.State)
	})
}
