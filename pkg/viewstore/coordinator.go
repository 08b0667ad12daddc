package viewstore

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// FetchFunc performs the actual backend call for one ViewKey. The
// Coordinator supplies the key so a single function can serve a whole kind
// of view (e.g. every sellerListings/<id> key).
type FetchFunc func(ctx context.Context, key ViewKey) (any, error)

// Coordinator executes fetches for view keys against the Registry. Its one
// correctness property is request coalescing: concurrent EnsureFresh calls
// for the same key share a single outstanding backend call instead of
// issuing duplicates. It never retries a failed fetch.
type Coordinator struct {
	registry *Registry
	group    singleflight.Group
	logger   zerolog.Logger
}

// NewCoordinator creates a Coordinator bound to a registry.
func NewCoordinator(registry *Registry, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry: registry,
		logger:   logger.With().Str("component", "Coordinator").Logger(),
	}
}

// EnsureFresh returns the view's value, fetching only when the entry is not
// already Fresh. Callers arriving while a fetch for the same key is in
// flight block on that one flight and share its result.
//
// On success the result is written to the registry (entry becomes Fresh).
// On failure the entry reverts to Stale with its last good value retained,
// and that value is returned alongside the error so the caller can keep
// showing stale data with an error indicator.
//
// The fetch itself runs with the first caller's context stripped of
// cancellation: an observer going away does not abort a flight other
// observers may be sharing, and a completed result is always written back.
func (c *Coordinator) EnsureFresh(ctx context.Context, key ViewKey, fetch FetchFunc) (any, error) {
	if snap, ok := c.registry.Get(key); ok && snap.State == Fresh {
		return snap.Value, nil
	}

	value, err, shared := c.group.Do(key.String(), func() (any, error) {
		// A coalesced caller may arrive just after the previous flight
		// wrote; serve the fresh entry rather than fetching again.
		if snap, ok := c.registry.Get(key); ok && snap.State == Fresh {
			return snap.Value, nil
		}

		c.registry.markInFlight(key)
		result, fetchErr := fetch(context.WithoutCancel(ctx), key)
		if fetchErr != nil {
			c.registry.settleFailure(key)
			c.logger.Warn().Err(fetchErr).Stringer("view", key).Msg("View fetch failed.")
			return nil, fetchErr
		}
		c.registry.Write(key, result)
		return result, nil
	})

	if err != nil {
		if snap, ok := c.registry.Get(key); ok {
			return snap.Value, err
		}
		return nil, err
	}
	if shared {
		c.logger.Debug().Stringer("view", key).Msg("Fetch shared with concurrent caller.")
	}
	return value, nil
}
