package marketplace

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-marketdata/pkg/catalog"
	"github.com/illmade-knight/go-marketdata/pkg/types"
	"github.com/illmade-knight/go-marketdata/pkg/viewstore"
)

// Client is the session-scoped entry point to the data layer. It owns a view
// registry, a fetch coordinator and an invalidation dispatcher, and binds
// each view kind to its backend query. The cache it manages is ephemeral:
// a Client starts empty and nothing survives it.
//
// A Client may be created before the backend connection exists. Until
// Connect is called, reads return ErrBackendUnavailable and every view stays
// Absent; nothing is recorded as a failed fetch.
type Client struct {
	caller      types.Principal
	views       *viewstore.Registry
	coordinator *viewstore.Coordinator
	dispatcher  *viewstore.Dispatcher
	logger      zerolog.Logger

	mu      sync.RWMutex
	backend Backend
	ops     map[string]MutationState
}

// NewClient creates a disconnected Client for the given caller principal.
func NewClient(caller types.Principal, logger zerolog.Logger) *Client {
	clientLogger := logger.With().Str("component", "Client").Str("caller", string(caller)).Logger()
	registry := viewstore.NewRegistry(clientLogger)
	return &Client{
		caller:      caller,
		views:       registry,
		coordinator: viewstore.NewCoordinator(registry, clientLogger),
		dispatcher:  viewstore.NewDispatcher(registry, clientLogger),
		logger:      clientLogger,
		ops:         make(map[string]MutationState),
	}
}

// NewConnectedClient creates a Client already bound to a backend.
func NewConnectedClient(backend Backend, caller types.Principal, logger zerolog.Logger) *Client {
	c := NewClient(caller, logger)
	c.Connect(backend)
	return c
}

// Connect attaches the backend connection. Views that stayed Absent while
// disconnected are fetched on their next observation.
func (c *Client) Connect(backend Backend) {
	c.mu.Lock()
	c.backend = backend
	c.mu.Unlock()
	c.logger.Info().Msg("Backend connected.")
}

// Caller returns the principal this session acts as.
func (c *Client) Caller() types.Principal {
	return c.caller
}

// Views exposes the underlying registry for long-lived observers: UI
// surfaces that want to keep a view warm hold an Observe/Release pair on it
// and call Sweep when they are done.
func (c *Client) Views() *viewstore.Registry {
	return c.views
}

func (c *Client) backendRef() Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

// ensure observes a key for the duration of one read, then delegates to the
// coordinator. The returned value may be a retained stale value when err is
// non-nil.
func (c *Client) ensure(ctx context.Context, key viewstore.ViewKey, fetch viewstore.FetchFunc) (any, error) {
	c.views.Observe(key)
	defer c.views.Release(key)
	if c.backendRef() == nil {
		return nil, ErrBackendUnavailable
	}
	return c.coordinator.EnsureFresh(ctx, key, fetch)
}

func asListings(v any) []types.Listing {
	listings, _ := v.([]types.Listing)
	return listings
}

// AllListings returns the full raw catalog view.
func (c *Client) AllListings(ctx context.Context) ([]types.Listing, error) {
	v, err := c.ensure(ctx, viewstore.AllListings(), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().AllListings(ctx)
	})
	return asListings(v), err
}

// AvailableListings returns the unsold-listings view.
func (c *Client) AvailableListings(ctx context.Context) ([]types.Listing, error) {
	v, err := c.ensure(ctx, viewstore.AvailableListings(), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().AvailableListings(ctx)
	})
	return asListings(v), err
}

// FeaturedListings returns the promoted-listings view.
func (c *Client) FeaturedListings(ctx context.Context) ([]types.Listing, error) {
	v, err := c.ensure(ctx, viewstore.FeaturedListings(), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().FeaturedListings(ctx)
	})
	return asListings(v), err
}

// Listing returns one listing by id, or nil when the backend has no record
// for it. Absence is cached like any other value.
func (c *Client) Listing(ctx context.Context, id string) (*types.Listing, error) {
	v, err := c.ensure(ctx, viewstore.ListingByID(id), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().Listing(ctx, id)
	})
	listing, _ := v.(*types.Listing)
	return listing, err
}

// SellerListings returns the per-seller listings view.
func (c *Client) SellerListings(ctx context.Context, seller types.Principal) ([]types.Listing, error) {
	v, err := c.ensure(ctx, viewstore.SellerListings(seller), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().SellerListings(ctx, seller)
	})
	return asListings(v), err
}

// SearchListings returns the point-in-time search snapshot for a keyword.
// A blank keyword falls back to the available-listings query, mirroring the
// browsing behavior of the reference UI. Search views are never invalidated
// by mutations; re-issuing the search is the only refresh path.
func (c *Client) SearchListings(ctx context.Context, keyword string) ([]types.Listing, error) {
	v, err := c.ensure(ctx, viewstore.Search(keyword), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		if strings.TrimSpace(keyword) == "" {
			return c.backendRef().AvailableListings(ctx)
		}
		return c.backendRef().SearchListings(ctx, keyword)
	})
	return asListings(v), err
}

// BrowseCatalog derives the visible browsing page from the allListings view:
// one fetch feeds every filter combination, and the filtering itself is pure
// and local. When the fetch fails, the page is computed over the retained
// stale listings and the error is returned alongside it.
func (c *Client) BrowseCatalog(ctx context.Context, spec catalog.FilterSpec) (catalog.Page, error) {
	listings, err := c.AllListings(ctx)
	return catalog.VisiblePage(listings, spec), err
}

// RefreshSearch forces the search snapshot for a keyword to be re-issued on
// its next observation.
func (c *Client) RefreshSearch(keyword string) {
	c.views.Invalidate(viewstore.Search(keyword))
}

// Messages returns the inquiry thread for one listing.
func (c *Client) Messages(ctx context.Context, listingID string) ([]types.Message, error) {
	v, err := c.ensure(ctx, viewstore.Messages(listingID), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().Messages(ctx, listingID)
	})
	messages, _ := v.([]types.Message)
	return messages, err
}

// CallerProfile returns the session user's profile, or nil when none has
// been created yet. The nil result is meaningful and is cached: it drives
// first-use profile setup.
func (c *Client) CallerProfile(ctx context.Context) (*types.UserProfile, error) {
	v, err := c.ensure(ctx, viewstore.CallerProfile(), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().CallerProfile(ctx)
	})
	profile, _ := v.(*types.UserProfile)
	return profile, err
}

// Profile returns another user's profile by principal, or nil when absent.
func (c *Client) Profile(ctx context.Context, user types.Principal) (*types.UserProfile, error) {
	v, err := c.ensure(ctx, viewstore.Profile(user), func(ctx context.Context, _ viewstore.ViewKey) (any, error) {
		return c.backendRef().Profile(ctx, user)
	})
	profile, _ := v.(*types.UserProfile)
	return profile, err
}

// CallerRole reads the session user's role straight from the backend. Roles
// are not cached; they change rarely and only through AssignRole.
func (c *Client) CallerRole(ctx context.Context) (types.UserRole, error) {
	b := c.backendRef()
	if b == nil {
		return "", ErrBackendUnavailable
	}
	return b.CallerRole(ctx)
}

// IsCallerAdmin reports whether the session user holds the admin role.
func (c *Client) IsCallerAdmin(ctx context.Context) (bool, error) {
	b := c.backendRef()
	if b == nil {
		return false, ErrBackendUnavailable
	}
	return b.IsCallerAdmin(ctx)
}
