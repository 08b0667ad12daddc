package marketplace

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/illmade-knight/go-marketdata/pkg/blob"
	"github.com/illmade-knight/go-marketdata/pkg/types"
)

// memoryState is the shared authoritative store behind every session-bound
// InMemoryBackend. Listings keep creation order so list queries are stable.
type memoryState struct {
	mu       sync.RWMutex
	listings map[string]types.Listing
	order    []string
	messages map[string][]types.Message
	profiles map[types.Principal]types.UserProfile
	roles    map[types.Principal]types.UserRole
}

// InMemoryBackend is a Backend implementation over process memory, used in
// tests and local development. Sessions for different principals share one
// state through WithCaller.
type InMemoryBackend struct {
	state  *memoryState
	caller types.Principal
}

// NewInMemoryBackend creates a fresh store with a session for the given
// caller. The founding caller is granted the admin role so role assignment
// can be bootstrapped.
func NewInMemoryBackend(caller types.Principal) *InMemoryBackend {
	state := &memoryState{
		listings: make(map[string]types.Listing),
		messages: make(map[string][]types.Message),
		profiles: make(map[types.Principal]types.UserProfile),
		roles:    map[types.Principal]types.UserRole{caller: types.RoleAdmin},
	}
	return &InMemoryBackend{state: state, caller: caller}
}

// WithCaller returns a session bound to another principal over the same
// underlying store.
func (b *InMemoryBackend) WithCaller(caller types.Principal) *InMemoryBackend {
	return &InMemoryBackend{state: b.state, caller: caller}
}

// AddListing stores a new listing owned by the caller. New listings are
// always available; the featured flag is taken from the fields.
func (b *InMemoryBackend) AddListing(_ context.Context, fields types.ListingFields) (string, error) {
	id := uuid.NewString()
	listing := types.Listing{
		ID:          id,
		Title:       fields.Title,
		Description: fields.Description,
		Price:       fields.Price,
		Size:        fields.Size,
		Color:       fields.Color,
		Condition:   fields.Condition,
		Available:   true,
		Featured:    fields.Featured,
		Seller:      b.caller,
		Photos:      copyPhotos(fields),
	}
	b.state.mu.Lock()
	b.state.listings[id] = listing
	b.state.order = append(b.state.order, id)
	b.state.mu.Unlock()
	return id, nil
}

// UpdateListing rewrites the editable fields of a caller-owned listing. The
// featured flag is not touched here; promotion is a separate operation.
func (b *InMemoryBackend) UpdateListing(_ context.Context, listingID string, fields types.ListingFields) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	listing, ok := b.state.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if listing.Seller != b.caller {
		return ErrNotOwner
	}
	listing.Title = fields.Title
	listing.Description = fields.Description
	listing.Price = fields.Price
	listing.Size = fields.Size
	listing.Color = fields.Color
	listing.Condition = fields.Condition
	listing.Available = fields.Available
	listing.Photos = copyPhotos(fields)
	b.state.listings[listingID] = listing
	return nil
}

// DeleteListing removes a caller-owned listing and its message thread.
func (b *InMemoryBackend) DeleteListing(_ context.Context, listingID string) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	listing, ok := b.state.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if listing.Seller != b.caller {
		return ErrNotOwner
	}
	delete(b.state.listings, listingID)
	delete(b.state.messages, listingID)
	for i, id := range b.state.order {
		if id == listingID {
			b.state.order = append(b.state.order[:i], b.state.order[i+1:]...)
			break
		}
	}
	return nil
}

// PromoteListing marks a caller-owned listing as featured.
func (b *InMemoryBackend) PromoteListing(_ context.Context, listingID string) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	listing, ok := b.state.listings[listingID]
	if !ok {
		return ErrListingNotFound
	}
	if listing.Seller != b.caller {
		return ErrNotOwner
	}
	listing.Featured = true
	b.state.listings[listingID] = listing
	return nil
}

// AllListings returns every listing in creation order.
func (b *InMemoryBackend) AllListings(_ context.Context) ([]types.Listing, error) {
	return b.collect(func(types.Listing) bool { return true }), nil
}

// AvailableListings returns unsold listings in creation order.
func (b *InMemoryBackend) AvailableListings(_ context.Context) ([]types.Listing, error) {
	return b.collect(func(l types.Listing) bool { return l.Available }), nil
}

// FeaturedListings returns featured listings in creation order.
func (b *InMemoryBackend) FeaturedListings(_ context.Context) ([]types.Listing, error) {
	return b.collect(func(l types.Listing) bool { return l.Featured }), nil
}

// Listing returns one listing by id, or (nil, nil) when unknown.
func (b *InMemoryBackend) Listing(_ context.Context, id string) (*types.Listing, error) {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	listing, ok := b.state.listings[id]
	if !ok {
		return nil, nil
	}
	return &listing, nil
}

// SellerListings returns one seller's listings in creation order.
func (b *InMemoryBackend) SellerListings(_ context.Context, seller types.Principal) ([]types.Listing, error) {
	return b.collect(func(l types.Listing) bool { return l.Seller == seller }), nil
}

// SearchListings matches available listings whose title, description, color
// or size contains the keyword, case-insensitively.
func (b *InMemoryBackend) SearchListings(_ context.Context, keyword string) ([]types.Listing, error) {
	q := strings.ToLower(keyword)
	return b.collect(func(l types.Listing) bool {
		if !l.Available {
			return false
		}
		return strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q) ||
			strings.Contains(strings.ToLower(l.Color), q) ||
			strings.Contains(strings.ToLower(l.Size), q)
	}), nil
}

// Messages returns a listing's inquiry thread in send order.
func (b *InMemoryBackend) Messages(_ context.Context, listingID string) ([]types.Message, error) {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	thread := b.state.messages[listingID]
	return append([]types.Message(nil), thread...), nil
}

// SendMessage appends a buyer inquiry to a listing's thread.
func (b *InMemoryBackend) SendMessage(_ context.Context, seller types.Principal, listingID, body string) error {
	b.state.mu.Lock()
	defer b.state.mu.Unlock()
	if _, ok := b.state.listings[listingID]; !ok {
		return ErrListingNotFound
	}
	b.state.messages[listingID] = append(b.state.messages[listingID], types.Message{
		ListingID: listingID,
		Buyer:     b.caller,
		Seller:    seller,
		Body:      body,
	})
	return nil
}

// CallerProfile returns the caller's profile, or (nil, nil) when none has
// been created.
func (b *InMemoryBackend) CallerProfile(ctx context.Context) (*types.UserProfile, error) {
	return b.Profile(ctx, b.caller)
}

// Profile returns a user's profile by principal, or (nil, nil) when absent.
func (b *InMemoryBackend) Profile(_ context.Context, user types.Principal) (*types.UserProfile, error) {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	profile, ok := b.state.profiles[user]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

// SaveCallerProfile creates or replaces the caller's profile.
func (b *InMemoryBackend) SaveCallerProfile(_ context.Context, profile types.UserProfile) error {
	b.state.mu.Lock()
	b.state.profiles[b.caller] = profile
	b.state.mu.Unlock()
	return nil
}

// CallerRole returns the caller's role, defaulting to the user role for
// principals that were never assigned one.
func (b *InMemoryBackend) CallerRole(_ context.Context) (types.UserRole, error) {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	if role, ok := b.state.roles[b.caller]; ok {
		return role, nil
	}
	return types.RoleUser, nil
}

// IsCallerAdmin reports whether the caller holds the admin role.
func (b *InMemoryBackend) IsCallerAdmin(ctx context.Context) (bool, error) {
	role, err := b.CallerRole(ctx)
	if err != nil {
		return false, err
	}
	return role == types.RoleAdmin, nil
}

// AssignRole grants a role to a user. Admin-only.
func (b *InMemoryBackend) AssignRole(ctx context.Context, user types.Principal, role types.UserRole) error {
	admin, err := b.IsCallerAdmin(ctx)
	if err != nil {
		return err
	}
	if !admin {
		return ErrNotAdmin
	}
	b.state.mu.Lock()
	b.state.roles[user] = role
	b.state.mu.Unlock()
	return nil
}

// collect snapshots listings matching keep, preserving creation order.
func (b *InMemoryBackend) collect(keep func(types.Listing) bool) []types.Listing {
	b.state.mu.RLock()
	defer b.state.mu.RUnlock()
	out := make([]types.Listing, 0, len(b.state.order))
	for _, id := range b.state.order {
		if l, ok := b.state.listings[id]; ok && keep(l) {
			out = append(out, l)
		}
	}
	return out
}

func copyPhotos(fields types.ListingFields) []blob.Handle {
	return append([]blob.Handle(nil), fields.Photos...)
}
