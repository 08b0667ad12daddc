package marketplace

import (
	"context"
	"errors"

	"github.com/illmade-knight/go-marketdata/pkg/types"
)

// ====================================================================================
// The Backend interface is the narrow contract this data layer holds against
// the remote authoritative store. Every operation is fallible and context
// aware. Implementations are session-scoped: they know which principal is
// calling, the way the source system's per-identity actor did.
// ====================================================================================

// Sentinel errors for the failure taxonomy the data layer distinguishes.
// Absent by-id results are not errors: lookups return (nil, nil).
var (
	// ErrBackendUnavailable means no backend connection exists yet. Views
	// stay Absent; the condition is not surfaced to end users as a failure.
	ErrBackendUnavailable = errors.New("backend connection not available")
	// ErrListingNotFound is returned by mutations that target a listing id
	// the backend does not know.
	ErrListingNotFound = errors.New("listing not found")
	// ErrNotOwner is returned when a caller mutates a listing another
	// principal owns.
	ErrNotOwner = errors.New("caller does not own this listing")
	// ErrNotAdmin is returned when a role assignment is attempted by a
	// non-admin caller.
	ErrNotAdmin = errors.New("caller is not an admin")
)

// Backend exposes the remote store's operations. Listing reads return whole
// snapshots; by-id lookups return (nil, nil) when the record does not exist.
type Backend interface {
	// Listing mutations. AddListing returns the backend-assigned id. Update,
	// delete and promote are owner-only.
	AddListing(ctx context.Context, fields types.ListingFields) (string, error)
	UpdateListing(ctx context.Context, listingID string, fields types.ListingFields) error
	DeleteListing(ctx context.Context, listingID string) error
	PromoteListing(ctx context.Context, listingID string) error

	// Listing queries.
	AllListings(ctx context.Context) ([]types.Listing, error)
	AvailableListings(ctx context.Context) ([]types.Listing, error)
	FeaturedListings(ctx context.Context) ([]types.Listing, error)
	Listing(ctx context.Context, id string) (*types.Listing, error)
	SellerListings(ctx context.Context, seller types.Principal) ([]types.Listing, error)
	SearchListings(ctx context.Context, keyword string) ([]types.Listing, error)

	// Inquiry messages, grouped per listing. Append-only.
	Messages(ctx context.Context, listingID string) ([]types.Message, error)
	SendMessage(ctx context.Context, seller types.Principal, listingID, body string) error

	// Profiles. A nil profile with a nil error means not-yet-created, which
	// drives first-use setup.
	CallerProfile(ctx context.Context) (*types.UserProfile, error)
	Profile(ctx context.Context, user types.Principal) (*types.UserProfile, error)
	SaveCallerProfile(ctx context.Context, profile types.UserProfile) error

	// Roles.
	CallerRole(ctx context.Context) (types.UserRole, error)
	IsCallerAdmin(ctx context.Context) (bool, error)
	AssignRole(ctx context.Context, user types.Principal, role types.UserRole) error
}
