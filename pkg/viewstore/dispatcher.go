package viewstore

import (
	"github.com/rs/zerolog"

	"github.com/illmade-knight/go-marketdata/pkg/types"
)

// EffectKind tags a completed mutation for invalidation purposes.
type EffectKind int

const (
	ListingCreated EffectKind = iota
	ListingUpdated
	ListingDeleted
	ListingPromoted
	MessageSent
	ProfileSaved
)

// String returns the effect name for logging.
func (k EffectKind) String() string {
	switch k {
	case ListingCreated:
		return "listingCreated"
	case ListingUpdated:
		return "listingUpdated"
	case ListingDeleted:
		return "listingDeleted"
	case ListingPromoted:
		return "listingPromoted"
	case MessageSent:
		return "messageSent"
	case ProfileSaved:
		return "profileSaved"
	default:
		return "unknownEffect"
	}
}

// Effect describes a mutation that has already succeeded on the backend.
// ListingID and Seller are filled per kind: listing effects carry the seller
// whose per-seller view is affected, MessageSent carries only the listing id.
type Effect struct {
	Kind      EffectKind
	ListingID string
	Seller    types.Principal
}

// ListingCreatedEffect describes a successful listing creation by seller.
func ListingCreatedEffect(seller types.Principal) Effect {
	return Effect{Kind: ListingCreated, Seller: seller}
}

// ListingUpdatedEffect describes a successful update of one listing.
func ListingUpdatedEffect(listingID string, seller types.Principal) Effect {
	return Effect{Kind: ListingUpdated, ListingID: listingID, Seller: seller}
}

// ListingDeletedEffect describes a successful deletion of one listing.
func ListingDeletedEffect(listingID string, seller types.Principal) Effect {
	return Effect{Kind: ListingDeleted, ListingID: listingID, Seller: seller}
}

// ListingPromotedEffect describes a successful promotion to featured.
func ListingPromotedEffect(listingID string, seller types.Principal) Effect {
	return Effect{Kind: ListingPromoted, ListingID: listingID, Seller: seller}
}

// MessageSentEffect describes a successfully delivered inquiry.
func MessageSentEffect(listingID string) Effect {
	return Effect{Kind: MessageSent, ListingID: listingID}
}

// ProfileSavedEffect describes a successful save of the caller's profile.
func ProfileSavedEffect() Effect {
	return Effect{Kind: ProfileSaved}
}

// Invalidates computes the exact set of view keys a completed mutation can
// affect. The mapping is deliberately static:
//
//	listingCreated   -> allListings, availableListings, featuredListings, sellerListings(seller)
//	listingUpdated   -> listing(id) plus the created row
//	listingDeleted   -> the created row (listing(id) is intentionally untouched)
//	listingPromoted  -> listing(id), allListings, featuredListings, sellerListings(seller)
//	messageSent      -> messages(listingID)
//	profileSaved     -> callerProfile
//
// Search views never appear in any row: a search is a point-in-time snapshot
// refreshed only by re-issuing the search. That is a freshness/cost tradeoff
// carried over from the source system, not an oversight.
func (e Effect) Invalidates() []ViewKey {
	switch e.Kind {
	case ListingCreated, ListingDeleted:
		return []ViewKey{
			AllListings(),
			AvailableListings(),
			FeaturedListings(),
			SellerListings(e.Seller),
		}
	case ListingUpdated:
		return []ViewKey{
			ListingByID(e.ListingID),
			AllListings(),
			AvailableListings(),
			FeaturedListings(),
			SellerListings(e.Seller),
		}
	case ListingPromoted:
		return []ViewKey{
			ListingByID(e.ListingID),
			AllListings(),
			FeaturedListings(),
			SellerListings(e.Seller),
		}
	case MessageSent:
		return []ViewKey{Messages(e.ListingID)}
	case ProfileSaved:
		return []ViewKey{CallerProfile()}
	default:
		return nil
	}
}

// Dispatcher applies mutation effects to the registry. It runs synchronously
// in the mutation's call path, so any code that sees a mutation return is
// guaranteed to find the affected views already Stale.
type Dispatcher struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewDispatcher creates a Dispatcher bound to a registry.
func NewDispatcher(registry *Registry, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		logger:   logger.With().Str("component", "Dispatcher").Logger(),
	}
}

// OnMutation marks every view in the effect's row Stale and returns the keys
// it touched.
func (d *Dispatcher) OnMutation(effect Effect) []ViewKey {
	keys := effect.Invalidates()
	for _, key := range keys {
		d.registry.Invalidate(key)
	}
	d.logger.Debug().
		Stringer("effect", effect.Kind).
		Int("views", len(keys)).
		Msg("Applied mutation invalidation.")
	return keys
}
