package viewstore

import (
	"fmt"

	"github.com/illmade-knight/go-marketdata/pkg/types"
)

// ====================================================================================
// A ViewKey names one cached, independently-fetched slice of the catalog.
// Key equality (kind plus parameter) is the unit of caching and of
// invalidation: two keys that compare equal share one cache entry and one
// in-flight fetch.
// ====================================================================================

// ViewKind discriminates the families of views the data layer maintains.
type ViewKind int

const (
	KindAllListings ViewKind = iota
	KindAvailableListings
	KindFeaturedListings
	KindListingByID
	KindSellerListings
	KindSearch
	KindMessages
	KindCallerProfile
	KindProfile
)

// String returns the stable name used for logging and singleflight grouping.
func (k ViewKind) String() string {
	switch k {
	case KindAllListings:
		return "allListings"
	case KindAvailableListings:
		return "availableListings"
	case KindFeaturedListings:
		return "featuredListings"
	case KindListingByID:
		return "listing"
	case KindSellerListings:
		return "sellerListings"
	case KindSearch:
		return "search"
	case KindMessages:
		return "messages"
	case KindCallerProfile:
		return "callerProfile"
	case KindProfile:
		return "profile"
	default:
		return fmt.Sprintf("viewKind(%d)", int(k))
	}
}

// ViewKey is a comparable (kind, parameter) pair. Parameterless kinds leave
// Arg empty.
type ViewKey struct {
	Kind ViewKind
	Arg  string
}

// String renders the key for logs and for keying coalesced fetches.
func (k ViewKey) String() string {
	if k.Arg == "" {
		return k.Kind.String()
	}
	return k.Kind.String() + "/" + k.Arg
}

// AllListings keys the full raw catalog view.
func AllListings() ViewKey {
	return ViewKey{Kind: KindAllListings}
}

// AvailableListings keys the unsold-listings view.
func AvailableListings() ViewKey {
	return ViewKey{Kind: KindAvailableListings}
}

// FeaturedListings keys the promoted-listings view.
func FeaturedListings() ViewKey {
	return ViewKey{Kind: KindFeaturedListings}
}

// ListingByID keys the single-listing view for one listing id.
func ListingByID(id string) ViewKey {
	return ViewKey{Kind: KindListingByID, Arg: id}
}

// SellerListings keys the per-seller listings view.
func SellerListings(seller types.Principal) ViewKey {
	return ViewKey{Kind: KindSellerListings, Arg: string(seller)}
}

// Search keys a point-in-time search snapshot for one keyword.
func Search(keyword string) ViewKey {
	return ViewKey{Kind: KindSearch, Arg: keyword}
}

// Messages keys the inquiry thread view for one listing.
func Messages(listingID string) ViewKey {
	return ViewKey{Kind: KindMessages, Arg: listingID}
}

// CallerProfile keys the session user's own profile view.
func CallerProfile() ViewKey {
	return ViewKey{Kind: KindCallerProfile}
}

// Profile keys another user's profile view.
func Profile(user types.Principal) ViewKey {
	return ViewKey{Kind: KindProfile, Arg: string(user)}
}
