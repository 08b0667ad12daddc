package types

import (
	"github.com/illmade-knight/go-marketdata/pkg/blob"
)

// Principal is an opaque identity for a user of the marketplace. The data
// layer never parses it; equality is the only operation it relies on.
type Principal string

// UserRole mirrors the role vocabulary enforced by the backend.
type UserRole string

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

// Listing is an immutable snapshot of a listing record as returned by the
// backend. The cache layer never mutates a Listing; a changed listing arrives
// as a whole new snapshot on the next fetch.
type Listing struct {
	// ID is assigned by the backend on creation and never changes.
	ID          string        `json:"id" firestore:"id"`
	Title       string        `json:"title" firestore:"title"`
	Description string        `json:"description" firestore:"description"`
	// Price is an integer count of minor currency units (cents). The UI
	// boundary owns the x100 / /100 conversion to major units.
	Price     int64         `json:"price" firestore:"price"`
	Size      string        `json:"size" firestore:"size"`
	Color     string        `json:"color" firestore:"color"`
	Condition string        `json:"condition" firestore:"condition"`
	Available bool          `json:"isAvailable" firestore:"isAvailable"`
	Featured  bool          `json:"isFeatured" firestore:"isFeatured"`
	Seller    Principal     `json:"sellerId" firestore:"sellerId"`
	Photos    []blob.Handle `json:"photos" firestore:"photos"`
}

// ListingFields carries the seller-editable subset of a Listing for create
// and update calls. The backend owns ID, Seller and the Featured flag on
// update (promotion is a separate operation).
type ListingFields struct {
	Title       string
	Description string
	Price       int64
	Size        string
	Color       string
	Condition   string
	Photos      []blob.Handle
	Available   bool
	Featured    bool
}

// Message is one buyer inquiry on a listing. Messages are append-only; no
// edit or delete operation exists anywhere in the system.
type Message struct {
	ListingID string    `json:"listingId" firestore:"listingId"`
	Buyer     Principal `json:"buyerId" firestore:"buyerId"`
	Seller    Principal `json:"sellerId" firestore:"sellerId"`
	Body      string    `json:"message" firestore:"message"`
}

// UserProfile is the principal-keyed profile triple. Absence of a profile
// (a nil *UserProfile from the backend) is meaningful: it drives first-use
// setup and is distinct from an empty profile.
type UserProfile struct {
	Name string `json:"name" firestore:"name"`
	Role string `json:"role" firestore:"role"`
	Bio  string `json:"bio" firestore:"bio"`
}

// Suggested vocabularies for the open string fields. The backend does not
// enforce these; they exist so UIs can offer consistent filter chips.
var (
	SuggestedSizes = []string{
		"XS", "S", "M", "L", "XL", "XXL",
		"0", "2", "4", "6", "8", "10", "12", "14", "16",
	}
	SuggestedColors = []string{
		"Red", "Blue", "Green", "Pink", "Purple", "Black",
		"White", "Gold", "Silver", "Navy", "Burgundy", "Champagne",
	}
	SuggestedConditions = []string{
		"New with tags", "Like new", "Good", "Fair",
	}
)
