package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/illmade-knight/go-marketdata/pkg/types"
)

// FirestoreBackendConfig holds the collection layout for the Firestore
// rendering of the authoritative store.
type FirestoreBackendConfig struct {
	ProjectID          string
	ListingsCollection string
	MessagesCollection string
	ProfilesCollection string
	RolesCollection    string
}

func (c *FirestoreBackendConfig) applyDefaults() {
	if c.ListingsCollection == "" {
		c.ListingsCollection = "listings"
	}
	if c.MessagesCollection == "" {
		c.MessagesCollection = "messages"
	}
	if c.ProfilesCollection == "" {
		c.ProfilesCollection = "profiles"
	}
	if c.RolesCollection == "" {
		c.RolesCollection = "roles"
	}
}

// FirestoreBackend implements the Backend interface against Firestore
// collections. Like every Backend it is session-scoped: ownership checks run
// against the caller principal it was created with.
type FirestoreBackend struct {
	client *firestore.Client
	caller types.Principal
	config FirestoreBackendConfig
	logger zerolog.Logger
}

// NewFirestoreBackend wraps an existing Firestore client. The client's
// lifecycle stays with the caller.
func NewFirestoreBackend(
	client *firestore.Client,
	caller types.Principal,
	cfg FirestoreBackendConfig,
	logger zerolog.Logger,
) (*FirestoreBackend, error) {
	if client == nil {
		return nil, errors.New("firestore client cannot be nil")
	}
	cfg.applyDefaults()
	return &FirestoreBackend{
		client: client,
		caller: caller,
		config: cfg,
		logger: logger.With().Str("component", "FirestoreBackend").Logger(),
	}, nil
}

// ConnectFirestoreBackend dials Firestore and returns a session-scoped
// backend over it. Extra client options (emulator endpoints, credentials)
// pass straight through.
func ConnectFirestoreBackend(
	ctx context.Context,
	caller types.Principal,
	cfg FirestoreBackendConfig,
	logger zerolog.Logger,
	opts ...option.ClientOption,
) (*FirestoreBackend, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firestore project id is required")
	}
	client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to firestore: %w", err)
	}
	return NewFirestoreBackend(client, caller, cfg, logger)
}

// Close releases the underlying Firestore client.
func (b *FirestoreBackend) Close() error {
	return b.client.Close()
}

// roleDoc is the stored shape of a role assignment.
type roleDoc struct {
	Role string `firestore:"role"`
}

func (b *FirestoreBackend) listings() *firestore.CollectionRef {
	return b.client.Collection(b.config.ListingsCollection)
}

// AddListing creates a listing document keyed by a generated id. New
// listings are always available.
func (b *FirestoreBackend) AddListing(ctx context.Context, fields types.ListingFields) (string, error) {
	doc := b.listings().NewDoc()
	listing := types.Listing{
		ID:          doc.ID,
		Title:       fields.Title,
		Description: fields.Description,
		Price:       fields.Price,
		Size:        fields.Size,
		Color:       fields.Color,
		Condition:   fields.Condition,
		Available:   true,
		Featured:    fields.Featured,
		Seller:      b.caller,
		Photos:      fields.Photos,
	}
	if _, err := doc.Create(ctx, listing); err != nil {
		b.logger.Error().Err(err).Msg("Failed to create listing document.")
		return "", fmt.Errorf("firestore create listing: %w", err)
	}
	return doc.ID, nil
}

// UpdateListing rewrites the editable fields of a caller-owned listing
// inside a transaction, so the ownership check and the write are atomic.
func (b *FirestoreBackend) UpdateListing(ctx context.Context, listingID string, fields types.ListingFields) error {
	return b.ownedListingTxn(ctx, listingID, func(listing types.Listing) types.Listing {
		listing.Title = fields.Title
		listing.Description = fields.Description
		listing.Price = fields.Price
		listing.Size = fields.Size
		listing.Color = fields.Color
		listing.Condition = fields.Condition
		listing.Available = fields.Available
		listing.Photos = fields.Photos
		return listing
	})
}

// DeleteListing removes a caller-owned listing document.
func (b *FirestoreBackend) DeleteListing(ctx context.Context, listingID string) error {
	ref := b.listings().Doc(listingID)
	return b.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		listing, err := b.readListing(tx, ref)
		if err != nil {
			return err
		}
		if listing.Seller != b.caller {
			return ErrNotOwner
		}
		return tx.Delete(ref)
	})
}

// PromoteListing marks a caller-owned listing as featured.
func (b *FirestoreBackend) PromoteListing(ctx context.Context, listingID string) error {
	return b.ownedListingTxn(ctx, listingID, func(listing types.Listing) types.Listing {
		listing.Featured = true
		return listing
	})
}

// ownedListingTxn reads a listing, verifies caller ownership and writes the
// mutated snapshot back, all within one transaction.
func (b *FirestoreBackend) ownedListingTxn(ctx context.Context, listingID string, mutate func(types.Listing) types.Listing) error {
	ref := b.listings().Doc(listingID)
	return b.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		listing, err := b.readListing(tx, ref)
		if err != nil {
			return err
		}
		if listing.Seller != b.caller {
			return ErrNotOwner
		}
		return tx.Set(ref, mutate(listing))
	})
}

func (b *FirestoreBackend) readListing(tx *firestore.Transaction, ref *firestore.DocumentRef) (types.Listing, error) {
	var listing types.Listing
	snap, err := tx.Get(ref)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return listing, ErrListingNotFound
		}
		return listing, fmt.Errorf("firestore get listing %s: %w", ref.ID, err)
	}
	if err := snap.DataTo(&listing); err != nil {
		return listing, fmt.Errorf("firestore DataTo for listing %s: %w", ref.ID, err)
	}
	return listing, nil
}

// AllListings returns every listing document.
func (b *FirestoreBackend) AllListings(ctx context.Context) ([]types.Listing, error) {
	return b.queryListings(ctx, b.listings().Query)
}

// AvailableListings returns unsold listings.
func (b *FirestoreBackend) AvailableListings(ctx context.Context) ([]types.Listing, error) {
	return b.queryListings(ctx, b.listings().Where("isAvailable", "==", true))
}

// FeaturedListings returns featured listings.
func (b *FirestoreBackend) FeaturedListings(ctx context.Context) ([]types.Listing, error) {
	return b.queryListings(ctx, b.listings().Where("isFeatured", "==", true))
}

// Listing returns one listing by id, or (nil, nil) when the document does
// not exist.
func (b *FirestoreBackend) Listing(ctx context.Context, id string) (*types.Listing, error) {
	snap, err := b.listings().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		b.logger.Error().Err(err).Str("listing_id", id).Msg("Failed to get listing from Firestore.")
		return nil, fmt.Errorf("firestore get listing %s: %w", id, err)
	}
	var listing types.Listing
	if err := snap.DataTo(&listing); err != nil {
		return nil, fmt.Errorf("firestore DataTo for listing %s: %w", id, err)
	}
	return &listing, nil
}

// SellerListings returns the listings owned by one seller.
func (b *FirestoreBackend) SellerListings(ctx context.Context, seller types.Principal) ([]types.Listing, error) {
	return b.queryListings(ctx, b.listings().Where("sellerId", "==", string(seller)))
}

// SearchListings scans available listings and filters client-side; Firestore
// has no substring query operator.
func (b *FirestoreBackend) SearchListings(ctx context.Context, keyword string) ([]types.Listing, error) {
	available, err := b.AvailableListings(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(keyword)
	matched := make([]types.Listing, 0, len(available))
	for _, l := range available {
		if strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Description), q) ||
			strings.Contains(strings.ToLower(l.Color), q) ||
			strings.Contains(strings.ToLower(l.Size), q) {
			matched = append(matched, l)
		}
	}
	return matched, nil
}

func (b *FirestoreBackend) queryListings(ctx context.Context, q firestore.Query) ([]types.Listing, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		b.logger.Error().Err(err).Msg("Listing query failed.")
		return nil, fmt.Errorf("firestore listing query: %w", err)
	}
	listings := make([]types.Listing, 0, len(snaps))
	for _, snap := range snaps {
		var listing types.Listing
		if err := snap.DataTo(&listing); err != nil {
			return nil, fmt.Errorf("firestore DataTo for listing %s: %w", snap.Ref.ID, err)
		}
		listings = append(listings, listing)
	}
	return listings, nil
}

// Messages returns a listing's inquiry thread.
func (b *FirestoreBackend) Messages(ctx context.Context, listingID string) ([]types.Message, error) {
	snaps, err := b.client.Collection(b.config.MessagesCollection).
		Where("listingId", "==", listingID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("firestore message query for %s: %w", listingID, err)
	}
	messages := make([]types.Message, 0, len(snaps))
	for _, snap := range snaps {
		var msg types.Message
		if err := snap.DataTo(&msg); err != nil {
			return nil, fmt.Errorf("firestore DataTo for message %s: %w", snap.Ref.ID, err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// SendMessage appends a buyer inquiry to a listing's thread.
func (b *FirestoreBackend) SendMessage(ctx context.Context, seller types.Principal, listingID, body string) error {
	msg := types.Message{
		ListingID: listingID,
		Buyer:     b.caller,
		Seller:    seller,
		Body:      body,
	}
	if _, _, err := b.client.Collection(b.config.MessagesCollection).Add(ctx, msg); err != nil {
		return fmt.Errorf("firestore send message for %s: %w", listingID, err)
	}
	return nil
}

// CallerProfile returns the caller's profile, or (nil, nil) when absent.
func (b *FirestoreBackend) CallerProfile(ctx context.Context) (*types.UserProfile, error) {
	return b.Profile(ctx, b.caller)
}

// Profile returns a user's profile by principal, or (nil, nil) when absent.
func (b *FirestoreBackend) Profile(ctx context.Context, user types.Principal) (*types.UserProfile, error) {
	snap, err := b.client.Collection(b.config.ProfilesCollection).Doc(string(user)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("firestore get profile %s: %w", user, err)
	}
	var profile types.UserProfile
	if err := snap.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("firestore DataTo for profile %s: %w", user, err)
	}
	return &profile, nil
}

// SaveCallerProfile creates or replaces the caller's profile document.
func (b *FirestoreBackend) SaveCallerProfile(ctx context.Context, profile types.UserProfile) error {
	_, err := b.client.Collection(b.config.ProfilesCollection).Doc(string(b.caller)).Set(ctx, profile)
	if err != nil {
		return fmt.Errorf("firestore save profile: %w", err)
	}
	return nil
}

// CallerRole returns the caller's role, defaulting to the user role when no
// assignment document exists.
func (b *FirestoreBackend) CallerRole(ctx context.Context) (types.UserRole, error) {
	snap, err := b.client.Collection(b.config.RolesCollection).Doc(string(b.caller)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return types.RoleUser, nil
		}
		return "", fmt.Errorf("firestore get role: %w", err)
	}
	var doc roleDoc
	if err := snap.DataTo(&doc); err != nil {
		return "", fmt.Errorf("firestore DataTo for role: %w", err)
	}
	return types.UserRole(doc.Role), nil
}

// IsCallerAdmin reports whether the caller holds the admin role.
func (b *FirestoreBackend) IsCallerAdmin(ctx context.Context) (bool, error) {
	role, err := b.CallerRole(ctx)
	if err != nil {
		return false, err
	}
	return role == types.RoleAdmin, nil
}

// AssignRole grants a role to a user. Admin-only.
func (b *FirestoreBackend) AssignRole(ctx context.Context, user types.Principal, role types.UserRole) error {
	admin, err := b.IsCallerAdmin(ctx)
	if err != nil {
		return err
	}
	if !admin {
		return ErrNotAdmin
	}
	_, err = b.client.Collection(b.config.RolesCollection).Doc(string(user)).Set(ctx, roleDoc{Role: string(role)})
	if err != nil {
		return fmt.Errorf("firestore assign role for %s: %w", user, err)
	}
	return nil
}
