//go:build integration

package marketplace_test

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/illmade-knight/go-test/emulators"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-marketdata/pkg/marketplace"
	"github.com/illmade-knight/go-marketdata/pkg/types"
)

func TestFirestoreBackend_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	const projectID = "marketdata-test-project"

	firestoreDefaults := emulators.GetDefaultFirestoreConfig(projectID)
	firestoreConn := emulators.SetupFirestoreEmulator(t, ctx, firestoreDefaults)

	client, err := firestore.NewClient(ctx, projectID, firestoreConn.ClientOptions...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	cfg := marketplace.FirestoreBackendConfig{ProjectID: projectID}
	seller, err := marketplace.NewFirestoreBackend(client, "seller-1", cfg, zerolog.Nop())
	require.NoError(t, err)
	buyer, err := marketplace.NewFirestoreBackend(client, "buyer-1", cfg, zerolog.Nop())
	require.NoError(t, err)

	t.Run("Missing listing reads as absent, not as an error", func(t *testing.T) {
		listing, err := seller.Listing(ctx, "no-such-doc")
		require.NoError(t, err)
		assert.Nil(t, listing)
	})

	t.Run("Create and query round trip", func(t *testing.T) {
		id, err := seller.AddListing(ctx, newFields("Navy Slip"))
		require.NoError(t, err)
		require.NotEmpty(t, id)

		listing, err := seller.Listing(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, listing)
		assert.Equal(t, id, listing.ID)
		assert.Equal(t, types.Principal("seller-1"), listing.Seller)
		assert.True(t, listing.Available, "new listings are always available")
		assert.False(t, listing.Featured)

		available, err := seller.AvailableListings(ctx)
		require.NoError(t, err)
		assert.Len(t, available, 1)

		mine, err := seller.SellerListings(ctx, "seller-1")
		require.NoError(t, err)
		assert.Len(t, mine, 1)

		featured, err := seller.FeaturedListings(ctx)
		require.NoError(t, err)
		assert.Empty(t, featured)
	})

	t.Run("Ownership is checked inside the write transaction", func(t *testing.T) {
		id, err := seller.AddListing(ctx, newFields("Guarded Gown"))
		require.NoError(t, err)

		require.ErrorIs(t, buyer.UpdateListing(ctx, id, newFields("Hijacked")), marketplace.ErrNotOwner)
		require.ErrorIs(t, buyer.DeleteListing(ctx, id), marketplace.ErrNotOwner)
		require.ErrorIs(t, buyer.PromoteListing(ctx, id), marketplace.ErrNotOwner)

		// The rejected writes must not have touched the document.
		listing, err := seller.Listing(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, listing)
		assert.Equal(t, "Guarded Gown", listing.Title)
	})

	t.Run("Writes against missing listings fail with not-found", func(t *testing.T) {
		require.ErrorIs(t, seller.UpdateListing(ctx, "no-such-doc", newFields("X")), marketplace.ErrListingNotFound)
		require.ErrorIs(t, seller.DeleteListing(ctx, "no-such-doc"), marketplace.ErrListingNotFound)
	})

	t.Run("Promote marks the listing featured", func(t *testing.T) {
		id, err := seller.AddListing(ctx, newFields("Feature Me"))
		require.NoError(t, err)

		require.NoError(t, seller.PromoteListing(ctx, id))

		listing, err := seller.Listing(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, listing)
		assert.True(t, listing.Featured)
	})

	t.Run("Search scans available listings only", func(t *testing.T) {
		burgundy := newFields("Burgundy Wrap")
		burgundy.Color = "Burgundy"
		soldID, err := seller.AddListing(ctx, burgundy)
		require.NoError(t, err)

		matched, err := buyer.SearchListings(ctx, "burgundy")
		require.NoError(t, err)
		require.Len(t, matched, 1)
		assert.Equal(t, soldID, matched[0].ID)

		// Selling it removes it from search results.
		sold := burgundy
		sold.Available = false
		require.NoError(t, seller.UpdateListing(ctx, soldID, sold))

		matched, err = buyer.SearchListings(ctx, "burgundy")
		require.NoError(t, err)
		assert.Empty(t, matched)
	})

	t.Run("Messages append to a listing's thread", func(t *testing.T) {
		id, err := seller.AddListing(ctx, newFields("Inquired Gown"))
		require.NoError(t, err)

		thread, err := buyer.Messages(ctx, id)
		require.NoError(t, err)
		require.Empty(t, thread)

		require.NoError(t, buyer.SendMessage(ctx, "seller-1", id, "Is this still available?"))

		thread, err = buyer.Messages(ctx, id)
		require.NoError(t, err)
		require.Len(t, thread, 1)
		assert.Equal(t, types.Principal("buyer-1"), thread[0].Buyer)
		assert.Equal(t, "Is this still available?", thread[0].Body)
	})

	t.Run("Profile absence is a nil read, save makes it visible", func(t *testing.T) {
		profile, err := seller.CallerProfile(ctx)
		require.NoError(t, err)
		assert.Nil(t, profile)

		require.NoError(t, seller.SaveCallerProfile(ctx, types.UserProfile{Name: "Ada", Role: "seller", Bio: "hi"}))

		profile, err = buyer.Profile(ctx, "seller-1")
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.Equal(t, "Ada", profile.Name)
	})

	t.Run("Role defaults to user when no assignment document exists", func(t *testing.T) {
		role, err := seller.CallerRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.RoleUser, role)

		admin, err := seller.IsCallerAdmin(ctx)
		require.NoError(t, err)
		assert.False(t, admin)

		require.ErrorIs(t, seller.AssignRole(ctx, "buyer-1", types.RoleAdmin), marketplace.ErrNotAdmin)
	})

	t.Run("Assigned roles are honored", func(t *testing.T) {
		// Seed an admin assignment directly, the way a deployment bootstrap
		// would.
		_, err := client.Collection("roles").Doc("root-admin").Set(ctx, map[string]interface{}{"role": "admin"})
		require.NoError(t, err)

		rootAdmin, err := marketplace.NewFirestoreBackend(client, "root-admin", cfg, zerolog.Nop())
		require.NoError(t, err)

		isAdmin, err := rootAdmin.IsCallerAdmin(ctx)
		require.NoError(t, err)
		require.True(t, isAdmin)

		require.NoError(t, rootAdmin.AssignRole(ctx, "buyer-1", types.RoleGuest))

		role, err := buyer.CallerRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.RoleGuest, role)
	})
}
