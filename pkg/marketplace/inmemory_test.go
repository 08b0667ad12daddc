package marketplace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illmade-knight/go-marketdata/pkg/marketplace"
	"github.com/illmade-knight/go-marketdata/pkg/types"
)

func TestInMemoryBackend_ListingLifecycle(t *testing.T) {
	ctx := context.Background()
	seller := marketplace.NewInMemoryBackend("seller-1")

	id, err := seller.AddListing(ctx, newFields("Silk Gown"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	t.Run("New listings are available and unfeatured", func(t *testing.T) {
		listing, err := seller.Listing(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, listing)
		assert.True(t, listing.Available)
		assert.False(t, listing.Featured)
		assert.Equal(t, types.Principal("seller-1"), listing.Seller)
	})

	t.Run("Unknown ids read as absent, not as an error", func(t *testing.T) {
		listing, err := seller.Listing(ctx, "no-such-id")
		require.NoError(t, err)
		assert.Nil(t, listing)
	})

	t.Run("Only the owner may mutate", func(t *testing.T) {
		other := seller.WithCaller("someone-else")
		assert.ErrorIs(t, other.UpdateListing(ctx, id, newFields("Hijacked")), marketplace.ErrNotOwner)
		assert.ErrorIs(t, other.DeleteListing(ctx, id), marketplace.ErrNotOwner)
		assert.ErrorIs(t, other.PromoteListing(ctx, id), marketplace.ErrNotOwner)
	})

	t.Run("Mutations on unknown ids fail", func(t *testing.T) {
		assert.ErrorIs(t, seller.DeleteListing(ctx, "no-such-id"), marketplace.ErrListingNotFound)
	})

	t.Run("Promote sets featured without touching other fields", func(t *testing.T) {
		require.NoError(t, seller.PromoteListing(ctx, id))
		listing, err := seller.Listing(ctx, id)
		require.NoError(t, err)
		assert.True(t, listing.Featured)
		assert.Equal(t, "Silk Gown", listing.Title)

		featured, err := seller.FeaturedListings(ctx)
		require.NoError(t, err)
		assert.Len(t, featured, 1)
	})

	t.Run("Update controls availability", func(t *testing.T) {
		fields := newFields("Silk Gown")
		fields.Available = false
		require.NoError(t, seller.UpdateListing(ctx, id, fields))

		available, err := seller.AvailableListings(ctx)
		require.NoError(t, err)
		assert.Empty(t, available)
		all, err := seller.AllListings(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestInMemoryBackend_Search(t *testing.T) {
	ctx := context.Background()
	backend := marketplace.NewInMemoryBackend("seller-1")

	_, err := backend.AddListing(ctx, newFields("Navy Slip"))
	require.NoError(t, err)
	soldID, err := backend.AddListing(ctx, newFields("Navy Maxi"))
	require.NoError(t, err)
	_, err = backend.AddListing(ctx, newFields("Red Midi"))
	require.NoError(t, err)

	t.Run("Matches are case-insensitive across fields", func(t *testing.T) {
		results, err := backend.SearchListings(ctx, "NAVY")
		require.NoError(t, err)
		// Color is Navy on every fixture, so all three match.
		assert.Len(t, results, 3)

		results, err = backend.SearchListings(ctx, "midi")
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Sold listings drop out of search", func(t *testing.T) {
		fields := newFields("Navy Maxi")
		fields.Available = false
		require.NoError(t, backend.UpdateListing(ctx, soldID, fields))

		results, err := backend.SearchListings(ctx, "maxi")
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestInMemoryBackend_ProfilesAndRoles(t *testing.T) {
	ctx := context.Background()
	founder := marketplace.NewInMemoryBackend("founder")
	member := founder.WithCaller("member")

	t.Run("Absent profile is distinct from an empty one", func(t *testing.T) {
		profile, err := member.CallerProfile(ctx)
		require.NoError(t, err)
		assert.Nil(t, profile)

		require.NoError(t, member.SaveCallerProfile(ctx, types.UserProfile{}))
		profile, err = member.CallerProfile(ctx)
		require.NoError(t, err)
		assert.NotNil(t, profile)
	})

	t.Run("Founder is admin, others default to user", func(t *testing.T) {
		admin, err := founder.IsCallerAdmin(ctx)
		require.NoError(t, err)
		assert.True(t, admin)

		role, err := member.CallerRole(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.RoleUser, role)
	})

	t.Run("Only admins assign roles", func(t *testing.T) {
		assert.ErrorIs(t, member.AssignRole(ctx, "member", types.RoleAdmin), marketplace.ErrNotAdmin)

		require.NoError(t, founder.AssignRole(ctx, "member", types.RoleAdmin))
		admin, err := member.IsCallerAdmin(ctx)
		require.NoError(t, err)
		assert.True(t, admin)
	})
}

func TestInMemoryBackend_Messages(t *testing.T) {
	ctx := context.Background()
	seller := marketplace.NewInMemoryBackend("seller-1")
	buyer := seller.WithCaller("buyer-1")

	id, err := seller.AddListing(ctx, newFields("Gown"))
	require.NoError(t, err)

	require.NoError(t, buyer.SendMessage(ctx, "seller-1", id, "first"))
	require.NoError(t, buyer.SendMessage(ctx, "seller-1", id, "second"))
	assert.ErrorIs(t, buyer.SendMessage(ctx, "seller-1", "no-such-id", "lost"), marketplace.ErrListingNotFound)

	thread, err := seller.Messages(ctx, id)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "first", thread[0].Body)
	assert.Equal(t, "second", thread[1].Body)
}
