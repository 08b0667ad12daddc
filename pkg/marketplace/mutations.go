package marketplace

import (
	"context"

	"github.com/illmade-knight/go-marketdata/pkg/types"
	"github.com/illmade-knight/go-marketdata/pkg/viewstore"
)

// ====================================================================================
// The mutation gateway. Every write follows one shape: the backend call is
// issued exactly once; on success the matching effect is dispatched to the
// registry before the call returns, so a caller that awaits a mutation and
// then observes a dependent view is guaranteed to see it Stale; on failure
// nothing is invalidated, because the views still reflect reality.
// ====================================================================================

// MutationState tracks one write operation's lifecycle.
type MutationState int

const (
	MutationIdle MutationState = iota
	MutationPending
	MutationSucceeded
	MutationFailed
)

// String returns the lower-case state name.
func (s MutationState) String() string {
	switch s {
	case MutationPending:
		return "pending"
	case MutationSucceeded:
		return "succeeded"
	case MutationFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Operation names for MutationStateOf.
const (
	OpCreateListing  = "createListing"
	OpUpdateListing  = "updateListing"
	OpDeleteListing  = "deleteListing"
	OpPromoteListing = "promoteListing"
	OpSendMessage    = "sendMessage"
	OpSaveProfile    = "saveProfile"
	OpAssignRole     = "assignRole"
)

// MutationStateOf reports the lifecycle state of a named write operation.
// Operations never invoked report MutationIdle. Re-invoking after a failure
// is permitted and independent; no cooldown is imposed.
//
// The tracker is keyed by operation kind, not by invocation: concurrent or
// successive calls of the same operation each overwrite the recorded state,
// so MutationStateOf reports the most recent transition. Callers that need
// a specific invocation's outcome use that call's error return.
func (c *Client) MutationStateOf(op string) MutationState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ops[op]
}

func (c *Client) setMutationState(op string, state MutationState) {
	c.mu.Lock()
	c.ops[op] = state
	c.mu.Unlock()
}

// runMutation drives the Idle -> Pending -> (Succeeded | Failed) shape. The
// effect function is only consulted on success, with the backend's result.
func (c *Client) runMutation(
	ctx context.Context,
	op string,
	call func(ctx context.Context, b Backend) (any, error),
	effect func(result any) viewstore.Effect,
) (any, error) {
	b := c.backendRef()
	if b == nil {
		return nil, ErrBackendUnavailable
	}

	c.setMutationState(op, MutationPending)
	result, err := call(ctx, b)
	if err != nil {
		c.setMutationState(op, MutationFailed)
		c.logger.Warn().Err(err).Str("op", op).Msg("Mutation failed; views untouched.")
		return nil, err
	}

	invalidated := c.dispatcher.OnMutation(effect(result))
	c.setMutationState(op, MutationSucceeded)
	c.logger.Debug().Str("op", op).Int("invalidated", len(invalidated)).Msg("Mutation succeeded.")
	return result, nil
}

// CreateListing creates a listing owned by the caller and returns its
// backend-assigned id.
func (c *Client) CreateListing(ctx context.Context, fields types.ListingFields) (string, error) {
	result, err := c.runMutation(ctx, OpCreateListing,
		func(ctx context.Context, b Backend) (any, error) {
			return b.AddListing(ctx, fields)
		},
		func(any) viewstore.Effect {
			return viewstore.ListingCreatedEffect(c.caller)
		},
	)
	if err != nil {
		return "", err
	}
	id, _ := result.(string)
	return id, nil
}

// UpdateListing rewrites the editable fields of a listing the caller owns.
func (c *Client) UpdateListing(ctx context.Context, listingID string, fields types.ListingFields) error {
	_, err := c.runMutation(ctx, OpUpdateListing,
		func(ctx context.Context, b Backend) (any, error) {
			return nil, b.UpdateListing(ctx, listingID, fields)
		},
		func(any) viewstore.Effect {
			return viewstore.ListingUpdatedEffect(listingID, c.caller)
		},
	)
	return err
}

// DeleteListing removes a listing the caller owns. The listing/<id> view is
// deliberately not invalidated: a holder of that view keeps its last cached
// value until a separate invalidation, matching the collection-level rows of
// the invalidation table.
func (c *Client) DeleteListing(ctx context.Context, listingID string) error {
	_, err := c.runMutation(ctx, OpDeleteListing,
		func(ctx context.Context, b Backend) (any, error) {
			return nil, b.DeleteListing(ctx, listingID)
		},
		func(any) viewstore.Effect {
			return viewstore.ListingDeletedEffect(listingID, c.caller)
		},
	)
	return err
}

// PromoteListing marks a listing the caller owns as featured.
func (c *Client) PromoteListing(ctx context.Context, listingID string) error {
	_, err := c.runMutation(ctx, OpPromoteListing,
		func(ctx context.Context, b Backend) (any, error) {
			return nil, b.PromoteListing(ctx, listingID)
		},
		func(any) viewstore.Effect {
			return viewstore.ListingPromotedEffect(listingID, c.caller)
		},
	)
	return err
}

// SendMessage delivers a buyer inquiry to a listing's seller.
func (c *Client) SendMessage(ctx context.Context, seller types.Principal, listingID, body string) error {
	_, err := c.runMutation(ctx, OpSendMessage,
		func(ctx context.Context, b Backend) (any, error) {
			return nil, b.SendMessage(ctx, seller, listingID, body)
		},
		func(any) viewstore.Effect {
			return viewstore.MessageSentEffect(listingID)
		},
	)
	return err
}

// SaveProfile writes the caller's profile and invalidates the callerProfile
// view only; listing views are unaffected by profile churn.
func (c *Client) SaveProfile(ctx context.Context, profile types.UserProfile) error {
	_, err := c.runMutation(ctx, OpSaveProfile,
		func(ctx context.Context, b Backend) (any, error) {
			return nil, b.SaveCallerProfile(ctx, profile)
		},
		func(any) viewstore.Effect {
			return viewstore.ProfileSavedEffect()
		},
	)
	return err
}

// AssignRole grants a role to a user. Admin-only; roles are uncached so no
// view is invalidated.
func (c *Client) AssignRole(ctx context.Context, user types.Principal, role types.UserRole) error {
	b := c.backendRef()
	if b == nil {
		return ErrBackendUnavailable
	}
	c.setMutationState(OpAssignRole, MutationPending)
	if err := b.AssignRole(ctx, user, role); err != nil {
		c.setMutationState(OpAssignRole, MutationFailed)
		return err
	}
	c.setMutationState(OpAssignRole, MutationSucceeded)
	return nil
}
