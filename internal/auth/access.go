package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

// Store is the persistence AccessControl reads from.
type Store interface {
	// HouseOwner returns the owner's user id, or an error matching
	// apperr.ErrNotFound when the house does not exist.
	HouseOwner(ctx context.Context, houseID string) (string, error)

	// GetMembership returns the (house, user) row, or ErrMembershipNotFound.
	GetMembership(ctx context.Context, houseID, userID string) (*Membership, error)
}

// Checker resolves a user's effective role in a house and enforces minimums.
type Checker struct {
	store Store
}

// NewChecker creates a Checker backed by store.
func NewChecker(store Store) *Checker {
	return &Checker{store: store}
}

// Role returns the effective role of userID in houseID: OWNER for the house
// owner, otherwise the role of an ACCEPTED membership.
func (c *Checker) Role(ctx context.Context, houseID, userID string) (Role, error) {
	ownerID, err := c.owner(ctx, houseID)
	if err != nil {
		return "", err
	}
	if userID != "" && userID == ownerID {
		return RoleOwner, nil
	}

	m, err := c.store.GetMembership(ctx, houseID, userID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return "", ErrNotMember
		}
		return "", fmt.Errorf("looking up membership: %w", err)
	}
	if m.Status != StatusAccepted {
		return "", ErrNotMember
	}
	return m.Role, nil
}

func (c *Checker) owner(ctx context.Context, houseID string) (string, error) {
	ownerID, err := c.store.HouseOwner(ctx, houseID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", ErrHouseNotFound
		}
		return "", fmt.Errorf("looking up house %s: %w", houseID, err)
	}
	return ownerID, nil
}

// CheckAccess returns nil when userID holds at least the required role in
// houseID. It fails with ErrHouseNotFound for a missing house and with an
// apperr.ErrForbidden error when the user is not an accepted member or
// ranks too low. The owner always passes.
func (c *Checker) CheckAccess(ctx context.Context, houseID, userID string, required Role) error {
	role, err := c.Role(ctx, houseID, userID)
	if err != nil {
		return err
	}
	if !role.Satisfies(required) {
		return ErrInsufficientRole
	}
	return nil
}

// Authorize is CheckAccess with the threshold taken from the action policy.
func (c *Checker) Authorize(ctx context.Context, houseID, userID string, action Action) error {
	return c.CheckAccess(ctx, houseID, userID, RequiredRole(action))
}
