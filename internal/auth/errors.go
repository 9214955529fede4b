package auth

import (
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

var (
	// ErrHouseNotFound is returned when the house being checked does not exist.
	ErrHouseNotFound = fmt.Errorf("auth: house %w", apperr.ErrNotFound)

	// ErrMembershipNotFound is returned when no membership row matches.
	ErrMembershipNotFound = fmt.Errorf("auth: membership %w", apperr.ErrNotFound)

	// ErrNotMember is returned when the user has no accepted membership.
	ErrNotMember = fmt.Errorf("auth: not a member of this house: %w", apperr.ErrForbidden)

	// ErrInsufficientRole is returned when the member's role is too low.
	ErrInsufficientRole = fmt.Errorf("auth: insufficient role: %w", apperr.ErrForbidden)

	// ErrInvalidRole is returned for roles outside MEMBER, ADMIN and OWNER,
	// and for attempts to grant OWNER through a membership.
	ErrInvalidRole = fmt.Errorf("auth: invalid role: %w", apperr.ErrValidation)

	// ErrOwnerAction is returned when an operation would add, remove or
	// demote the house owner through the membership table.
	ErrOwnerAction = fmt.Errorf("auth: not applicable to the house owner: %w", apperr.ErrValidation)

	// ErrMemberExists is returned when inviting a user who already has a row.
	ErrMemberExists = fmt.Errorf("auth: membership already exists: %w", apperr.ErrConflict)

	// ErrNotPending is returned when accepting an invitation that was already accepted.
	ErrNotPending = fmt.Errorf("auth: invitation is not pending: %w", apperr.ErrConflict)
)
