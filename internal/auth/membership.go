package auth

import (
	"context"
	"time"
)

// MembershipService runs the invitation and role-management workflows.
// Every action takes the acting user's id and checks it first.
type MembershipService struct {
	repo    MembershipRepository
	checker *Checker
	now     func() time.Time
}

// NewMembershipService creates a MembershipService.
func NewMembershipService(repo MembershipRepository, checker *Checker) *MembershipService {
	return &MembershipService{
		repo:    repo,
		checker: checker,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Invite creates a PENDING membership for inviteeID. Only the owner may
// invite, the owner cannot be invited, and OWNER cannot be granted.
func (s *MembershipService) Invite(ctx context.Context, houseID, callerID, inviteeID string, role Role) (*Membership, error) {
	if !role.Valid() || role == RoleOwner {
		return nil, ErrInvalidRole
	}

	ownerID, err := s.checker.owner(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if inviteeID == ownerID {
		return nil, ErrOwnerAction
	}

	if err := s.checker.Authorize(ctx, houseID, callerID, ActionManageMembers); err != nil {
		return nil, err
	}

	m := &Membership{
		HouseID:   houseID,
		UserID:    inviteeID,
		Role:      role,
		Status:    StatusPending,
		InvitedBy: callerID,
		CreatedAt: s.now(),
	}
	if err := s.repo.CreateMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// PendingInvitations lists invitations addressed to callerID.
func (s *MembershipService) PendingInvitations(ctx context.Context, callerID string) ([]Membership, error) {
	return s.repo.ListPending(ctx, callerID)
}

// Accept accepts the caller's own pending invitation to houseID.
func (s *MembershipService) Accept(ctx context.Context, houseID, callerID string) error {
	return s.repo.AcceptMembership(ctx, houseID, callerID, s.now())
}

// Reject declines the caller's pending invitation by deleting it.
func (s *MembershipService) Reject(ctx context.Context, houseID, callerID string) error {
	m, err := s.repo.GetMembership(ctx, houseID, callerID)
	if err != nil {
		return err
	}
	if m.Status != StatusPending {
		return ErrNotPending
	}
	return s.repo.DeleteMembership(ctx, houseID, callerID)
}

// ListMembers returns the house's memberships. The owner is listed first as
// a synthetic ACCEPTED OWNER entry.
func (s *MembershipService) ListMembers(ctx context.Context, houseID, callerID string) ([]Membership, error) {
	if err := s.checker.Authorize(ctx, houseID, callerID, ActionRead); err != nil {
		return nil, err
	}
	ownerID, err := s.checker.owner(ctx, houseID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListMembers(ctx, houseID)
	if err != nil {
		return nil, err
	}

	out := make([]Membership, 0, len(rows)+1)
	out = append(out, Membership{HouseID: houseID, UserID: ownerID, Role: RoleOwner, Status: StatusAccepted})
	return append(out, rows...), nil
}

// UpdateRole changes a member's role. Only the owner may do this and OWNER
// cannot be granted.
func (s *MembershipService) UpdateRole(ctx context.Context, houseID, callerID, targetID string, role Role) error {
	if !role.Valid() || role == RoleOwner {
		return ErrInvalidRole
	}
	if err := s.checker.Authorize(ctx, houseID, callerID, ActionManageMembers); err != nil {
		return err
	}
	return s.repo.UpdateRole(ctx, houseID, targetID, role)
}

// Remove deletes another user's membership. Only the owner may do this.
func (s *MembershipService) Remove(ctx context.Context, houseID, callerID, targetID string) error {
	if err := s.checker.Authorize(ctx, houseID, callerID, ActionManageMembers); err != nil {
		return err
	}
	return s.repo.DeleteMembership(ctx, houseID, targetID)
}

// Leave deletes the caller's own membership. The owner cannot leave.
func (s *MembershipService) Leave(ctx context.Context, houseID, callerID string) error {
	ownerID, err := s.checker.owner(ctx, houseID)
	if err != nil {
		return err
	}
	if callerID == ownerID {
		return ErrOwnerAction
	}
	return s.repo.DeleteMembership(ctx, houseID, callerID)
}
