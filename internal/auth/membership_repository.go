package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
)

// MembershipRepository persists home_members rows and resolves house owners.
type MembershipRepository interface {
	Store
	CreateMembership(ctx context.Context, m *Membership) error
	AcceptMembership(ctx context.Context, houseID, userID string, at time.Time) error
	UpdateRole(ctx context.Context, houseID, userID string, role Role) error
	DeleteMembership(ctx context.Context, houseID, userID string) error
	ListMembers(ctx context.Context, houseID string) ([]Membership, error)
	ListPending(ctx context.Context, userID string) ([]Membership, error)
}

// SQLiteRepository implements MembershipRepository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a membership repository on db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const memberColumns = `house_id, user_id, role, status, invited_by, joined_at, created_at`

// HouseOwner returns the owner of houseID.
func (r *SQLiteRepository) HouseOwner(ctx context.Context, houseID string) (string, error) {
	var owner string
	err := r.db.QueryRowContext(ctx, "SELECT owner_id FROM houses WHERE id = ?", houseID).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("house %s: %w", houseID, apperr.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("querying house owner: %w", err)
	}
	return owner, nil
}

// GetMembership returns the membership of userID in houseID.
func (r *SQLiteRepository) GetMembership(ctx context.Context, houseID, userID string) (*Membership, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM home_members WHERE house_id = ? AND user_id = ?",
		houseID, userID)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMembershipNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying membership: %w", err)
	}
	return m, nil
}

// CreateMembership inserts m. A duplicate (house, user) returns ErrMemberExists.
func (r *SQLiteRepository) CreateMembership(ctx context.Context, m *Membership) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO home_members ("+memberColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		m.HouseID, m.UserID, string(m.Role), string(m.Status), m.InvitedBy,
		database.NullableTime(m.JoinedAt), database.FormatTime(m.CreatedAt))
	if database.IsUniqueViolation(err) {
		return ErrMemberExists
	}
	if err != nil {
		return fmt.Errorf("inserting membership: %w", err)
	}
	return nil
}

// AcceptMembership flips a PENDING row to ACCEPTED.
func (r *SQLiteRepository) AcceptMembership(ctx context.Context, houseID, userID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE home_members SET status = ?, joined_at = ?
		 WHERE house_id = ? AND user_id = ? AND status = ?`,
		string(StatusAccepted), database.FormatTime(at), houseID, userID, string(StatusPending))
	if err != nil {
		return fmt.Errorf("accepting membership: %w", err)
	}
	return r.requireRow(ctx, res, houseID, userID)
}

// UpdateRole changes the role of an existing membership.
func (r *SQLiteRepository) UpdateRole(ctx context.Context, houseID, userID string, role Role) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE home_members SET role = ? WHERE house_id = ? AND user_id = ?",
		string(role), houseID, userID)
	if err != nil {
		return fmt.Errorf("updating role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports
		return ErrMembershipNotFound
	}
	return nil
}

// DeleteMembership removes the (house, user) row.
func (r *SQLiteRepository) DeleteMembership(ctx context.Context, houseID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM home_members WHERE house_id = ? AND user_id = ?", houseID, userID)
	if err != nil {
		return fmt.Errorf("deleting membership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 { //nolint:errcheck // sqlite always reports
		return ErrMembershipNotFound
	}
	return nil
}

// ListMembers returns every membership row of houseID, oldest first.
func (r *SQLiteRepository) ListMembers(ctx context.Context, houseID string) ([]Membership, error) {
	return r.list(ctx,
		"SELECT "+memberColumns+" FROM home_members WHERE house_id = ? ORDER BY created_at, user_id",
		houseID)
}

// ListPending returns the open invitations addressed to userID.
func (r *SQLiteRepository) ListPending(ctx context.Context, userID string) ([]Membership, error) {
	return r.list(ctx,
		"SELECT "+memberColumns+" FROM home_members WHERE user_id = ? AND status = ? ORDER BY created_at",
		userID, string(StatusPending))
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]Membership, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying memberships: %w", err)
	}
	defer rows.Close()

	members := []Membership{}
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning membership: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating memberships: %w", err)
	}
	return members, nil
}

// requireRow distinguishes "no such row" from "row in the wrong state" after
// a conditional UPDATE touched nothing.
func (r *SQLiteRepository) requireRow(ctx context.Context, res sql.Result, houseID, userID string) error {
	if n, _ := res.RowsAffected(); n > 0 { //nolint:errcheck // sqlite always reports
		return nil
	}
	if _, err := r.GetMembership(ctx, houseID, userID); err != nil {
		return err
	}
	return ErrNotPending
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMembership(row rowScanner) (*Membership, error) {
	var m Membership
	var role, status, createdAt string
	var joinedAt sql.NullString

	if err := row.Scan(&m.HouseID, &m.UserID, &role, &status, &m.InvitedBy, &joinedAt, &createdAt); err != nil {
		return nil, err
	}
	m.Role = Role(role)
	m.Status = Status(status)

	var err error
	if m.JoinedAt, err = database.ParseNullTime(joinedAt); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &m, nil
}
