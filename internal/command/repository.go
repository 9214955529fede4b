package command

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nestwire/nestwire-core/internal/codec"
	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
)

// Repository persists the command log.
type Repository interface {
	Create(ctx context.Context, c *Command) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	// ListByDevice returns commands newest first.
	ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]Command, error)
	// Prune keeps the newest keep commands of a device and returns how
	// many were deleted.
	Prune(ctx context.Context, deviceID string, keep int) (int64, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts c.
func (r *SQLiteRepository) Create(ctx context.Context, c *Command) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO commands (id, device_id, endpoint_id, verb, payload, status, created_at, acked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.DeviceID, c.EndpointID, string(c.Verb), c.Payload, string(c.Status),
		database.FormatTime(c.CreatedAt), database.NullableTime(c.AckedAt))
	if err != nil {
		return fmt.Errorf("inserting command: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of a command.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE commands SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("updating command %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrCommandNotFound
	}
	return nil
}

// ListByDevice returns a page of a device's commands, newest first. Ties
// on created_at fall back to insertion order.
func (r *SQLiteRepository) ListByDevice(ctx context.Context, deviceID string, limit, offset int) ([]Command, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, endpoint_id, verb, payload, status, created_at, acked_at
		 FROM commands WHERE device_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		deviceID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying commands: %w", err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		var (
			c         Command
			verb      string
			status    string
			createdAt string
			ackedAt   sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.DeviceID, &c.EndpointID, &verb, &c.Payload, &status, &createdAt, &ackedAt); err != nil {
			return nil, fmt.Errorf("scanning command: %w", err)
		}
		c.Verb = codec.Verb(verb)
		c.Status = Status(status)
		if c.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		if c.AckedAt, err = database.ParseNullTime(ackedAt); err != nil {
			return nil, fmt.Errorf("parsing acked_at: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating commands: %w", err)
	}
	return out, nil
}

// Prune deletes all but the newest keep commands of a device.
func (r *SQLiteRepository) Prune(ctx context.Context, deviceID string, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM commands WHERE device_id = ? AND rowid NOT IN (
			SELECT rowid FROM commands WHERE device_id = ?
			ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`,
		deviceID, deviceID, keep)
	if err != nil {
		return 0, fmt.Errorf("pruning commands for %s: %w", deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
