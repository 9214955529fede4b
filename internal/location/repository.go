package location

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
)

// Repository defines house and room persistence.
type Repository interface {
	CreateHouse(ctx context.Context, h *House) error
	GetHouse(ctx context.Context, id string) (*House, error)
	ListHousesByOwner(ctx context.Context, ownerID string) ([]House, error)
	DeleteHouse(ctx context.Context, id string) (DeleteResult, error)

	CreateRoom(ctx context.Context, room *Room) error
	GetRoom(ctx context.Context, id string) (*Room, error)
	ListRooms(ctx context.Context, houseID string) ([]Room, error)
	DeleteRoom(ctx context.Context, id string) (DeleteResult, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed location repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// CreateHouse inserts h.
func (r *SQLiteRepository) CreateHouse(ctx context.Context, h *House) error {
	meta := "{}"
	if len(h.Metadata) > 0 {
		b, err := json.Marshal(h.Metadata)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
		}
		meta = string(b)
	}
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO houses (id, owner_id, name, address, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.OwnerID, h.Name, h.Address, meta, database.FormatTime(h.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting house %s: %w", h.ID, err)
	}
	return nil
}

// GetHouse returns the house with the given id.
func (r *SQLiteRepository) GetHouse(ctx context.Context, id string) (*House, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, address, metadata, created_at FROM houses WHERE id = ?`, id)
	h, err := scanHouse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrHouseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying house %s: %w", id, err)
	}
	return h, nil
}

// ListHousesByOwner returns houses owned by ownerID, oldest first.
func (r *SQLiteRepository) ListHousesByOwner(ctx context.Context, ownerID string) ([]House, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_id, name, address, metadata, created_at
		 FROM houses WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("querying houses: %w", err)
	}
	defer rows.Close()

	houses := []House{}
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning house: %w", err)
		}
		houses = append(houses, *h)
	}
	return houses, rows.Err()
}

// CreateRoom inserts room. The house must exist.
func (r *SQLiteRepository) CreateRoom(ctx context.Context, room *Room) error {
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO rooms (id, house_id, name, floor, created_at) VALUES (?, ?, ?, ?, ?)`,
		room.ID, room.HouseID, room.Name, room.Floor, database.FormatTime(room.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting room %s: %w", room.ID, err)
	}
	return nil
}

// GetRoom returns the room with the given id.
func (r *SQLiteRepository) GetRoom(ctx context.Context, id string) (*Room, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, house_id, name, floor, created_at FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying room %s: %w", id, err)
	}
	return room, nil
}

// ListRooms returns a house's rooms ordered by floor then name.
func (r *SQLiteRepository) ListRooms(ctx context.Context, houseID string) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, house_id, name, floor, created_at
		 FROM rooms WHERE house_id = ? ORDER BY floor, name`, houseID)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room: %w", err)
		}
		rooms = append(rooms, *room)
	}
	return rooms, rows.Err()
}

// Dependent rows are removed explicitly, children first, so the cascade
// does not rely on the foreign_keys pragma being on.
const (
	roomDevices  = `SELECT id FROM devices WHERE room_id = ?`
	houseDevices = `SELECT id FROM devices WHERE house_id = ?`
)

// DeleteRoom removes a room, its devices and their dependents in one transaction.
func (r *SQLiteRepository) DeleteRoom(ctx context.Context, id string) (DeleteResult, error) {
	var res DeleteResult
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := deleteDevices(ctx, tx, roomDevices, id, &res); err != nil {
			return err
		}
		n, err := execCount(ctx, tx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting room: %w", err)
		}
		if n == 0 {
			return ErrRoomNotFound
		}
		res.Rooms = n
		return nil
	})
	return res, err
}

// DeleteHouse removes a house and everything that belongs to it in one transaction.
func (r *SQLiteRepository) DeleteHouse(ctx context.Context, id string) (DeleteResult, error) {
	var res DeleteResult
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := deleteDevices(ctx, tx, houseDevices, id, &res); err != nil {
			return err
		}

		var err error
		if res.Rooms, err = execCount(ctx, tx, `DELETE FROM rooms WHERE house_id = ?`, id); err != nil {
			return fmt.Errorf("deleting rooms: %w", err)
		}
		if res.Members, err = execCount(ctx, tx, `DELETE FROM home_members WHERE house_id = ?`, id); err != nil {
			return fmt.Errorf("deleting members: %w", err)
		}

		n, err := execCount(ctx, tx, `DELETE FROM houses WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting house: %w", err)
		}
		if n == 0 {
			return ErrHouseNotFound
		}
		return nil
	})
	return res, err
}

// deleteDevices removes the devices selected by deviceQuery and every row
// that references them.
func deleteDevices(ctx context.Context, tx *sql.Tx, deviceQuery, arg string, res *DeleteResult) error {
	steps := []struct {
		table string
		count *int64
	}{
		{"commands", &res.Commands},
		{"auto_off_rules", &res.Rules},
		{"schedules", &res.Schedules},
	}
	for _, s := range steps {
		n, err := execCount(ctx, tx,
			"DELETE FROM "+s.table+" WHERE device_id IN ("+deviceQuery+")", arg)
		if err != nil {
			return fmt.Errorf("deleting %s: %w", s.table, err)
		}
		*s.count = n
	}

	n, err := execCount(ctx, tx, "DELETE FROM devices WHERE id IN ("+deviceQuery+")", arg)
	if err != nil {
		return fmt.Errorf("deleting devices: %w", err)
	}
	res.Devices = n
	return nil
}

func execCount(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHouse(row rowScanner) (*House, error) {
	var h House
	var meta, createdAt string
	if err := row.Scan(&h.ID, &h.OwnerID, &h.Name, &h.Address, &meta, &createdAt); err != nil {
		return nil, err
	}
	if meta != "" && meta != "{}" {
		if err := json.Unmarshal([]byte(meta), &h.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata: %w", err)
		}
	}
	var err error
	if h.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &h, nil
}

func scanRoom(row rowScanner) (*Room, error) {
	var room Room
	var createdAt string
	if err := row.Scan(&room.ID, &room.HouseID, &room.Name, &room.Floor, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if room.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &room, nil
}
