package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
)

// Repository defines device persistence.
type Repository interface {
	// GetByID returns ErrDeviceNotFound when id does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)
	ListByHouse(ctx context.Context, houseID string) ([]Device, error)
	ListByRoom(ctx context.Context, roomID string) ([]Device, error)

	// Create returns ErrDeviceExists when the id is taken.
	Create(ctx context.Context, d *Device) error
	// UpdateInfo replaces name, type code, serial number and room.
	UpdateInfo(ctx context.Context, d *Device) error
	// Delete removes the device and every row that references it.
	Delete(ctx context.Context, id string) error

	AddEndpoint(ctx context.Context, deviceID string, ep Endpoint) error
	UpdateEndpoint(ctx context.Context, deviceID string, ep Endpoint) error
	RemoveEndpoint(ctx context.Context, deviceID string, endpointID int) error

	// UpdateEndpointValue merges one endpoint value into the device selected
	// by scope in a single statement. No other endpoint is touched.
	UpdateEndpointValue(ctx context.Context, scope Scope, endpointID int, v Value, at time.Time) (MergeResult, error)

	// UpdateHealth records liveness for a device.
	UpdateHealth(ctx context.Context, id string, online bool, seen time.Time) error

	// RoomHouse returns the house a room belongs to.
	RoomHouse(ctx context.Context, roomID string) (string, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectDevice = `SELECT id, house_id, room_id, name, type_code, serial_no,
	endpoints, online, last_seen, created_at FROM devices`

// storedEndpoint is the per-endpoint JSON shape inside devices.endpoints,
// which is an object keyed by the decimal endpoint id.
type storedEndpoint struct {
	Name        string       `json:"name"`
	Type        EndpointType `json:"type"`
	Value       Value        `json:"value"`
	LastUpdated string       `json:"last_updated,omitempty"`
}

func toStored(ep Endpoint) storedEndpoint {
	s := storedEndpoint{Name: ep.Name, Type: ep.Type, Value: ep.Value}
	if !ep.LastUpdated.IsZero() {
		s.LastUpdated = database.FormatTime(ep.LastUpdated)
	}
	return s
}

func endpointKey(id int) string { return strconv.Itoa(id) }

// endpointPath returns the JSON path of an endpoint, or of one of its
// fields when field is non-empty.
func endpointPath(id int, field string) string {
	p := `$."` + endpointKey(id) + `"`
	if field != "" {
		p += "." + field
	}
	return p
}

// GetByID returns the device with the given id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, selectDevice+` WHERE id = ?`, id)
	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device %s: %w", id, err)
	}
	return d, nil
}

// ListByHouse returns every device in a house ordered by creation time.
func (r *SQLiteRepository) ListByHouse(ctx context.Context, houseID string) ([]Device, error) {
	return r.list(ctx, selectDevice+` WHERE house_id = ? ORDER BY created_at, id`, houseID)
}

// ListByRoom returns the devices assigned to a room ordered by creation time.
func (r *SQLiteRepository) ListByRoom(ctx context.Context, roomID string) ([]Device, error) {
	return r.list(ctx, selectDevice+` WHERE room_id = ? ORDER BY created_at, id`, roomID)
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

// Create inserts d together with its endpoint definitions.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device) error {
	stored := make(map[string]storedEndpoint, len(d.Endpoints))
	for _, ep := range d.Endpoints {
		stored[endpointKey(ep.ID)] = toStored(ep)
	}
	endpoints, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encoding endpoints: %w", err)
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO devices (id, house_id, room_id, name, type_code, serial_no,
			endpoints, online, last_seen, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.HouseID, database.NullableString(d.RoomID), d.Name, d.TypeCode, d.SerialNo,
		string(endpoints), boolToInt(d.Online), database.NullableTime(d.LastSeen),
		database.FormatTime(d.CreatedAt))
	if database.IsUniqueViolation(err) {
		return ErrDeviceExists
	}
	if err != nil {
		return fmt.Errorf("inserting device %s: %w", d.ID, err)
	}
	return nil
}

// UpdateInfo replaces the descriptive fields and room assignment of d.
func (r *SQLiteRepository) UpdateInfo(ctx context.Context, d *Device) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET name = ?, type_code = ?, serial_no = ?, room_id = ? WHERE id = ?`,
		d.Name, d.TypeCode, d.SerialNo, database.NullableString(d.RoomID), d.ID)
	if err != nil {
		return fmt.Errorf("updating device %s: %w", d.ID, err)
	}
	return requireRow(res, ErrDeviceNotFound)
}

// Delete removes a device and its commands, rules and schedules.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"commands", "auto_off_rules", "schedules"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE device_id = ?", id); err != nil {
				return fmt.Errorf("deleting %s: %w", table, err)
			}
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting device %s: %w", id, err)
		}
		return requireRow(res, ErrDeviceNotFound)
	})
}

// AddEndpoint inserts a new endpoint definition into the device document.
func (r *SQLiteRepository) AddEndpoint(ctx context.Context, deviceID string, ep Endpoint) error {
	doc, err := json.Marshal(toStored(ep))
	if err != nil {
		return fmt.Errorf("encoding endpoint: %w", err)
	}
	path := endpointPath(ep.ID, "")

	// json_insert never overwrites, so an existing key leaves the row as is
	// and the json_type check below reports the conflict.
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET endpoints = json_insert(endpoints, ?, json(?))
		 WHERE id = ? AND json_type(endpoints, ?) IS NULL`,
		path, string(doc), deviceID, path)
	if err != nil {
		return fmt.Errorf("adding endpoint %d to %s: %w", ep.ID, deviceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, deviceID); err != nil {
		return err
	}
	return ErrEndpointExists
}

// UpdateEndpoint replaces the name and type of an existing endpoint. The
// stored value and timestamp are preserved.
func (r *SQLiteRepository) UpdateEndpoint(ctx context.Context, deviceID string, ep Endpoint) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET endpoints = json_set(endpoints, ?, ?, ?, ?)
		 WHERE id = ? AND json_type(endpoints, ?) IS NOT NULL`,
		endpointPath(ep.ID, "name"), ep.Name,
		endpointPath(ep.ID, "type"), string(ep.Type),
		deviceID, endpointPath(ep.ID, ""))
	if err != nil {
		return fmt.Errorf("updating endpoint %d on %s: %w", ep.ID, deviceID, err)
	}
	return r.endpointResult(ctx, res, deviceID)
}

// RemoveEndpoint deletes an endpoint from the device document.
func (r *SQLiteRepository) RemoveEndpoint(ctx context.Context, deviceID string, endpointID int) error {
	path := endpointPath(endpointID, "")
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET endpoints = json_remove(endpoints, ?)
		 WHERE id = ? AND json_type(endpoints, ?) IS NOT NULL`,
		path, deviceID, path)
	if err != nil {
		return fmt.Errorf("removing endpoint %d from %s: %w", endpointID, deviceID, err)
	}
	return r.endpointResult(ctx, res, deviceID)
}

// endpointResult distinguishes a missing device from a missing endpoint
// after a conditional update touched no row.
func (r *SQLiteRepository) endpointResult(ctx context.Context, res sql.Result, deviceID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}
	if _, err := r.GetByID(ctx, deviceID); err != nil {
		return err
	}
	return ErrEndpointNotFound
}

// UpdateEndpointValue writes v and at into one endpoint of the device
// chosen by scope and marks the device as seen. The whole read-modify-write happens inside SQLite, so
// concurrent merges on different endpoints of the same device never lose
// each other's writes.
func (r *SQLiteRepository) UpdateEndpointValue(ctx context.Context, scope Scope, endpointID int, v Value, at time.Time) (MergeResult, error) {
	if err := validateScope(scope); err != nil {
		return MergeResult{}, err
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return MergeResult{}, err
	}

	epPath := endpointPath(endpointID, "")
	stamp := database.FormatTime(at)
	args := []any{
		endpointPath(endpointID, "value"), string(raw),
		endpointPath(endpointID, "last_updated"), stamp,
		stamp,
	}

	var where string
	switch scope.Kind {
	case ScopeDevice:
		where = `id = ? AND json_type(endpoints, ?) IS NOT NULL`
		args = append(args, scope.DeviceID, epPath)
	case ScopeRoom:
		where = `id = (SELECT id FROM devices
			WHERE room_id = ? AND json_type(endpoints, ?) IS NOT NULL
			ORDER BY created_at, id LIMIT 1)`
		args = append(args, scope.RoomID, epPath)
	case ScopeHouseRoom:
		where = `id = (SELECT id FROM devices
			WHERE house_id = ? AND room_id = ? AND json_type(endpoints, ?) IS NOT NULL
			ORDER BY created_at, id LIMIT 1)`
		args = append(args, scope.HouseID, scope.RoomID, epPath)
	}

	var id string
	err = r.db.QueryRowContext(ctx,
		`UPDATE devices SET endpoints = json_set(endpoints, ?, json(?), ?, ?),
			online = 1, last_seen = ?
		 WHERE `+where+` RETURNING id`, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return MergeResult{}, nil
	}
	if err != nil {
		return MergeResult{}, fmt.Errorf("merging endpoint %d for %s: %w", endpointID, scope, err)
	}
	return MergeResult{Matched: true, DeviceID: id}, nil
}

// UpdateHealth sets the online flag and last-seen time.
func (r *SQLiteRepository) UpdateHealth(ctx context.Context, id string, online bool, seen time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE devices SET online = ?, last_seen = ? WHERE id = ?`,
		boolToInt(online), database.FormatTime(seen), id)
	if err != nil {
		return fmt.Errorf("updating health for %s: %w", id, err)
	}
	return requireRow(res, ErrDeviceNotFound)
}

// RoomHouse returns the owning house of roomID, or ErrInvalidDevice when
// the room does not exist.
func (r *SQLiteRepository) RoomHouse(ctx context.Context, roomID string) (string, error) {
	var houseID string
	err := r.db.QueryRowContext(ctx, `SELECT house_id FROM rooms WHERE id = ?`, roomID).Scan(&houseID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: room %s does not exist", ErrInvalidDevice, roomID)
	}
	if err != nil {
		return "", fmt.Errorf("querying room %s: %w", roomID, err)
	}
	return houseID, nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (*Device, error) {
	var (
		d         Device
		roomID    sql.NullString
		endpoints string
		online    int
		lastSeen  sql.NullString
		createdAt string
	)
	if err := row.Scan(&d.ID, &d.HouseID, &roomID, &d.Name, &d.TypeCode, &d.SerialNo,
		&endpoints, &online, &lastSeen, &createdAt); err != nil {
		return nil, err
	}
	if roomID.Valid {
		d.RoomID = &roomID.String
	}
	d.Online = online == 1

	var err error
	if d.LastSeen, err = database.ParseNullTime(lastSeen); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	if d.Endpoints, err = decodeEndpoints(endpoints); err != nil {
		return nil, fmt.Errorf("device %s: %w", d.ID, err)
	}
	return &d, nil
}

func decodeEndpoints(doc string) ([]Endpoint, error) {
	var stored map[string]storedEndpoint
	if err := json.Unmarshal([]byte(doc), &stored); err != nil {
		return nil, fmt.Errorf("decoding endpoints: %w", err)
	}

	eps := make([]Endpoint, 0, len(stored))
	for key, s := range stored {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("endpoint key %q: %w", key, err)
		}
		ep := Endpoint{ID: id, Name: s.Name, Type: s.Type, Value: s.Value}
		if s.LastUpdated != "" {
			if ep.LastUpdated, err = database.ParseTime(s.LastUpdated); err != nil {
				return nil, fmt.Errorf("endpoint %d: %w", id, err)
			}
		}
		eps = append(eps, ep)
	}
	sortEndpoints(eps)
	return eps, nil
}
