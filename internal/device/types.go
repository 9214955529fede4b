package device

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// EndpointType tags what an endpoint is for. It does not restrict the kind
// of Value the endpoint may hold.
type EndpointType string

const (
	EndpointSwitch EndpointType = "SWITCH"
	EndpointSensor EndpointType = "SENSOR"
)

// Valid reports whether t is a known endpoint type.
func (t EndpointType) Valid() bool {
	return t == EndpointSwitch || t == EndpointSensor
}

// Endpoint is one controllable or observable channel of a device. IDs are
// small positive integers unique within their device only.
type Endpoint struct {
	ID          int          `json:"id"`
	Name        string       `json:"name"`
	Type        EndpointType `json:"type"`
	Value       Value        `json:"value"`
	LastUpdated time.Time    `json:"last_updated"`
}

// Device is a physical unit with a set of endpoints.
type Device struct {
	ID        string     `json:"id"`
	HouseID   string     `json:"house_id"`
	RoomID    *string    `json:"room_id,omitempty"`
	Name      string     `json:"name"`
	TypeCode  string     `json:"type_code,omitempty"`
	SerialNo  string     `json:"serial_no,omitempty"`
	Endpoints []Endpoint `json:"endpoints"`
	Online    bool       `json:"online"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Endpoint returns the endpoint with the given id.
func (d *Device) Endpoint(id int) (Endpoint, bool) {
	for _, ep := range d.Endpoints {
		if ep.ID == id {
			return ep, true
		}
	}
	return Endpoint{}, false
}

// Room returns the room id, or "" when the device is unassigned.
func (d *Device) Room() string {
	if d.RoomID == nil {
		return ""
	}
	return *d.RoomID
}

// DeepCopy returns a copy of d sharing no memory with it.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	cp := *d
	if d.RoomID != nil {
		room := *d.RoomID
		cp.RoomID = &room
	}
	if d.LastSeen != nil {
		seen := *d.LastSeen
		cp.LastSeen = &seen
	}
	if d.Endpoints != nil {
		cp.Endpoints = make([]Endpoint, len(d.Endpoints))
		copy(cp.Endpoints, d.Endpoints)
	}
	return &cp
}

func sortEndpoints(eps []Endpoint) {
	sort.Slice(eps, func(i, j int) bool { return eps[i].ID < eps[j].ID })
}

// ScopeKind selects how a merge-update locates its device.
type ScopeKind uint8

const (
	// ScopeDevice matches by device id.
	ScopeDevice ScopeKind = iota + 1
	// ScopeRoom matches the oldest device in a room that has the endpoint.
	ScopeRoom
	// ScopeHouseRoom is ScopeRoom restricted to one house.
	ScopeHouseRoom
)

// Scope identifies the target of a merge-update by whichever identifier a
// topic carries.
type Scope struct {
	Kind     ScopeKind
	DeviceID string
	HouseID  string
	RoomID   string
}

// ByDevice returns a device-id scope.
func ByDevice(id string) Scope { return Scope{Kind: ScopeDevice, DeviceID: id} }

// ByRoom returns a room-id scope.
func ByRoom(roomID string) Scope { return Scope{Kind: ScopeRoom, RoomID: roomID} }

// ByHouseRoom returns a house+room scope.
func ByHouseRoom(houseID, roomID string) Scope {
	return Scope{Kind: ScopeHouseRoom, HouseID: houseID, RoomID: roomID}
}

// String formats s for logs.
func (s Scope) String() string {
	switch s.Kind {
	case ScopeDevice:
		return "device:" + s.DeviceID
	case ScopeRoom:
		return "room:" + s.RoomID
	case ScopeHouseRoom:
		return "house:" + s.HouseID + "/room:" + s.RoomID
	default:
		return "invalid"
	}
}

// MergeResult reports the outcome of a merge-update. Matched is false when
// no device in scope has the endpoint; callers treat that as a warning.
type MergeResult struct {
	Matched  bool
	DeviceID string
}

// GenerateID returns a new random device identifier.
func GenerateID() string {
	return uuid.New().String()
}
