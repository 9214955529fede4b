package device

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the single point of truth for device metadata and endpoint
// state. It validates writes and delegates to the Repository; there is no
// in-process cache, so every read reflects the last committed write.
//
// All methods are safe for concurrent use.
type Registry struct {
	repo   Repository
	logger Logger
	now    func() time.Time

	merges    atomic.Uint64
	unmatched atomic.Uint64
}

// NewRegistry creates a new device registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// GetDevice returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	return r.repo.GetByID(ctx, id)
}

// ListByHouse returns every device in the house.
func (r *Registry) ListByHouse(ctx context.Context, houseID string) ([]Device, error) {
	return r.repo.ListByHouse(ctx, houseID)
}

// ListByRoom returns every device assigned to the room.
func (r *Registry) ListByRoom(ctx context.Context, roomID string) ([]Device, error) {
	return r.repo.ListByRoom(ctx, roomID)
}

// CreateDevice assigns an id, normalises the endpoints and persists d.
func (r *Registry) CreateDevice(ctx context.Context, d *Device) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	normalize(d)
	if err := ValidateDevice(d); err != nil {
		return err
	}
	if err := r.checkRoom(ctx, d); err != nil {
		return err
	}
	d.CreatedAt = r.now()

	if err := r.repo.Create(ctx, d); err != nil {
		return err
	}
	r.logger.Info("device created", "id", d.ID, "house", d.HouseID, "endpoints", len(d.Endpoints))
	return nil
}

// UpdateDeviceInfo changes name, room, type code and serial number. The
// house and endpoints of an existing device are never changed here.
func (r *Registry) UpdateDeviceInfo(ctx context.Context, d *Device) error {
	existing, err := r.repo.GetByID(ctx, d.ID)
	if err != nil {
		return err
	}
	d.HouseID = existing.HouseID
	d.Name = strings.TrimSpace(d.Name)
	if err := validateName(d.Name, ErrInvalidDevice); err != nil {
		return err
	}
	if len(d.SerialNo) > maxSerialLength {
		return fmt.Errorf("%w: serial_no exceeds %d characters", ErrInvalidDevice, maxSerialLength)
	}
	if err := r.checkRoom(ctx, d); err != nil {
		return err
	}

	if err := r.repo.UpdateInfo(ctx, d); err != nil {
		return err
	}
	r.logger.Info("device updated", "id", d.ID, "room", d.Room())
	return nil
}

// DeleteDevice removes a device and everything that references it.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}
	r.logger.Info("device deleted", "id", id)
	return nil
}

// AddEndpoint adds an endpoint definition. The value starts unset.
func (r *Registry) AddEndpoint(ctx context.Context, deviceID string, ep Endpoint) error {
	ep.Name = strings.TrimSpace(ep.Name)
	ep.Value = Value{}
	ep.LastUpdated = time.Time{}
	if err := ValidateEndpoint(&ep); err != nil {
		return err
	}
	if err := r.repo.AddEndpoint(ctx, deviceID, ep); err != nil {
		return err
	}
	r.logger.Info("endpoint added", "device", deviceID, "endpoint", ep.ID)
	return nil
}

// UpdateEndpoint changes the name and type of an endpoint.
func (r *Registry) UpdateEndpoint(ctx context.Context, deviceID string, ep Endpoint) error {
	ep.Name = strings.TrimSpace(ep.Name)
	if err := ValidateEndpoint(&ep); err != nil {
		return err
	}
	return r.repo.UpdateEndpoint(ctx, deviceID, ep)
}

// RemoveEndpoint deletes an endpoint definition and its state.
func (r *Registry) RemoveEndpoint(ctx context.Context, deviceID string, endpointID int) error {
	if err := r.repo.RemoveEndpoint(ctx, deviceID, endpointID); err != nil {
		return err
	}
	r.logger.Info("endpoint removed", "device", deviceID, "endpoint", endpointID)
	return nil
}

// UpdateEndpointValue merges one endpoint value into the device chosen by
// scope. An unmatched scope is logged and reported through MergeResult.
func (r *Registry) UpdateEndpointValue(ctx context.Context, scope Scope, endpointID int, v Value, at time.Time) (MergeResult, error) {
	res, err := r.repo.UpdateEndpointValue(ctx, scope, endpointID, v, at.UTC())
	if err != nil {
		return res, err
	}
	if !res.Matched {
		r.unmatched.Add(1)
		r.logger.Warn("no device matched endpoint update",
			"scope", scope.String(), "endpoint", endpointID)
		return res, nil
	}
	r.merges.Add(1)
	r.logger.Debug("endpoint updated",
		"device", res.DeviceID, "endpoint", endpointID, "value", v.String())
	return res, nil
}

// SetDeviceHealth records liveness for a device.
func (r *Registry) SetDeviceHealth(ctx context.Context, id string, online bool) error {
	return r.repo.UpdateHealth(ctx, id, online, r.now())
}

func (r *Registry) checkRoom(ctx context.Context, d *Device) error {
	if d.RoomID == nil {
		return nil
	}
	if *d.RoomID == "" {
		d.RoomID = nil
		return nil
	}
	houseID, err := r.repo.RoomHouse(ctx, *d.RoomID)
	if err != nil {
		return err
	}
	if houseID != d.HouseID {
		return fmt.Errorf("%w: room %s belongs to another house", ErrInvalidDevice, *d.RoomID)
	}
	return nil
}

// normalize trims names, clears runtime state and sorts endpoints by id.
func normalize(d *Device) {
	d.Name = strings.TrimSpace(d.Name)
	d.Online = false
	d.LastSeen = nil
	for i := range d.Endpoints {
		d.Endpoints[i].Name = strings.TrimSpace(d.Endpoints[i].Name)
		d.Endpoints[i].LastUpdated = time.Time{}
	}
	sortEndpoints(d.Endpoints)
}

// Stats holds merge-update counters for monitoring.
type Stats struct {
	Merges    uint64
	Unmatched uint64
}

// GetStats returns the current counters.
func (r *Registry) GetStats() Stats {
	return Stats{
		Merges:    r.merges.Load(),
		Unmatched: r.unmatched.Load(),
	}
}
