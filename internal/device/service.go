package device

import (
	"context"

	"github.com/nestwire/nestwire-core/internal/auth"
)

// Authorizer is the access check the device service needs.
type Authorizer interface {
	Authorize(ctx context.Context, houseID, userID string, action auth.Action) error
}

// Service exposes registry operations to callers acting on behalf of a
// user. Reads require MEMBER; every change requires ADMIN.
type Service struct {
	registry *Registry
	authz    Authorizer
}

// NewService creates an access-checked device Service.
func NewService(registry *Registry, authz Authorizer) *Service {
	return &Service{registry: registry, authz: authz}
}

// Get returns a device the caller can read.
func (s *Service) Get(ctx context.Context, deviceID, callerID string) (*Device, error) {
	d, err := s.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, d.HouseID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}
	return d, nil
}

// ListByHouse returns the devices of a house the caller can read.
func (s *Service) ListByHouse(ctx context.Context, houseID, callerID string) ([]Device, error) {
	if err := s.authz.Authorize(ctx, houseID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}
	return s.registry.ListByHouse(ctx, houseID)
}

// Create registers a new device in d.HouseID.
func (s *Service) Create(ctx context.Context, callerID string, d *Device) error {
	if err := s.authz.Authorize(ctx, d.HouseID, callerID, auth.ActionConfigure); err != nil {
		return err
	}
	return s.registry.CreateDevice(ctx, d)
}

// UpdateInfo changes the descriptive fields of a device.
func (s *Service) UpdateInfo(ctx context.Context, callerID string, d *Device) error {
	if _, err := s.configurable(ctx, d.ID, callerID); err != nil {
		return err
	}
	return s.registry.UpdateDeviceInfo(ctx, d)
}

// Delete removes a device and its dependents.
func (s *Service) Delete(ctx context.Context, deviceID, callerID string) error {
	if _, err := s.configurable(ctx, deviceID, callerID); err != nil {
		return err
	}
	return s.registry.DeleteDevice(ctx, deviceID)
}

// AddEndpoint adds an endpoint to a device.
func (s *Service) AddEndpoint(ctx context.Context, deviceID, callerID string, ep Endpoint) error {
	if _, err := s.configurable(ctx, deviceID, callerID); err != nil {
		return err
	}
	return s.registry.AddEndpoint(ctx, deviceID, ep)
}

// UpdateEndpoint renames or retypes an endpoint.
func (s *Service) UpdateEndpoint(ctx context.Context, deviceID, callerID string, ep Endpoint) error {
	if _, err := s.configurable(ctx, deviceID, callerID); err != nil {
		return err
	}
	return s.registry.UpdateEndpoint(ctx, deviceID, ep)
}

// RemoveEndpoint deletes an endpoint from a device.
func (s *Service) RemoveEndpoint(ctx context.Context, deviceID, callerID string, endpointID int) error {
	if _, err := s.configurable(ctx, deviceID, callerID); err != nil {
		return err
	}
	return s.registry.RemoveEndpoint(ctx, deviceID, endpointID)
}

func (s *Service) configurable(ctx context.Context, deviceID, callerID string) (*Device, error) {
	d, err := s.registry.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, d.HouseID, callerID, auth.ActionConfigure); err != nil {
		return nil, err
	}
	return d, nil
}
