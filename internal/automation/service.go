package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestwire/nestwire-core/internal/auth"
	"github.com/nestwire/nestwire-core/internal/device"
)

// Authorizer is the access check the automation service needs.
type Authorizer interface {
	Authorize(ctx context.Context, houseID, userID string, action auth.Action) error
}

// DeviceLookup resolves the device a rule or schedule belongs to.
type DeviceLookup interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
}

// Service manages auto-off rules and schedules on behalf of a user. Access
// is checked against the house of the target device.
type Service struct {
	repo            Repository
	devices         DeviceLookup
	authz           Authorizer
	defaultTimezone string
	now             func() time.Time
}

// NewService creates an access-checked automation Service. Schedules
// created without a timezone use defaultTimezone.
func NewService(repo Repository, devices DeviceLookup, authz Authorizer, defaultTimezone string) *Service {
	return &Service{
		repo:            repo,
		devices:         devices,
		authz:           authz,
		defaultTimezone: defaultTimezone,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// SetAutoOff creates or replaces the auto-off rule of an endpoint.
func (s *Service) SetAutoOff(ctx context.Context, deviceID string, endpointID int, enabled bool, durationSec int, callerID string) (*AutoOffRule, error) {
	if _, err := s.endpoint(ctx, deviceID, endpointID, callerID, auth.ActionConfigure); err != nil {
		return nil, err
	}
	rule := &AutoOffRule{
		DeviceID:    deviceID,
		EndpointID:  endpointID,
		Enabled:     enabled,
		DurationSec: durationSec,
		UpdatedAt:   s.now(),
	}
	if err := ValidateRule(rule); err != nil {
		return nil, err
	}
	if err := s.repo.UpsertRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// GetAutoOff returns the rule of an endpoint, or a disabled zero rule when
// none is stored.
func (s *Service) GetAutoOff(ctx context.Context, deviceID string, endpointID int, callerID string) (*AutoOffRule, error) {
	if _, err := s.endpoint(ctx, deviceID, endpointID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}
	rule, err := s.repo.GetRule(ctx, deviceID, endpointID)
	if errors.Is(err, ErrRuleNotFound) {
		return &AutoOffRule{DeviceID: deviceID, EndpointID: endpointID}, nil
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

// CreateSchedule validates and stores a new schedule. ID and CreatedAt are
// assigned here.
func (s *Service) CreateSchedule(ctx context.Context, sched *Schedule, callerID string) error {
	if _, err := s.endpoint(ctx, sched.DeviceID, sched.EndpointID, callerID, auth.ActionConfigure); err != nil {
		return err
	}
	if sched.Timezone == "" {
		sched.Timezone = s.defaultTimezone
	}
	if _, err := ValidateSchedule(sched); err != nil {
		return err
	}
	sched.ID = GenerateID()
	sched.NextRunAt = sched.NextRunAt.UTC()
	sched.FailureCount = 0
	sched.LastError = ""
	sched.CreatedAt = s.now()
	return s.repo.CreateSchedule(ctx, sched)
}

// ListSchedules returns the schedules of a device.
func (s *Service) ListSchedules(ctx context.Context, deviceID, callerID string) ([]Schedule, error) {
	if _, err := s.authorize(ctx, deviceID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListSchedules(ctx, deviceID)
}

// DeleteSchedule removes a schedule.
func (s *Service) DeleteSchedule(ctx context.Context, scheduleID, callerID string) error {
	sched, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, sched.DeviceID, callerID, auth.ActionConfigure); err != nil {
		return err
	}
	return s.repo.DeleteSchedule(ctx, scheduleID)
}

func (s *Service) authorize(ctx context.Context, deviceID, callerID string, action auth.Action) (*device.Device, error) {
	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, dev.HouseID, callerID, action); err != nil {
		return nil, err
	}
	return dev, nil
}

func (s *Service) endpoint(ctx context.Context, deviceID string, endpointID int, callerID string, action auth.Action) (*device.Device, error) {
	dev, err := s.authorize(ctx, deviceID, callerID, action)
	if err != nil {
		return nil, err
	}
	if _, ok := dev.Endpoint(endpointID); !ok {
		return nil, fmt.Errorf("%w: %d", device.ErrEndpointNotFound, endpointID)
	}
	return dev, nil
}
