package device

import (
	"fmt"
	"strings"
)

const (
	maxNameLength   = 100
	maxEndpoints    = 64
	maxSerialLength = 64
)

// ValidateDevice checks the writable fields of d, including its endpoints.
func ValidateDevice(d *Device) error {
	if strings.TrimSpace(d.HouseID) == "" {
		return fmt.Errorf("%w: house_id is required", ErrInvalidDevice)
	}
	if err := validateName(d.Name, ErrInvalidDevice); err != nil {
		return err
	}
	if len(d.SerialNo) > maxSerialLength {
		return fmt.Errorf("%w: serial_no exceeds %d characters", ErrInvalidDevice, maxSerialLength)
	}
	if len(d.Endpoints) > maxEndpoints {
		return fmt.Errorf("%w: more than %d endpoints", ErrInvalidDevice, maxEndpoints)
	}

	seen := make(map[int]bool, len(d.Endpoints))
	for i := range d.Endpoints {
		ep := &d.Endpoints[i]
		if err := ValidateEndpoint(ep); err != nil {
			return err
		}
		if seen[ep.ID] {
			return fmt.Errorf("%w: duplicate endpoint id %d", ErrInvalidEndpoint, ep.ID)
		}
		seen[ep.ID] = true
	}
	return nil
}

// ValidateEndpoint checks an endpoint definition.
func ValidateEndpoint(ep *Endpoint) error {
	if ep.ID < 1 {
		return fmt.Errorf("%w: id %d must be positive", ErrInvalidEndpoint, ep.ID)
	}
	if err := validateName(ep.Name, ErrInvalidEndpoint); err != nil {
		return err
	}
	if !ep.Type.Valid() {
		return fmt.Errorf("%w: type %q must be SWITCH or SENSOR", ErrInvalidEndpoint, ep.Type)
	}
	return nil
}

func validateName(name string, kind error) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", kind)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", kind, maxNameLength)
	}
	return nil
}

func validateScope(s Scope) error {
	switch s.Kind {
	case ScopeDevice:
		if s.DeviceID == "" {
			return fmt.Errorf("%w: device id required", ErrInvalidScope)
		}
	case ScopeRoom:
		if s.RoomID == "" {
			return fmt.Errorf("%w: room id required", ErrInvalidScope)
		}
	case ScopeHouseRoom:
		if s.HouseID == "" || s.RoomID == "" {
			return fmt.Errorf("%w: house and room ids required", ErrInvalidScope)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidScope, s.Kind)
	}
	return nil
}
