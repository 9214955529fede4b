package device

import (
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

// Domain errors for the device package. Each wraps an apperr kind:
//
//	if errors.Is(err, apperr.ErrNotFound) {
//	    // ErrDeviceNotFound or ErrEndpointNotFound
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = fmt.Errorf("device: %w", apperr.ErrNotFound)

	// ErrEndpointNotFound is returned when an endpoint ID does not exist on the device.
	ErrEndpointNotFound = fmt.Errorf("device: endpoint %w", apperr.ErrNotFound)

	// ErrDeviceExists is returned when creating a device whose ID is taken.
	ErrDeviceExists = fmt.Errorf("device: already exists: %w", apperr.ErrConflict)

	// ErrEndpointExists is returned when adding an endpoint whose ID is taken.
	ErrEndpointExists = fmt.Errorf("device: endpoint already exists: %w", apperr.ErrConflict)

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = fmt.Errorf("device: invalid: %w", apperr.ErrValidation)

	// ErrInvalidEndpoint is returned when endpoint validation fails.
	ErrInvalidEndpoint = fmt.Errorf("device: invalid endpoint: %w", apperr.ErrValidation)

	// ErrInvalidScope is returned for a merge-update scope missing its identifiers.
	ErrInvalidScope = fmt.Errorf("device: invalid scope: %w", apperr.ErrValidation)
)
