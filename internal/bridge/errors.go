package bridge

import (
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

var (
	// ErrNoRoute is returned when a device has no control topic under the
	// configured topology, typically because it is not assigned to a room.
	ErrNoRoute = fmt.Errorf("bridge: no route to device: %w", apperr.ErrValidation)

	// ErrUnknownTopology is returned by New for an unsupported scope.
	ErrUnknownTopology = fmt.Errorf("bridge: unknown topology: %w", apperr.ErrValidation)
)
