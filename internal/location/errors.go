package location

import (
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

var (
	// ErrHouseNotFound is returned when a house ID does not exist.
	ErrHouseNotFound = fmt.Errorf("location: house %w", apperr.ErrNotFound)

	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = fmt.Errorf("location: room %w", apperr.ErrNotFound)

	// ErrInvalidName is returned when a house or room name is empty or too long.
	ErrInvalidName = fmt.Errorf("location: invalid name: %w", apperr.ErrValidation)

	// ErrInvalidMetadata is returned when house metadata cannot be stored.
	ErrInvalidMetadata = fmt.Errorf("location: invalid metadata: %w", apperr.ErrValidation)
)
