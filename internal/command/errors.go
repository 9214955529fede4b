package command

import (
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

var (
	// ErrCommandNotFound is returned when a command ID does not exist.
	ErrCommandNotFound = fmt.Errorf("command: %w", apperr.ErrNotFound)

	// ErrInvalidCommand is returned when the verb or payload is unusable.
	ErrInvalidCommand = fmt.Errorf("command: invalid: %w", apperr.ErrValidation)
)
