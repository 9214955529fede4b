package automation

import (
	"fmt"

	"github.com/nestwire/nestwire-core/internal/apperr"
)

// Domain errors for the automation package.
//
//	if errors.Is(err, automation.ErrScheduleNotFound) {
//	    // handle not found case
//	}
var (
	// ErrScheduleNotFound is returned when a schedule ID does not exist.
	ErrScheduleNotFound = fmt.Errorf("schedule: %w", apperr.ErrNotFound)

	// ErrRuleNotFound is returned when no auto-off rule exists for an endpoint.
	ErrRuleNotFound = fmt.Errorf("auto-off rule: %w", apperr.ErrNotFound)

	// ErrInvalidSchedule is returned when schedule validation fails.
	ErrInvalidSchedule = fmt.Errorf("schedule: invalid: %w", apperr.ErrValidation)

	// ErrInvalidAction is returned when a schedule action cannot be decoded.
	ErrInvalidAction = fmt.Errorf("schedule: invalid action: %w", apperr.ErrValidation)

	// ErrInvalidRule is returned when auto-off rule validation fails.
	ErrInvalidRule = fmt.Errorf("auto-off rule: invalid: %w", apperr.ErrValidation)
)
