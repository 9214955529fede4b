package automation

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxNameLength  = 100
	maxDurationSec = 7 * 24 * 60 * 60
)

// ValidateRule checks an auto-off rule before it is stored.
func ValidateRule(r *AutoOffRule) error {
	if r.DeviceID == "" {
		return fmt.Errorf("%w: device_id is required", ErrInvalidRule)
	}
	if r.EndpointID < 1 {
		return fmt.Errorf("%w: endpoint_id must be positive", ErrInvalidRule)
	}
	if r.DurationSec < 0 || r.DurationSec > maxDurationSec {
		return fmt.Errorf("%w: duration_sec must be between 0 and %d", ErrInvalidRule, maxDurationSec)
	}
	if r.Enabled && r.DurationSec == 0 {
		return fmt.Errorf("%w: an enabled rule needs a positive duration", ErrInvalidRule)
	}
	return nil
}

// ValidateSchedule checks a schedule before it is stored and returns its
// location.
func ValidateSchedule(s *Schedule) (*time.Location, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" || len(s.Name) > maxNameLength {
		return nil, fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidSchedule, maxNameLength)
	}
	if s.DeviceID == "" {
		return nil, fmt.Errorf("%w: device_id is required", ErrInvalidSchedule)
	}
	if s.EndpointID < 1 {
		return nil, fmt.Errorf("%w: endpoint_id must be positive", ErrInvalidSchedule)
	}
	if !s.Type.Valid() {
		return nil, fmt.Errorf("%w: schedule_type %q must be ONCE, DAILY or WEEKLY", ErrInvalidSchedule, s.Type)
	}
	if s.NextRunAt.IsZero() {
		return nil, fmt.Errorf("%w: next_run_at is required", ErrInvalidSchedule)
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil || s.Timezone == "" {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, s.Timezone)
	}

	action, err := DecodeAction(s.Action)
	if err != nil {
		return nil, err
	}
	if _, err := action.TargetValue(); err != nil {
		return nil, err
	}
	return loc, nil
}
