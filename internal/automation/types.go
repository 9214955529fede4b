package automation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // schedule timezones resolve without system zoneinfo

	"github.com/google/uuid"

	"github.com/nestwire/nestwire-core/internal/codec"
)

// AutoOffRule turns an endpoint off after it has been on for DurationSec.
// There is at most one rule per (DeviceID, EndpointID).
type AutoOffRule struct {
	DeviceID    string    `json:"device_id"`
	EndpointID  int       `json:"endpoint_id"`
	Enabled     bool      `json:"enabled"`
	DurationSec int       `json:"duration_sec"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Duration returns DurationSec as a time.Duration.
func (r AutoOffRule) Duration() time.Duration {
	return time.Duration(r.DurationSec) * time.Second
}

// ScheduleType controls how a schedule advances after firing.
type ScheduleType string

const (
	ScheduleOnce   ScheduleType = "ONCE"
	ScheduleDaily  ScheduleType = "DAILY"
	ScheduleWeekly ScheduleType = "WEEKLY"
)

// Valid reports whether t is a known schedule type.
func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleOnce, ScheduleDaily, ScheduleWeekly:
		return true
	}
	return false
}

// Schedule fires Action on one endpoint at NextRunAt.
//
// Action is kept as the stored JSON text so that a record that no longer
// decodes can still be loaded, counted and reported.
type Schedule struct {
	ID           string       `json:"id"`
	DeviceID     string       `json:"device_id"`
	EndpointID   int          `json:"endpoint_id"`
	Name         string       `json:"name"`
	Enabled      bool         `json:"enabled"`
	Action       string       `json:"action"`
	Type         ScheduleType `json:"schedule_type"`
	NextRunAt    time.Time    `json:"next_run_at"`
	Timezone     string       `json:"timezone"`
	FailureCount int          `json:"failure_count"`
	LastError    string       `json:"last_error,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// Action is the decoded form of Schedule.Action, e.g.
// {"command":"SET_VALUE","payload":"40"}.
type Action struct {
	Command codec.Verb      `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DecodeAction parses a stored action.
func DecodeAction(raw string) (Action, error) {
	var a Action
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		return Action{}, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	if !a.Command.Valid() {
		return Action{}, fmt.Errorf("%w: unknown command %q", ErrInvalidAction, a.Command)
	}
	return a, nil
}

// PayloadString returns the payload as text. A JSON string is unquoted;
// a number is returned as written.
func (a Action) PayloadString() string {
	if len(a.Payload) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(a.Payload, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(a.Payload))
}

// TargetValue returns the composite slot value the action encodes to.
func (a Action) TargetValue() (int, error) {
	v, err := codec.TargetValue(a.Command, a.PayloadString())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}
	return v, nil
}

// Encode returns the JSON text stored in Schedule.Action.
func (a Action) Encode() (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Next returns the run time after prev for type t in loc. ONCE has no next
// run. Calendar arithmetic in loc keeps the wall-clock time across DST
// changes.
func Next(t ScheduleType, prev time.Time, loc *time.Location) (time.Time, bool) {
	local := prev.In(loc)
	switch t {
	case ScheduleDaily:
		return local.AddDate(0, 0, 1).UTC(), true
	case ScheduleWeekly:
		return local.AddDate(0, 0, 7).UTC(), true
	default:
		return time.Time{}, false
	}
}

// GenerateID returns a new schedule identifier.
func GenerateID() string {
	return uuid.New().String()
}
