package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/nestwire/nestwire-core/internal/codec"
)

// Status is the lifecycle state of a logged command.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusAcked   Status = "ACKED"
	StatusFailed  Status = "FAILED"
)

// Command is one entry of the command log.
type Command struct {
	ID         string     `json:"id"`
	DeviceID   string     `json:"device_id"`
	EndpointID int        `json:"endpoint_id"`
	Verb       codec.Verb `json:"verb"`
	Payload    string     `json:"payload,omitempty"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	AckedAt    *time.Time `json:"acked_at,omitempty"`
}

// HistoryEntry is a logged command with the endpoint's current name.
// EndpointName is empty when the endpoint has since been removed.
type HistoryEntry struct {
	Command
	EndpointName string `json:"endpoint_name"`
}

// DispatchRequest describes a command issued by a user.
type DispatchRequest struct {
	DeviceID   string
	EndpointID int
	Verb       codec.Verb
	Payload    string
	CallerID   string
}

// DispatchResult identifies the logged command and the topic it was
// published on.
type DispatchResult struct {
	CommandID string `json:"command_id"`
	Topic     string `json:"topic"`
}

// GenerateID returns a new command identifier.
func GenerateID() string {
	return uuid.New().String()
}
