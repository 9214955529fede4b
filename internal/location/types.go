package location

import (
	"time"

	"github.com/google/uuid"
)

// House is the root of the ownership chain. Its owner holds implicit OWNER
// rights and never appears in home_members.
type House struct {
	ID        string         `json:"id"`
	OwnerID   string         `json:"owner_id"`
	Name      string         `json:"name"`
	Address   string         `json:"address,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Room is a space within a house. Devices reference rooms by id.
type Room struct {
	ID        string    `json:"id"`
	HouseID   string    `json:"house_id"`
	Name      string    `json:"name"`
	Floor     int       `json:"floor"`
	CreatedAt time.Time `json:"created_at"`
}

// DeleteResult counts the rows a cascading delete removed.
type DeleteResult struct {
	Rooms     int64 `json:"rooms"`
	Devices   int64 `json:"devices"`
	Commands  int64 `json:"commands"`
	Rules     int64 `json:"auto_off_rules"`
	Schedules int64 `json:"schedules"`
	Members   int64 `json:"members"`
}

// GenerateID returns a new random identifier.
func GenerateID() string {
	return uuid.New().String()
}
