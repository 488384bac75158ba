package realtime

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Event is the envelope carried over the bus. Data holds the complete JSON
// frame as it should reach clients.
type Event struct {
	Group  string          `json:"group"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
	Origin string          `json:"origin,omitempty"`
}

func ChatGroup(chatID uuid.UUID) string {
	return fmt.Sprintf("chat_%s", chatID)
}

func NotificationGroup(userID uuid.UUID) string {
	return fmt.Sprintf("notifications_%s", userID)
}
