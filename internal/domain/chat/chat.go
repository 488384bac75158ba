package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultGroupName     = "Group Chat"
	MaxChatNameLength    = 100
	MaxGroupParticipants = 50
)

type Chat struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IsGroupChat bool      `gorm:"not null;column:is_group_chat" json:"is_group_chat"`
	Name        string    `gorm:"column:chat_name;size:100" json:"chat_name"`

	// DirectKey is the sorted participant pair for direct chats and NULL for
	// groups; the unique index makes direct chat creation idempotent.
	DirectKey *string `gorm:"column:direct_key;uniqueIndex" json:"-"`

	LastMessageID *uuid.UUID `gorm:"type:uuid;column:last_message_id" json:"last_message_id,omitempty"`
	LastActivity  time.Time  `gorm:"not null;column:last_activity;index" json:"last_activity"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Participants []Participant `gorm:"foreignKey:ChatID" json:"-"`
}

func (Chat) TableName() string { return "chat" }

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.LastActivity.IsZero() {
		c.LastActivity = time.Now().UTC()
	}
	return nil
}

// Participant is a membership row. UnreadCount is a cached counter of
// messages the user has not read yet, maintained with SQL expressions.
type Participant struct {
	ChatID      uuid.UUID `gorm:"type:uuid;primaryKey;column:chat_id" json:"chat_id"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id;index" json:"user_id"`
	JoinedAt    time.Time `gorm:"not null;column:joined_at" json:"joined_at"`
	UnreadCount int       `gorm:"not null;column:unread_count" json:"unread_count"`
}

func (Participant) TableName() string { return "chat_participant" }

// DirectKeyFor returns the order independent key for a direct chat.
func DirectKeyFor(a, b uuid.UUID) string {
	ids := []string{a.String(), b.String()}
	sort.Strings(ids)
	return ids[0] + ":" + ids[1]
}

// NormalizeName trims a chat name and enforces its length bound.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("chat name cannot be empty")
	}
	if len([]rune(name)) > MaxChatNameLength {
		return "", fmt.Errorf("chat name cannot exceed %d characters", MaxChatNameLength)
	}
	return name, nil
}

// DisplayName renders a chat title relative to viewer. names maps
// participant ids to their display names; participants lists member ids in
// a stable order.
func DisplayName(c *Chat, viewer uuid.UUID, participants []uuid.UUID, names map[uuid.UUID]string) string {
	if c == nil {
		return ""
	}
	if c.IsGroupChat {
		if strings.TrimSpace(c.Name) != "" {
			return c.Name
		}
	}
	others := make([]string, 0, len(participants))
	for _, id := range participants {
		if id == viewer {
			continue
		}
		if n := names[id]; n != "" {
			others = append(others, n)
		}
	}
	switch {
	case len(others) == 0 && c.IsGroupChat:
		return DefaultGroupName
	case len(others) == 0:
		return "Unknown"
	case !c.IsGroupChat:
		return others[0]
	case len(others) <= 3:
		return strings.Join(others, ", ")
	default:
		return fmt.Sprintf("%s and %d others", strings.Join(others[:3], ", "), len(others)-3)
	}
}
