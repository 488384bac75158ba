package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/domain/user"
)

const (
	MaxTitleLength   = 100
	MaxMessageLength = 500
)

type Type string

const (
	TypeLike    Type = "like"
	TypeComment Type = "comment"
	TypeFollow  Type = "follow"
	TypeMention Type = "mention"
	TypeMessage Type = "message"
	TypeSystem  Type = "system"
)

var AllTypes = []Type{TypeLike, TypeComment, TypeFollow, TypeMention, TypeMessage, TypeSystem}

func (t Type) Valid() bool {
	for _, v := range AllTypes {
		if v == t {
			return true
		}
	}
	return false
}

type Notification struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID  `gorm:"type:uuid;not null;column:recipient_id;index:idx_notification_recipient_read,priority:1;index:idx_notification_recipient_created,priority:1" json:"recipient_id"`
	SenderID    *uuid.UUID `gorm:"type:uuid;column:sender_id" json:"sender_id,omitempty"`
	Type        Type       `gorm:"not null;column:notification_type;size:16" json:"notification_type"`
	Title       string     `gorm:"not null;column:title;size:100" json:"title"`
	Message     string     `gorm:"not null;column:message;size:500" json:"message"`

	// Cause is stored as an opaque (kind, id) pair plus a render snapshot.
	CauseKind CauseKind      `gorm:"column:cause_kind;size:16" json:"-"`
	CauseID   *uuid.UUID     `gorm:"type:uuid;column:cause_id" json:"-"`
	CauseData datatypes.JSON `gorm:"column:cause_data" json:"-"`

	IsRead    bool       `gorm:"not null;column:is_read;index:idx_notification_recipient_read,priority:2" json:"is_read"`
	ReadAt    *time.Time `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null;index:idx_notification_recipient_created,priority:2" json:"created_at"`

	Sender *user.User `gorm:"foreignKey:SenderID" json:"-"`
}

func (Notification) TableName() string { return "notification" }

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return nil
}

// SetCause stores c on the row; a nil cause clears it.
func (n *Notification) SetCause(c *Cause) {
	if c == nil || !c.Kind.Valid() {
		n.CauseKind, n.CauseID, n.CauseData = "", nil, nil
		return
	}
	id := c.ID
	n.CauseKind = c.Kind
	n.CauseID = &id
	n.CauseData = c.encode()
}

// Cause reconstructs the stored cause.
func (n *Notification) Cause() (*Cause, bool) {
	if n == nil || n.CauseID == nil || !n.CauseKind.Valid() {
		return nil, false
	}
	return decodeCause(n.CauseKind, *n.CauseID, n.CauseData), true
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
