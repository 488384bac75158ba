package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrAllTypesDisabled = errors.New("At least one notification type must be enabled")

// Settings holds a user's overrides. A missing row means Defaults.
type Settings struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey;column:user_id" json:"-"`

	LikesEnabled    bool `gorm:"not null;column:likes_enabled" json:"likes_enabled"`
	CommentsEnabled bool `gorm:"not null;column:comments_enabled" json:"comments_enabled"`
	FollowsEnabled  bool `gorm:"not null;column:follows_enabled" json:"follows_enabled"`
	MentionsEnabled bool `gorm:"not null;column:mentions_enabled" json:"mentions_enabled"`
	MessagesEnabled bool `gorm:"not null;column:messages_enabled" json:"messages_enabled"`

	EmailNotifications bool `gorm:"not null;column:email_notifications" json:"email_notifications"`
	PushNotifications  bool `gorm:"not null;column:push_notifications" json:"push_notifications"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Settings) TableName() string { return "notification_settings" }

// Defaults is the preference set for a user who never saved one.
func Defaults(userID uuid.UUID) Settings {
	return Settings{
		UserID:             userID,
		LikesEnabled:       true,
		CommentsEnabled:    true,
		FollowsEnabled:     true,
		MentionsEnabled:    true,
		MessagesEnabled:    true,
		EmailNotifications: false,
		PushNotifications:  true,
	}
}

// Allows reports whether notifications of type t should be created.
func (s Settings) Allows(t Type) bool {
	switch t {
	case TypeLike:
		return s.LikesEnabled
	case TypeComment:
		return s.CommentsEnabled
	case TypeFollow:
		return s.FollowsEnabled
	case TypeMention:
		return s.MentionsEnabled
	case TypeMessage:
		return s.MessagesEnabled
	case TypeSystem:
		return true
	}
	return false
}

func (s Settings) Validate() error {
	if !s.LikesEnabled && !s.CommentsEnabled && !s.FollowsEnabled && !s.MentionsEnabled && !s.MessagesEnabled {
		return ErrAllTypesDisabled
	}
	return nil
}

// SettingsPatch is a partial update; nil fields keep their current value.
type SettingsPatch struct {
	LikesEnabled       *bool `json:"likes_enabled"`
	CommentsEnabled    *bool `json:"comments_enabled"`
	FollowsEnabled     *bool `json:"follows_enabled"`
	MentionsEnabled    *bool `json:"mentions_enabled"`
	MessagesEnabled    *bool `json:"messages_enabled"`
	EmailNotifications *bool `json:"email_notifications"`
	PushNotifications  *bool `json:"push_notifications"`
}

func (p SettingsPatch) Apply(s Settings) Settings {
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.LikesEnabled, p.LikesEnabled)
	set(&s.CommentsEnabled, p.CommentsEnabled)
	set(&s.FollowsEnabled, p.FollowsEnabled)
	set(&s.MentionsEnabled, p.MentionsEnabled)
	set(&s.MessagesEnabled, p.MessagesEnabled)
	set(&s.EmailNotifications, p.EmailNotifications)
	set(&s.PushNotifications, p.PushNotifications)
	return s
}
