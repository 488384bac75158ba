package protocol

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/domain/user"
)

type UserSummary struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

func RenderUser(u *user.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Username: u.Username, FullName: u.DisplayName(), AvatarURL: u.AvatarURL}
}

type ReplyPreview struct {
	ID             uuid.UUID `json:"id"`
	Content        string    `json:"content"`
	SenderUsername string    `json:"sender_username"`
}

type MessageView struct {
	ID            uuid.UUID     `json:"id"`
	ChatID        uuid.UUID     `json:"chat_id"`
	Content       string        `json:"content"`
	MessageType   string        `json:"message_type"`
	AttachmentURL string        `json:"attachment_url,omitempty"`
	Sender        *UserSummary  `json:"sender"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	TimeSinceSent string        `json:"time_since_sent"`
	IsEdited      bool          `json:"is_edited"`
	IsDeleted     bool          `json:"is_deleted"`
	ReplyTo       *ReplyPreview `json:"reply_to"`

	// Viewer relative.
	IsOwnMessage   bool   `json:"is_own_message"`
	DeliveryStatus string `json:"delivery_status,omitempty"`
}

// MessageOptions carries what rendering needs beyond the row itself.
type MessageOptions struct {
	Viewer       uuid.UUID
	MediaBaseURL string
	Now          time.Time
	// Status is the viewer's own status row for the message, if any.
	Status *chat.MessageStatus
}

func RenderMessage(m *chat.Message, opts MessageOptions) MessageView {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	v := MessageView{
		ID:            m.ID,
		ChatID:        m.ChatID,
		Content:       m.Content,
		MessageType:   string(m.MessageType),
		AttachmentURL: AttachmentURL(opts.MediaBaseURL, m.AttachmentKey),
		Sender:        RenderUser(m.Sender),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		TimeSinceSent: TimeSinceSent(m.CreatedAt, now),
		IsEdited:      m.IsEdited,
		IsDeleted:     m.IsDeleted,
	}
	if m.IsDeleted {
		v.Content = ""
		v.AttachmentURL = ""
	}
	if m.ReplyTo != nil && !m.ReplyTo.IsDeleted {
		rp := &ReplyPreview{ID: m.ReplyTo.ID, Content: notification.Truncate(m.ReplyTo.Content, 50)}
		if m.ReplyTo.Sender != nil {
			rp.SenderUsername = m.ReplyTo.Sender.Username
		}
		v.ReplyTo = rp
	}
	status := ""
	if opts.Status != nil {
		status = string(opts.Status.Status)
	}
	if opts.Viewer != uuid.Nil {
		v = v.ForViewer(opts.Viewer, status)
	}
	return v
}

// ForViewer fills the viewer relative fields. Own messages carry no
// delivery status; status defaults to "sent" for everyone else.
func (v MessageView) ForViewer(viewer uuid.UUID, status string) MessageView {
	v.IsOwnMessage = v.Sender != nil && v.Sender.ID == viewer
	if v.IsOwnMessage {
		v.DeliveryStatus = ""
		return v
	}
	if status == "" {
		status = string(chat.StatusSent)
	}
	v.DeliveryStatus = status
	return v
}

func AttachmentURL(base, key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key
	}
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

type PostPreview struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content,omitempty"`
}

// CauseView renders a notification cause; which fields are set depends on Type.
type CauseView struct {
	Type        string       `json:"type"`
	ID          uuid.UUID    `json:"id"`
	Content     string       `json:"content,omitempty"`
	ImageURL    string       `json:"image_url,omitempty"`
	Post        *PostPreview `json:"post,omitempty"`
	FollowerID  *uuid.UUID   `json:"follower_id,omitempty"`
	FollowingID *uuid.UUID   `json:"following_id,omitempty"`
	ChatID      *uuid.UUID   `json:"chat_id,omitempty"`
	Preview     string       `json:"preview,omitempty"`
}

func RenderCause(c *notification.Cause) *CauseView {
	if c == nil {
		return nil
	}
	v := &CauseView{Type: string(c.Kind), ID: c.ID}
	switch c.Kind {
	case notification.CausePost:
		if c.Post != nil {
			v.Content = c.Post.Content
			v.ImageURL = c.Post.ImageURL
		}
	case notification.CauseComment:
		if c.Comment != nil {
			v.Content = c.Comment.Content
			v.Post = &PostPreview{ID: c.Comment.PostID, Content: c.Comment.PostContent}
		}
	case notification.CauseFollow:
		if c.Follow != nil {
			follower, following := c.Follow.FollowerID, c.Follow.FollowingID
			v.FollowerID = &follower
			v.FollowingID = &following
		}
	case notification.CauseMessage:
		if c.Message != nil {
			chatID := c.Message.ChatID
			v.ChatID = &chatID
			v.Preview = c.Message.Preview
		}
	}
	return v
}

type NotificationView struct {
	ID               uuid.UUID    `json:"id"`
	NotificationType string       `json:"notification_type"`
	Title            string       `json:"title"`
	Message          string       `json:"message"`
	Sender           *UserSummary `json:"sender"`
	Cause            *CauseView   `json:"content_object_data"`
	IsRead           bool         `json:"is_read"`
	ReadAt           *time.Time   `json:"read_at"`
	CreatedAt        time.Time    `json:"created_at"`
	TimeSince        string       `json:"time_since_created"`
}

func RenderNotification(n *notification.Notification, now time.Time) NotificationView {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	v := NotificationView{
		ID:               n.ID,
		NotificationType: string(n.Type),
		Title:            n.Title,
		Message:          n.Message,
		Sender:           RenderUser(n.Sender),
		IsRead:           n.IsRead,
		ReadAt:           n.ReadAt,
		CreatedAt:        n.CreatedAt,
		TimeSince:        TimeSinceCreated(n.CreatedAt, now),
	}
	if c, ok := n.Cause(); ok {
		v.Cause = RenderCause(c)
	}
	return v
}
