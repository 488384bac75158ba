package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fastjson"

	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/domain/user"
)

func TestParse(t *testing.T) {
	var p fastjson.Parser

	in, err := Parse(&p, []byte(`{"type":"chat_message","content":"hi","reply_to":"abc"}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if in.Type != InChatMessage || in.Content != "hi" || in.ReplyTo != "abc" {
		t.Fatalf("unexpected frame: %+v", in)
	}

	in, err = Parse(&p, []byte(`{"type":"mark_read","notification_id":42}`))
	if err != nil || in.NotificationID != "42" {
		t.Fatalf("numeric id: %+v err=%v", in, err)
	}

	for _, raw := range []string{`not json`, `[1,2]`, `"str"`, `{"type":`} {
		if _, err := Parse(&p, []byte(raw)); err != ErrInvalidJSON {
			t.Fatalf("Parse(%q): want ErrInvalidJSON got %v", raw, err)
		}
	}

	in, err = Parse(&p, []byte(`{"content":"x"}`))
	if err != nil || in.Type != "" {
		t.Fatalf("missing type: %+v err=%v", in, err)
	}
}

func TestRenderMessageViewerRelative(t *testing.T) {
	sender := &user.User{ID: uuid.New(), Username: "ann"}
	viewer := uuid.New()
	now := time.Now().UTC()
	m := &chat.Message{
		ID:            uuid.New(),
		ChatID:        uuid.New(),
		SenderID:      sender.ID,
		Sender:        sender,
		Content:       "hello",
		MessageType:   chat.MessageTypeImage,
		AttachmentKey: "chat/1.png",
		CreatedAt:     now.Add(-5 * time.Minute),
	}

	neutral := RenderMessage(m, MessageOptions{MediaBaseURL: "https://cdn.example.com/", Now: now})
	if neutral.IsOwnMessage || neutral.DeliveryStatus != "" {
		t.Fatalf("neutral render should carry no viewer fields: %+v", neutral)
	}
	if neutral.AttachmentURL != "https://cdn.example.com/chat/1.png" {
		t.Fatalf("attachment url: %q", neutral.AttachmentURL)
	}
	if neutral.TimeSinceSent != "5m" {
		t.Fatalf("time since: %q", neutral.TimeSinceSent)
	}

	own := neutral.ForViewer(sender.ID, "read")
	if !own.IsOwnMessage || own.DeliveryStatus != "" {
		t.Fatalf("own message: %+v", own)
	}
	theirs := neutral.ForViewer(viewer, "")
	if theirs.IsOwnMessage || theirs.DeliveryStatus != "sent" {
		t.Fatalf("recipient view: %+v", theirs)
	}

	st := &chat.MessageStatus{Status: chat.StatusDelivered}
	withStatus := RenderMessage(m, MessageOptions{Viewer: viewer, Status: st, Now: now})
	if withStatus.DeliveryStatus != "delivered" {
		t.Fatalf("status from row: %+v", withStatus)
	}

	m.IsDeleted = true
	if got := RenderMessage(m, MessageOptions{Now: now}); got.Content != "" {
		t.Fatalf("deleted content should be hidden, got %q", got.Content)
	}
}

func TestRenderNotificationCause(t *testing.T) {
	n := &notification.Notification{
		ID:        uuid.New(),
		Type:      notification.TypeFollow,
		Title:     "New Follower",
		Message:   "ann started following you",
		CreatedAt: time.Now().UTC().Add(-3 * time.Hour),
	}
	follower, following := uuid.New(), uuid.New()
	n.SetCause(notification.FollowCause(uuid.New(), follower, following))

	v := RenderNotification(n, time.Now().UTC())
	if v.Cause == nil || v.Cause.Type != "follow" {
		t.Fatalf("cause: %+v", v.Cause)
	}
	if *v.Cause.FollowerID != follower || *v.Cause.FollowingID != following {
		t.Fatalf("follow ids lost: %+v", v.Cause)
	}
	if v.TimeSince != "3h" {
		t.Fatalf("time since: %q", v.TimeSince)
	}
	if v.Sender != nil {
		t.Fatalf("system style notification should have nil sender")
	}

	raw, err := json.Marshal(NewNewNotification(v))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	if decoded["type"] != TypeNewNotification {
		t.Fatalf("frame type missing: %s", raw)
	}
}

func TestTimeSinceSent(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	cases := map[time.Duration]string{
		10 * time.Second: "just now",
		2 * time.Hour:    "2h",
		30 * time.Hour:   "1 day",
		72 * time.Hour:   "3 days",
	}
	for ago, want := range cases {
		if got := TimeSinceSent(now.Add(-ago), now); got != want {
			t.Fatalf("TimeSinceSent(-%s): want %q got %q", ago, want, got)
		}
	}
	if got := TimeSinceSent(now.Add(-10*24*time.Hour), now); got != "Feb 29" {
		t.Fatalf("old message: %q", got)
	}
}
