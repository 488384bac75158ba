package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/data/repos"
	"github.com/yungbote/pulse-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
)

type published struct {
	group string
	frame protocol.Frame
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	frames []published
	fail   bool
	online map[string][]uuid.UUID
}

func (b *recordingBroadcaster) Publish(ctx context.Context, group string, frame protocol.Frame) error {
	if b.fail {
		return errors.New("bus down")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames = append(b.frames, published{group: group, frame: frame})
	return nil
}

func (b *recordingBroadcaster) Online(ctx context.Context, group string) []uuid.UUID {
	return b.online[group]
}

// ofType returns frames published to group with the given type, in order.
func (b *recordingBroadcaster) ofType(group, frameType string) []protocol.Frame {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []protocol.Frame
	for _, p := range b.frames {
		if p.group == group && p.frame.FrameType() == frameType {
			out = append(out, p.frame)
		}
	}
	return out
}

type fixture struct {
	db     *gorm.DB
	bc     *recordingBroadcaster
	chat   ChatService
	notify NotificationService
	tokens TokenVerifier

	users    repos.UserRepo
	parts    repos.ParticipantRepo
	chats    repos.ChatRepo
	statuses repos.MessageStatusRepo
	notifs   repos.NotificationRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	bc := &recordingBroadcaster{online: map[string][]uuid.UUID{}}

	f := &fixture{
		db:       gdb,
		bc:       bc,
		users:    repos.NewUserRepo(gdb, log),
		parts:    repos.NewParticipantRepo(gdb, log),
		chats:    repos.NewChatRepo(gdb, log),
		statuses: repos.NewMessageStatusRepo(gdb, log),
		notifs:   repos.NewNotificationRepo(gdb, log),
	}
	f.notify = NewNotificationService(gdb, log, f.users, f.notifs, repos.NewNotificationSettingsRepo(gdb, log), bc)
	f.chat = NewChatService(gdb, log, f.users, f.chats, f.parts, repos.NewMessageRepo(gdb, log), f.statuses, bc, f.notify,
		ChatServiceConfig{MediaBaseURL: "https://cdn.test"})
	f.tokens = NewTokenVerifier(log, f.users, "test-secret", "pulse")
	return f
}
