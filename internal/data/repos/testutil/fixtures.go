package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/domain/user"
)

func SeedUser(tb testing.TB, db *gorm.DB, username string) *user.User {
	tb.Helper()
	u := &user.User{
		ID:       uuid.New(),
		Username: username,
		FullName: "",
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedInactiveUser(tb testing.TB, db *gorm.DB, username string) *user.User {
	tb.Helper()
	u := SeedUser(tb, db, username)
	if err := db.Model(u).Update("is_active", false).Error; err != nil {
		tb.Fatalf("deactivate user: %v", err)
	}
	u.IsActive = false
	return u
}

// SeedChat creates a chat with the given members directly, bypassing the
// service rules.
func SeedChat(tb testing.TB, db *gorm.DB, group bool, members ...uuid.UUID) *chat.Chat {
	tb.Helper()
	now := time.Now().UTC()
	c := &chat.Chat{IsGroupChat: group, LastActivity: now}
	if group {
		c.Name = chat.DefaultGroupName
	} else if len(members) == 2 {
		key := chat.DirectKeyFor(members[0], members[1])
		c.DirectKey = &key
	}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed chat: %v", err)
	}
	for _, m := range members {
		p := &chat.Participant{ChatID: c.ID, UserID: m, JoinedAt: now}
		if err := db.Create(p).Error; err != nil {
			tb.Fatalf("seed participant: %v", err)
		}
	}
	return c
}
