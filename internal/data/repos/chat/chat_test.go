package chat

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/data/db"
	"github.com/yungbote/pulse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
)

func TestChatRepoDirectKeyIsUnique(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	repo := NewChatRepo(gdb, log)
	dbc := dbctx.New(context.Background())

	a := testutil.SeedUser(t, gdb, "a")
	b := testutil.SeedUser(t, gdb, "b")
	key := types.DirectKeyFor(a.ID, b.ID)

	first, err := repo.Create(dbc, &types.Chat{DirectKey: &key}, []uuid.UUID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	key2 := types.DirectKeyFor(b.ID, a.ID)
	_, err = repo.Create(dbc, &types.Chat{DirectKey: &key2}, []uuid.UUID{a.ID, b.ID})
	if !db.IsUniqueViolation(err) {
		t.Fatalf("second direct chat: want unique violation, got %v", err)
	}

	got, err := repo.GetByDirectKey(dbc, key2)
	if err != nil {
		t.Fatalf("GetByDirectKey: %v", err)
	}
	if got == nil || got.ID != first.ID {
		t.Fatalf("GetByDirectKey: want %s got %+v", first.ID, got)
	}

	chats, err := repo.ListForUser(dbc, a.ID)
	if err != nil {
		t.Fatalf("ListForUser: %v", err)
	}
	if len(chats) != 1 {
		t.Fatalf("ListForUser: want 1 chat, got %d", len(chats))
	}
}

func TestChatRepoLastActivityOnlyMovesForward(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewChatRepo(gdb, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	u := testutil.SeedUser(t, gdb, "u")
	c := testutil.SeedChat(t, gdb, true, u.ID)

	later := c.LastActivity.Add(time.Minute)
	newer := uuid.New()
	ok, err := repo.AdvanceLastMessage(dbc, c.ID, newer, later)
	if err != nil || !ok {
		t.Fatalf("AdvanceLastMessage(later): ok=%v err=%v", ok, err)
	}
	ok, err = repo.AdvanceLastMessage(dbc, c.ID, uuid.New(), later.Add(-time.Hour))
	if err != nil {
		t.Fatalf("AdvanceLastMessage(older): %v", err)
	}
	if ok {
		t.Fatalf("older timestamp must not move last_activity back")
	}
	got, _ := repo.GetByID(dbc, c.ID)
	if got.LastMessageID == nil || *got.LastMessageID != newer {
		t.Fatalf("last message: want %s got %v", newer, got.LastMessageID)
	}
}

func TestMessageStatusAdvance(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	msgs := NewMessageRepo(gdb, log)
	statuses := NewMessageStatusRepo(gdb, log)
	dbc := dbctx.New(context.Background())

	sender := testutil.SeedUser(t, gdb, "sender")
	reader := testutil.SeedUser(t, gdb, "reader")
	c := testutil.SeedChat(t, gdb, false, sender.ID, reader.ID)

	m := &types.Message{ChatID: c.ID, SenderID: sender.ID, Content: "hi", CreatedAt: time.Now().UTC()}
	if err := msgs.Create(dbc, m); err != nil {
		t.Fatalf("Create message: %v", err)
	}
	if err := statuses.CreateForRecipients(dbc, m, []uuid.UUID{sender.ID, reader.ID}); err != nil {
		t.Fatalf("CreateForRecipients: %v", err)
	}
	if own, _ := statuses.Get(dbc, m.ID, sender.ID); own != nil {
		t.Fatalf("sender must not get a status row")
	}

	if n, err := statuses.CountUnread(dbc, c.ID, reader.ID); err != nil || n != 1 {
		t.Fatalf("CountUnread before read: n=%d err=%v", n, err)
	}

	readAt := time.Now().UTC().Add(time.Second)
	changed, err := statuses.Advance(dbc, m.ID, reader.ID, types.StatusRead, readAt)
	if err != nil || !changed {
		t.Fatalf("Advance(read): changed=%v err=%v", changed, err)
	}
	st, err := statuses.Get(dbc, m.ID, reader.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.Status != types.StatusRead || st.ReadAt == nil || st.DeliveredAt == nil {
		t.Fatalf("unexpected row after read: %+v", st)
	}

	changed, err = statuses.Advance(dbc, m.ID, reader.ID, types.StatusDelivered, readAt.Add(time.Minute))
	if err != nil || changed {
		t.Fatalf("Advance(delivered after read): changed=%v err=%v", changed, err)
	}
	changed, err = statuses.Advance(dbc, m.ID, reader.ID, types.StatusRead, readAt.Add(time.Minute))
	if err != nil || changed {
		t.Fatalf("Advance(read twice): changed=%v err=%v", changed, err)
	}
	again, _ := statuses.Get(dbc, m.ID, reader.ID)
	if !again.ReadAt.Equal(*st.ReadAt) {
		t.Fatalf("read_at changed: %v -> %v", st.ReadAt, again.ReadAt)
	}
	if !again.DeliveredAt.Equal(*st.DeliveredAt) {
		t.Fatalf("delivered_at changed: %v -> %v", st.DeliveredAt, again.DeliveredAt)
	}
	if n, err := statuses.CountUnread(dbc, c.ID, reader.ID); err != nil || n != 0 {
		t.Fatalf("CountUnread after read: n=%d err=%v", n, err)
	}
	if changed, err := statuses.Advance(dbc, m.ID, uuid.New(), types.StatusRead, readAt); err != nil || changed {
		t.Fatalf("Advance(missing row): changed=%v err=%v", changed, err)
	}

	// Ensure is a no-op on an existing row.
	if err := statuses.Ensure(dbc, m.ID, c.ID, reader.ID); err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	after, _ := statuses.Get(dbc, m.ID, reader.ID)
	if after.Status != types.StatusRead {
		t.Fatalf("Ensure must not reset status, got %s", after.Status)
	}
}

func TestParticipantUnreadCounter(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewParticipantRepo(gdb, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	a := testutil.SeedUser(t, gdb, "a")
	b := testutil.SeedUser(t, gdb, "b")
	c := testutil.SeedChat(t, gdb, false, a.ID, b.ID)

	if err := repo.IncrementUnread(dbc, c.ID, a.ID); err != nil {
		t.Fatalf("IncrementUnread: %v", err)
	}
	if err := repo.IncrementUnread(dbc, c.ID, a.ID); err != nil {
		t.Fatalf("IncrementUnread: %v", err)
	}
	pb, _ := repo.Get(dbc, c.ID, b.ID)
	pa, _ := repo.Get(dbc, c.ID, a.ID)
	if pb.UnreadCount != 2 || pa.UnreadCount != 0 {
		t.Fatalf("counters: a=%d b=%d", pa.UnreadCount, pb.UnreadCount)
	}
	for i := 0; i < 3; i++ {
		if err := repo.DecrementUnread(dbc, c.ID, b.ID); err != nil {
			t.Fatalf("DecrementUnread: %v", err)
		}
	}
	pb, _ = repo.Get(dbc, c.ID, b.ID)
	if pb.UnreadCount != 0 {
		t.Fatalf("counter must floor at zero, got %d", pb.UnreadCount)
	}

	removed, err := repo.Remove(dbc, c.ID, a.ID)
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	ok, _ := repo.IsParticipant(dbc, c.ID, a.ID)
	if ok {
		t.Fatalf("a should no longer be a participant")
	}
}

func TestChatRepoDeleteCascades(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	chats := NewChatRepo(gdb, log)
	msgs := NewMessageRepo(gdb, log)
	statuses := NewMessageStatusRepo(gdb, log)
	dbc := dbctx.New(context.Background())

	a := testutil.SeedUser(t, gdb, "a")
	b := testutil.SeedUser(t, gdb, "b")
	c := testutil.SeedChat(t, gdb, false, a.ID, b.ID)
	m := &types.Message{ChatID: c.ID, SenderID: a.ID, Content: "bye", CreatedAt: time.Now().UTC()}
	if err := msgs.Create(dbc, m); err != nil {
		t.Fatalf("Create message: %v", err)
	}
	if err := statuses.CreateForRecipients(dbc, m, []uuid.UUID{b.ID}); err != nil {
		t.Fatalf("CreateForRecipients: %v", err)
	}

	if err := chats.Delete(dbc, c.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := msgs.GetByID(dbc, m.ID); got != nil {
		t.Fatalf("message survived chat delete")
	}
	if got, _ := statuses.Get(dbc, m.ID, b.ID); got != nil {
		t.Fatalf("status survived chat delete")
	}
}

func TestMessageListPagesThroughSharedTimestamps(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	msgs := NewMessageRepo(gdb, log)
	dbc := dbctx.New(context.Background())

	a := testutil.SeedUser(t, gdb, "a")
	b := testutil.SeedUser(t, gdb, "b")
	c := testutil.SeedChat(t, gdb, false, a.ID, b.ID)

	same := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		m := &types.Message{ChatID: c.ID, SenderID: a.ID, Content: "burst", CreatedAt: same}
		if err := msgs.Create(dbc, m); err != nil {
			t.Fatalf("Create message %d: %v", i, err)
		}
	}
	older := &types.Message{ChatID: c.ID, SenderID: b.ID, Content: "older", CreatedAt: same.Add(-time.Second)}
	if err := msgs.Create(dbc, older); err != nil {
		t.Fatalf("Create older: %v", err)
	}

	seen := map[uuid.UUID]bool{}
	var cursor *types.MessageCursor
	for page := 0; page < 10; page++ {
		got, err := msgs.List(dbc, c.ID, cursor, 2)
		if err != nil {
			t.Fatalf("List page %d: %v", page, err)
		}
		if len(got) == 0 {
			break
		}
		for _, m := range got {
			if seen[m.ID] {
				t.Fatalf("message %s returned twice", m.ID)
			}
			seen[m.ID] = true
		}
		cursor = types.CursorOf(got[len(got)-1])
	}
	if len(seen) != 6 {
		t.Fatalf("paged %d messages, want 6", len(seen))
	}
	if !seen[older.ID] {
		t.Fatalf("older message skipped")
	}

	// a time-only cursor still excludes the whole burst
	got, err := msgs.List(dbc, c.ID, &types.MessageCursor{CreatedAt: same}, 50)
	if err != nil {
		t.Fatalf("List by time: %v", err)
	}
	if len(got) != 1 || got[0].ID != older.ID {
		t.Fatalf("time-only cursor: got %d messages", len(got))
	}
}
