package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
)

func seedNotification(t *testing.T, repo NotificationRepo, recipient uuid.UUID, typ types.Type) *types.Notification {
	t.Helper()
	n := &types.Notification{
		RecipientID: recipient,
		Type:        typ,
		Title:       "t",
		Message:     "m",
	}
	if err := repo.Create(dbctx.New(context.Background()), n); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return n
}

func TestNotificationRepoReadFlow(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewNotificationRepo(gdb, testutil.Logger(t))
	dbc := dbctx.New(context.Background())

	owner := testutil.SeedUser(t, gdb, "owner")
	other := testutil.SeedUser(t, gdb, "other")

	first := seedNotification(t, repo, owner.ID, types.TypeLike)
	seedNotification(t, repo, owner.ID, types.TypeFollow)
	seedNotification(t, repo, owner.ID, types.TypeFollow)
	seedNotification(t, repo, other.ID, types.TypeLike)

	unread, err := repo.CountUnread(dbc, owner.ID)
	if err != nil || unread != 3 {
		t.Fatalf("CountUnread: got=%d err=%v", unread, err)
	}

	// Another user cannot flip the owner's notification.
	changed, err := repo.MarkRead(dbc, first.ID, other.ID, time.Now().UTC())
	if err != nil || changed {
		t.Fatalf("MarkRead(foreign): changed=%v err=%v", changed, err)
	}
	changed, err = repo.MarkRead(dbc, first.ID, owner.ID, time.Now().UTC())
	if err != nil || !changed {
		t.Fatalf("MarkRead: changed=%v err=%v", changed, err)
	}
	changed, err = repo.MarkRead(dbc, first.ID, owner.ID, time.Now().UTC())
	if err != nil || changed {
		t.Fatalf("MarkRead(again): changed=%v err=%v", changed, err)
	}

	list, total, err := repo.List(dbc, ListQuery{RecipientID: owner.ID, UnreadOnly: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("List(unread): total=%d len=%d", total, len(list))
	}

	stats, err := repo.Stats(dbc, owner.ID, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Unread != 2 || stats.Recent != 3 {
		t.Fatalf("Stats: unexpected %+v", stats)
	}
	if stats.ByType["follow"] != 2 || stats.ByType["like"] != 1 {
		t.Fatalf("Stats.ByType: unexpected %+v", stats.ByType)
	}

	n, err := repo.MarkAllRead(dbc, owner.ID, time.Now().UTC())
	if err != nil || n != 2 {
		t.Fatalf("MarkAllRead: n=%d err=%v", n, err)
	}
	cleared, err := repo.DeleteRead(dbc, owner.ID)
	if err != nil || cleared != 3 {
		t.Fatalf("DeleteRead: n=%d err=%v", cleared, err)
	}
	otherUnread, _ := repo.CountUnread(dbc, other.ID)
	if otherUnread != 1 {
		t.Fatalf("other user's notifications touched: %d", otherUnread)
	}
}

func TestSettingsRepoUpsert(t *testing.T) {
	gdb := testutil.DB(t)
	repo := NewSettingsRepo(gdb, testutil.Logger(t))
	dbc := dbctx.New(context.Background())
	uid := uuid.New()

	got, err := repo.Get(dbc, uid)
	if err != nil || got != nil {
		t.Fatalf("Get(missing): got=%+v err=%v", got, err)
	}

	s := types.Defaults(uid)
	s.LikesEnabled = false
	if err := repo.Upsert(dbc, &s); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	s.LikesEnabled = true
	s.FollowsEnabled = false
	if err := repo.Upsert(dbc, &s); err != nil {
		t.Fatalf("Upsert(update): %v", err)
	}

	got, err = repo.Get(dbc, uid)
	if err != nil || got == nil {
		t.Fatalf("Get: got=%+v err=%v", got, err)
	}
	if !got.LikesEnabled || got.FollowsEnabled {
		t.Fatalf("Upsert did not overwrite: %+v", got)
	}
}
