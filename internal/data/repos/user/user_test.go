package user

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/data/repos/testutil"
	types "github.com/yungbote/pulse-backend/internal/domain/user"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)

	repo := NewUserRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	created, err := repo.Create(dbc, []*types.User{
		{Username: "Alice", FullName: "Alice A", IsActive: true},
		{Username: "bob", IsActive: false},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 2 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: unexpected result: %+v", created)
	}

	got, err := repo.GetByID(dbc, created[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.Username != "Alice" {
		t.Fatalf("GetByID: unexpected result: %+v", got)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("GetByID(missing): got=%+v err=%v", missing, err)
	}

	gotByIDs, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID, created[1].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(gotByIDs) != 2 {
		t.Fatalf("GetByIDs: expected 2 users, got %d", len(gotByIDs))
	}

	byName, err := repo.GetByUsernames(dbc, []string{"alice", "bob", "ghost"})
	if err != nil {
		t.Fatalf("GetByUsernames: %v", err)
	}
	if len(byName) != 1 || byName[0].ID != created[0].ID {
		t.Fatalf("GetByUsernames: expected only the active alice, got %+v", byName)
	}
}
