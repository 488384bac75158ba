package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pulse-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
)

func TestCreateDirectChatIsIdempotent(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.New(context.Background())
	a := testutil.SeedUser(t, f.db, "alice")
	b := testutil.SeedUser(t, f.db, "bob")

	first, created, err := f.chat.CreateChat(dbc, a.ID, CreateChatInput{ParticipantIDs: []uuid.UUID{b.ID}})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, "bob", first.DisplayName)

	again, created, err := f.chat.CreateChat(dbc, b.ID, CreateChatInput{ParticipantIDs: []uuid.UUID{a.ID, b.ID}})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "alice", again.DisplayName)

	_, _, err = f.chat.CreateChat(dbc, a.ID, CreateChatInput{ParticipantIDs: []uuid.UUID{b.ID, uuid.New()}})
	require.ErrorIs(t, err, ErrDirectParticipants)
}

func TestCreateGroupChatRules(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.New(context.Background())
	a := testutil.SeedUser(t, f.db, "a")
	b := testutil.SeedUser(t, f.db, "b")
	c := testutil.SeedUser(t, f.db, "c")
	gone := testutil.SeedInactiveUser(t, f.db, "gone")

	_, _, err := f.chat.CreateChat(dbc, a.ID, CreateChatInput{IsGroupChat: true, ParticipantIDs: []uuid.UUID{b.ID}})
	require.ErrorIs(t, err, ErrGroupParticipants)

	_, _, err = f.chat.CreateChat(dbc, a.ID, CreateChatInput{IsGroupChat: true, ParticipantIDs: []uuid.UUID{b.ID, gone.ID}})
	require.ErrorIs(t, err, ErrUnknownUsers)

	v, created, err := f.chat.CreateChat(dbc, a.ID, CreateChatInput{IsGroupChat: true, ParticipantIDs: []uuid.UUID{b.ID, c.ID}})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, chat.DefaultGroupName, v.ChatName)
	assert.Len(t, v.Participants, 3)

	err = f.chat.AddParticipant(dbc, a.ID, v.ID, b.ID)
	require.ErrorIs(t, err, ErrAlreadyParticipant)
	err = f.chat.RemoveParticipant(dbc, a.ID, v.ID, a.ID)
	require.ErrorIs(t, err, ErrRemoveSelf)
	require.NoError(t, f.chat.RemoveParticipant(dbc, a.ID, v.ID, c.ID))

	renamed, err := f.chat.RenameChat(dbc, b.ID, v.ID, "  Weekend  ")
	require.NoError(t, err)
	assert.Equal(t, "Weekend", renamed.DisplayName)
}

func TestSendMessagePersistsThenPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	a := testutil.SeedUser(t, f.db, "alice")
	b := testutil.SeedUser(t, f.db, "bob")
	c := testutil.SeedChat(t, f.db, false, a.ID, b.ID)

	m, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: a.ID, Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", m.Content)

	frames := f.bc.ofType(realtime.ChatGroup(c.ID), protocol.TypeNewMessage)
	require.Len(t, frames, 1)
	view := frames[0].(protocol.NewMessage).Message
	assert.Equal(t, m.ID, view.ID)
	assert.False(t, view.IsOwnMessage, "broadcast render is viewer neutral")

	st, err := f.statuses.Get(dbc, m.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, chat.StatusSent, st.Status)
	own, err := f.statuses.Get(dbc, m.ID, a.ID)
	require.NoError(t, err)
	assert.Nil(t, own)

	pb, err := f.parts.Get(dbc, c.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pb.UnreadCount)

	stored, err := f.chats.GetByID(dbc, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageID)
	assert.Equal(t, m.ID, *stored.LastMessageID)

	notes := f.bc.ofType(realtime.NotificationGroup(b.ID), protocol.TypeNewNotification)
	require.Len(t, notes, 1)
	assert.Equal(t, "alice sent you a message", notes[0].(protocol.NewNotification).Notification.Message)
	assert.Empty(t, f.bc.ofType(realtime.NotificationGroup(a.ID), protocol.TypeNewNotification))
}

func TestSendMessageRejections(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.New(context.Background())
	a := testutil.SeedUser(t, f.db, "a")
	b := testutil.SeedUser(t, f.db, "b")
	outsider := testutil.SeedUser(t, f.db, "outsider")
	c := testutil.SeedChat(t, f.db, false, a.ID, b.ID)

	_, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: a.ID, Content: "   "})
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: outsider.ID, Content: "hi"})
	require.ErrorIs(t, err, ErrNotParticipant)

	bogus := uuid.New()
	m, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: a.ID, Content: "hi", ReplyToID: &bogus})
	require.NoError(t, err, "unknown reply target is ignored")
	assert.Nil(t, m.ReplyToID)

	m2, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: b.ID, Content: "re", ReplyToID: &m.ID})
	require.NoError(t, err)
	require.NotNil(t, m2.ReplyToID)
	assert.Equal(t, m.ID, *m2.ReplyToID)

	att, err := f.chat.SendMessage(dbc, SendMessageInput{
		ChatID: c.ID, SenderID: a.ID, MessageType: chat.MessageTypeImage, AttachmentKey: "img/1.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sent a image", att.Content)

	assert.Empty(t, f.bc.ofType(realtime.ChatGroup(c.ID), protocol.TypeError))
	assert.Len(t, f.bc.ofType(realtime.ChatGroup(c.ID), protocol.TypeNewMessage), 3)
}

func TestMarkStatusIsMonotonic(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.New(context.Background())
	a := testutil.SeedUser(t, f.db, "a")
	b := testutil.SeedUser(t, f.db, "b")
	c := testutil.SeedChat(t, f.db, false, a.ID, b.ID)

	m, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: a.ID, Content: "hi"})
	require.NoError(t, err)

	_, err = f.chat.MarkStatus(dbc, a.ID, c.ID, m.ID, chat.StatusRead)
	require.ErrorIs(t, err, ErrOwnMessage)
	_, err = f.chat.MarkStatus(dbc, b.ID, c.ID, uuid.New(), chat.StatusRead)
	require.ErrorIs(t, err, ErrMessageNotFound)

	row, err := f.chat.MarkStatus(dbc, b.ID, c.ID, m.ID, chat.StatusRead)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusRead, row.Status)
	require.NotNil(t, row.ReadAt)
	require.NotNil(t, row.DeliveredAt)

	row, err = f.chat.MarkStatus(dbc, b.ID, uuid.Nil, m.ID, chat.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, chat.StatusRead, row.Status, "delivered after read must not regress")

	_, err = f.chat.MarkStatus(dbc, b.ID, c.ID, m.ID, chat.StatusRead)
	require.NoError(t, err, "repeated read is an idempotent success")

	frames := f.bc.ofType(realtime.ChatGroup(c.ID), protocol.TypeMessageStatus)
	require.Len(t, frames, 3)
	for _, fr := range frames {
		ms := fr.(protocol.MessageStatus)
		assert.Equal(t, "read", ms.Status)
		assert.Equal(t, b.ID, ms.UserID)
	}

	pb, err := f.parts.Get(dbc, c.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pb.UnreadCount)
}

func TestEditAndDeleteMessage(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.New(context.Background())
	a := testutil.SeedUser(t, f.db, "a")
	b := testutil.SeedUser(t, f.db, "b")
	c := testutil.SeedChat(t, f.db, false, a.ID, b.ID)

	first, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: a.ID, Content: "one"})
	require.NoError(t, err)
	second, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: a.ID, Content: "two"})
	require.NoError(t, err)

	_, err = f.chat.EditMessage(dbc, b.ID, first.ID, "hijack")
	require.ErrorIs(t, err, ErrMessageNotFound)
	edited, err := f.chat.EditMessage(dbc, a.ID, first.ID, "uno")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	assert.True(t, edited.IsOwnMessage)
	require.Len(t, f.bc.ofType(realtime.ChatGroup(c.ID), protocol.TypeMessageUpdated), 1)

	require.ErrorIs(t, f.chat.DeleteMessage(dbc, b.ID, second.ID), ErrMessageNotFound)
	require.NoError(t, f.chat.DeleteMessage(dbc, a.ID, second.ID))
	require.Len(t, f.bc.ofType(realtime.ChatGroup(c.ID), protocol.TypeMessageDeleted), 1)

	stored, err := f.chats.GetByID(dbc, c.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastMessageID)
	assert.Equal(t, first.ID, *stored.LastMessageID, "last message falls back to the newest visible one")

	msgs, err := f.chat.ListMessages(dbc, b.ID, c.ID, nil, 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "uno", msgs[0].Content)
	assert.Equal(t, "sent", msgs[0].DeliveryStatus)
}

func TestLeaveChatDeletesWhenEmpty(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.New(context.Background())
	a := testutil.SeedUser(t, f.db, "a")
	b := testutil.SeedUser(t, f.db, "b")
	c := testutil.SeedChat(t, f.db, false, a.ID, b.ID)
	_, err := f.chat.SendMessage(dbc, SendMessageInput{ChatID: c.ID, SenderID: a.ID, Content: "bye"})
	require.NoError(t, err)

	deleted, err := f.chat.LeaveChat(dbc, a.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	list, err := f.chat.ListChats(dbc, b.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].UnreadCount)

	deleted, err = f.chat.LeaveChat(dbc, b.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	got, err := f.chats.GetByID(dbc, c.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCreateDirectChatRejoinsAfterLeaving(t *testing.T) {
	f := newFixture(t)
	dbc := dbctx.New(context.Background())
	a := testutil.SeedUser(t, f.db, "alice")
	b := testutil.SeedUser(t, f.db, "bob")

	first, created, err := f.chat.CreateChat(dbc, a.ID, CreateChatInput{ParticipantIDs: []uuid.UUID{b.ID}})
	require.NoError(t, err)
	require.True(t, created)

	deleted, err := f.chat.LeaveChat(dbc, a.ID, first.ID)
	require.NoError(t, err)
	require.False(t, deleted)
	_, err = f.chat.SendMessage(dbc, SendMessageInput{ChatID: first.ID, SenderID: b.ID, Content: "still there?"})
	require.NoError(t, err)

	again, created, err := f.chat.CreateChat(dbc, a.ID, CreateChatInput{ParticipantIDs: []uuid.UUID{b.ID}})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Len(t, again.Participants, 2)

	member, err := f.parts.IsParticipant(dbc, first.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, member)
	pa, err := f.parts.Get(dbc, first.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, pa.UnreadCount, "messages sent while away have no status row for the leaver")

	_, err = f.chat.SendMessage(dbc, SendMessageInput{ChatID: first.ID, SenderID: a.ID, Content: "back"})
	require.NoError(t, err)

	// a second call is a plain lookup
	_, created, err = f.chat.CreateChat(dbc, a.ID, CreateChatInput{ParticipantIDs: []uuid.UUID{b.ID}})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestOnlineRequiresMembership(t *testing.T) {
	f := newFixture(t)
	a := testutil.SeedUser(t, f.db, "a")
	b := testutil.SeedUser(t, f.db, "b")
	outsider := testutil.SeedUser(t, f.db, "x")
	c := testutil.SeedChat(t, f.db, false, a.ID, b.ID)
	f.bc.online[realtime.ChatGroup(c.ID)] = []uuid.UUID{b.ID}

	online, err := f.chat.Online(context.Background(), a.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, online)

	_, err = f.chat.Online(context.Background(), outsider.ID, c.ID)
	require.ErrorIs(t, err, ErrNotParticipant)
}
