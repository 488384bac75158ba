package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/data/db"
	"github.com/yungbote/pulse-backend/internal/data/repos"
	types "github.com/yungbote/pulse-backend/internal/domain"
	"github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/observability"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
)

var tracer = otel.Tracer("github.com/yungbote/pulse-backend/internal/services")

// Broadcaster fans frames out to a group and reports who is connected.
// bus.GroupBus implements it.
type Broadcaster interface {
	Publish(ctx context.Context, group string, frame protocol.Frame) error
	Online(ctx context.Context, group string) []uuid.UUID
}

// MessageNotifier is told about every sent message so recipients get a
// notification. NotificationService implements it.
type MessageNotifier interface {
	NotifyMessage(ctx context.Context, m *types.Message, recipients []uuid.UUID) error
}

type CreateChatInput struct {
	ParticipantIDs []uuid.UUID
	IsGroupChat    bool
	Name           string
}

type SendMessageInput struct {
	ChatID        uuid.UUID
	SenderID      uuid.UUID
	Content       string
	MessageType   chat.MessageType
	AttachmentKey string
	ReplyToID     *uuid.UUID
	// MembershipChecked skips the participant lookup; sockets verify
	// membership once at connect.
	MembershipChecked bool
}

type ChatService interface {
	CreateChat(dbc dbctx.Context, creatorID uuid.UUID, in CreateChatInput) (*protocol.ChatView, bool, error)
	ListChats(dbc dbctx.Context, userID uuid.UUID) ([]protocol.ChatView, error)
	GetChat(dbc dbctx.Context, userID, chatID uuid.UUID) (*protocol.ChatDetail, error)
	RenameChat(dbc dbctx.Context, userID, chatID uuid.UUID, name string) (*protocol.ChatView, error)
	// LeaveChat removes the user and reports whether the chat was deleted
	// because nobody was left.
	LeaveChat(dbc dbctx.Context, userID, chatID uuid.UUID) (bool, error)

	IsParticipant(dbc dbctx.Context, chatID, userID uuid.UUID) (bool, error)
	ListParticipants(dbc dbctx.Context, userID, chatID uuid.UUID) ([]protocol.UserSummary, error)
	AddParticipant(dbc dbctx.Context, actorID, chatID, userID uuid.UUID) error
	RemoveParticipant(dbc dbctx.Context, actorID, chatID, userID uuid.UUID) error
	Online(ctx context.Context, userID, chatID uuid.UUID) ([]uuid.UUID, error)

	SendMessage(dbc dbctx.Context, in SendMessageInput) (*types.Message, error)
	ListMessages(dbc dbctx.Context, userID, chatID uuid.UUID, before *chat.MessageCursor, limit int) ([]protocol.MessageView, error)
	EditMessage(dbc dbctx.Context, userID, messageID uuid.UUID, content string) (*protocol.MessageView, error)
	DeleteMessage(dbc dbctx.Context, userID, messageID uuid.UUID) error
	// MarkStatus advances the caller's status for a message. chatID scopes
	// the lookup when the caller is already bound to a chat; uuid.Nil means
	// any chat the caller belongs to.
	MarkStatus(dbc dbctx.Context, userID, chatID, messageID uuid.UUID, status chat.DeliveryStatus) (*types.MessageStatus, error)
}

type ChatServiceConfig struct {
	MediaBaseURL string
}

type chatService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	chatRepo     repos.ChatRepo
	partRepo     repos.ParticipantRepo
	messageRepo  repos.MessageRepo
	statusRepo   repos.MessageStatusRepo
	broadcaster  Broadcaster
	notifier     MessageNotifier
	mediaBaseURL string
	now          func() time.Time
}

func NewChatService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	chatRepo repos.ChatRepo,
	partRepo repos.ParticipantRepo,
	messageRepo repos.MessageRepo,
	statusRepo repos.MessageStatusRepo,
	broadcaster Broadcaster,
	notifier MessageNotifier,
	cfg ChatServiceConfig,
) ChatService {
	return &chatService{
		db:           db,
		log:          log.With("service", "ChatService"),
		userRepo:     userRepo,
		chatRepo:     chatRepo,
		partRepo:     partRepo,
		messageRepo:  messageRepo,
		statusRepo:   statusRepo,
		broadcaster:  broadcaster,
		notifier:     notifier,
		mediaBaseURL: cfg.MediaBaseURL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *chatService) IsParticipant(dbc dbctx.Context, chatID, userID uuid.UUID) (bool, error) {
	return s.partRepo.IsParticipant(dbc, chatID, userID)
}

// requireMember loads the chat and fails unless userID belongs to it.
func (s *chatService) requireMember(dbc dbctx.Context, chatID, userID uuid.UUID) (*types.Chat, error) {
	c, err := s.chatRepo.GetByID(dbc, chatID)
	if err != nil {
		return nil, fmt.Errorf("load chat: %w", err)
	}
	if c == nil {
		return nil, ErrChatNotFound
	}
	ok, err := s.partRepo.IsParticipant(dbc, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("check participant: %w", err)
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	return c, nil
}

func dedupeIDs(ids []uuid.UUID, exclude uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || id == exclude || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (s *chatService) requireActiveUsers(dbc dbctx.Context, ids []uuid.UUID) error {
	found, err := s.userRepo.GetByIDs(dbc, ids)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	active := 0
	for _, u := range found {
		if u != nil && u.IsActive {
			active++
		}
	}
	if active != len(ids) {
		return ErrUnknownUsers
	}
	return nil
}

func (s *chatService) CreateChat(dbc dbctx.Context, creatorID uuid.UUID, in CreateChatInput) (*protocol.ChatView, bool, error) {
	others := dedupeIDs(in.ParticipantIDs, creatorID)

	if !in.IsGroupChat {
		if len(others) != 1 {
			return nil, false, ErrDirectParticipants
		}
		if err := s.requireActiveUsers(dbc, others); err != nil {
			return nil, false, err
		}
		key := chat.DirectKeyFor(creatorID, others[0])
		existing, err := s.chatRepo.GetByDirectKey(dbc, key)
		if err != nil {
			return nil, false, fmt.Errorf("lookup direct chat: %w", err)
		}
		if existing != nil {
			return s.rejoinDirect(dbc, creatorID, existing)
		}
		c := &types.Chat{DirectKey: &key, LastActivity: s.now()}
		err = inTx(s.db, dbc, func(inner dbctx.Context) error {
			_, err := s.chatRepo.Create(inner, c, []uuid.UUID{creatorID, others[0]})
			return err
		})
		if db.IsUniqueViolation(err) {
			// Lost a race with the other participant.
			existing, err = s.chatRepo.GetByDirectKey(dbc, key)
			if err != nil || existing == nil {
				return nil, false, fmt.Errorf("lookup direct chat after conflict: %w", err)
			}
			return s.rejoinDirect(dbc, creatorID, existing)
		}
		if err != nil {
			return nil, false, fmt.Errorf("create direct chat: %w", err)
		}
		v, err := s.viewFor(dbc, creatorID, c)
		return v, true, err
	}

	if len(others) < 2 {
		return nil, false, ErrGroupParticipants
	}
	if len(others)+1 > chat.MaxGroupParticipants {
		return nil, false, ErrTooManyMembers
	}
	name := chat.DefaultGroupName
	if in.Name != "" {
		n, err := chat.NormalizeName(in.Name)
		if err != nil {
			return nil, false, ErrInvalidChatName
		}
		name = n
	}
	if err := s.requireActiveUsers(dbc, others); err != nil {
		return nil, false, err
	}
	c := &types.Chat{IsGroupChat: true, Name: name, LastActivity: s.now()}
	members := append([]uuid.UUID{creatorID}, others...)
	if err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		_, err := s.chatRepo.Create(inner, c, members)
		return err
	}); err != nil {
		return nil, false, fmt.Errorf("create group chat: %w", err)
	}
	s.log.Info("group chat created", "chat_id", c.ID, "members", len(members))
	v, err := s.viewFor(dbc, creatorID, c)
	return v, true, err
}

// rejoinDirect returns an existing direct chat, putting userID back in it
// if they left earlier. Their unread counter is rebuilt from the statuses
// that survived their absence.
func (s *chatService) rejoinDirect(dbc dbctx.Context, userID uuid.UUID, c *types.Chat) (*protocol.ChatView, bool, error) {
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		member, err := s.partRepo.IsParticipant(inner, c.ID, userID)
		if err != nil || member {
			return err
		}
		if err := s.partRepo.Add(inner, c.ID, []uuid.UUID{userID}, s.now()); err != nil {
			return err
		}
		unread, err := s.statusRepo.CountUnread(inner, c.ID, userID)
		if err != nil {
			return err
		}
		return s.partRepo.SetUnread(inner, c.ID, userID, unread)
	})
	if err != nil {
		return nil, false, fmt.Errorf("rejoin direct chat: %w", err)
	}
	v, err := s.viewFor(dbc, userID, c)
	return v, false, err
}

func (s *chatService) viewFor(dbc dbctx.Context, viewer uuid.UUID, c *types.Chat) (*protocol.ChatView, error) {
	views, err := s.buildViews(dbc, viewer, []*types.Chat{c})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// buildViews renders chats for viewer with a fixed number of queries
// regardless of how many chats there are.
func (s *chatService) buildViews(dbc dbctx.Context, viewer uuid.UUID, chats []*types.Chat) ([]protocol.ChatView, error) {
	out := make([]protocol.ChatView, 0, len(chats))
	if len(chats) == 0 {
		return out, nil
	}
	chatIDs := make([]uuid.UUID, 0, len(chats))
	lastIDs := make([]uuid.UUID, 0, len(chats))
	for _, c := range chats {
		chatIDs = append(chatIDs, c.ID)
		if c.LastMessageID != nil {
			lastIDs = append(lastIDs, *c.LastMessageID)
		}
	}

	parts, err := s.partRepo.ListByChats(dbc, chatIDs)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	byChat := make(map[uuid.UUID][]uuid.UUID, len(chats))
	unread := make(map[uuid.UUID]int, len(chats))
	userIDs := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		byChat[p.ChatID] = append(byChat[p.ChatID], p.UserID)
		userIDs = append(userIDs, p.UserID)
		if p.UserID == viewer {
			unread[p.ChatID] = p.UnreadCount
		}
	}
	users, err := s.userRepo.GetByIDs(dbc, dedupeIDs(userIDs, uuid.Nil))
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	userByID := make(map[uuid.UUID]*types.User, len(users))
	names := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		userByID[u.ID] = u
		names[u.ID] = u.DisplayName()
	}

	lastMsgs, err := s.messageRepo.GetByIDs(dbc, lastIDs)
	if err != nil {
		return nil, fmt.Errorf("load last messages: %w", err)
	}
	statuses, err := s.statusRepo.ListForUser(dbc, lastIDs, viewer)
	if err != nil {
		return nil, fmt.Errorf("load statuses: %w", err)
	}
	lastByID := make(map[uuid.UUID]*types.Message, len(lastMsgs))
	for _, m := range lastMsgs {
		lastByID[m.ID] = m
	}

	now := s.now()
	for _, c := range chats {
		members := byChat[c.ID]
		v := protocol.ChatView{
			ID:           c.ID,
			IsGroupChat:  c.IsGroupChat,
			ChatName:     c.Name,
			DisplayName:  chat.DisplayName(c, viewer, members, names),
			Participants: make([]protocol.UserSummary, 0, len(members)),
			LastActivity: c.LastActivity,
			UnreadCount:  unread[c.ID],
			CreatedAt:    c.CreatedAt,
		}
		for _, id := range members {
			if u := userByID[id]; u != nil {
				v.Participants = append(v.Participants, *protocol.RenderUser(u))
			}
		}
		if c.LastMessageID != nil {
			if m := lastByID[*c.LastMessageID]; m != nil && !m.IsDeleted {
				mv := protocol.RenderMessage(m, protocol.MessageOptions{
					Viewer:       viewer,
					MediaBaseURL: s.mediaBaseURL,
					Now:          now,
					Status:       statuses[m.ID],
				})
				v.LastMessage = &mv
			}
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *chatService) ListChats(dbc dbctx.Context, userID uuid.UUID) ([]protocol.ChatView, error) {
	chats, err := s.chatRepo.ListForUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return s.buildViews(dbc, userID, chats)
}

func (s *chatService) GetChat(dbc dbctx.Context, userID, chatID uuid.UUID) (*protocol.ChatDetail, error) {
	c, err := s.requireMember(dbc, chatID, userID)
	if err != nil {
		return nil, err
	}
	v, err := s.viewFor(dbc, userID, c)
	if err != nil {
		return nil, err
	}
	msgs, err := s.ListMessages(dbc, userID, chatID, nil, 20)
	if err != nil {
		return nil, err
	}
	return &protocol.ChatDetail{ChatView: *v, Messages: msgs}, nil
}

func (s *chatService) RenameChat(dbc dbctx.Context, userID, chatID uuid.UUID, name string) (*protocol.ChatView, error) {
	c, err := s.requireMember(dbc, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !c.IsGroupChat {
		return nil, ErrNotGroupChat
	}
	n, err := chat.NormalizeName(name)
	if err != nil {
		return nil, ErrInvalidChatName
	}
	if err := s.chatRepo.UpdateName(dbc, chatID, n); err != nil {
		return nil, fmt.Errorf("rename chat: %w", err)
	}
	c.Name = n
	return s.viewFor(dbc, userID, c)
}

func (s *chatService) LeaveChat(dbc dbctx.Context, userID, chatID uuid.UUID) (bool, error) {
	if _, err := s.requireMember(dbc, chatID, userID); err != nil {
		return false, err
	}
	deleted := false
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		if _, err := s.partRepo.Remove(inner, chatID, userID); err != nil {
			return err
		}
		left, err := s.partRepo.Count(inner, chatID)
		if err != nil {
			return err
		}
		if left == 0 {
			deleted = true
			return s.chatRepo.Delete(inner, chatID)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("leave chat: %w", err)
	}
	if deleted {
		s.log.Info("chat deleted after last participant left", "chat_id", chatID)
	}
	return deleted, nil
}

func (s *chatService) ListParticipants(dbc dbctx.Context, userID, chatID uuid.UUID) ([]protocol.UserSummary, error) {
	if _, err := s.requireMember(dbc, chatID, userID); err != nil {
		return nil, err
	}
	ids, err := s.partRepo.ListUserIDs(dbc, chatID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	users, err := s.userRepo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	byID := make(map[uuid.UUID]*types.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	out := make([]protocol.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u := byID[id]; u != nil {
			out = append(out, *protocol.RenderUser(u))
		}
	}
	return out, nil
}

func (s *chatService) AddParticipant(dbc dbctx.Context, actorID, chatID, userID uuid.UUID) error {
	c, err := s.requireMember(dbc, chatID, actorID)
	if err != nil {
		return err
	}
	if !c.IsGroupChat {
		return ErrNotGroupChat
	}
	u, err := s.userRepo.GetByID(dbc, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if u == nil || !u.IsActive {
		return ErrUserNotFound
	}
	return inTx(s.db, dbc, func(inner dbctx.Context) error {
		already, err := s.partRepo.IsParticipant(inner, chatID, userID)
		if err != nil {
			return err
		}
		if already {
			return ErrAlreadyParticipant
		}
		n, err := s.partRepo.Count(inner, chatID)
		if err != nil {
			return err
		}
		if n+1 > chat.MaxGroupParticipants {
			return ErrTooManyMembers
		}
		if err := s.partRepo.Add(inner, chatID, []uuid.UUID{userID}, s.now()); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyParticipant
			}
			return err
		}
		return nil
	})
}

func (s *chatService) RemoveParticipant(dbc dbctx.Context, actorID, chatID, userID uuid.UUID) error {
	c, err := s.requireMember(dbc, chatID, actorID)
	if err != nil {
		return err
	}
	if !c.IsGroupChat {
		return ErrNotGroupChat
	}
	if userID == actorID {
		return ErrRemoveSelf
	}
	removed, err := s.partRepo.Remove(dbc, chatID, userID)
	if err != nil {
		return fmt.Errorf("remove participant: %w", err)
	}
	if !removed {
		return ErrUserNotFound
	}
	return nil
}

func (s *chatService) Online(ctx context.Context, userID, chatID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.requireMember(dbctx.Context{Ctx: ctx}, chatID, userID); err != nil {
		return nil, err
	}
	if s.broadcaster == nil {
		return []uuid.UUID{}, nil
	}
	return s.broadcaster.Online(ctx, realtime.ChatGroup(chatID)), nil
}

func (s *chatService) publish(ctx context.Context, group string, frame protocol.Frame) {
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Publish(ctx, group, frame); err != nil {
		s.log.Warn("publish failed", "group", group, "event", frame.FrameType(), "error", err)
	}
}

func (s *chatService) SendMessage(dbc dbctx.Context, in SendMessageInput) (*types.Message, error) {
	ctx, span := tracer.Start(dbc.Ctx, "ChatService.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("chat.id", in.ChatID.String()))
	dbc = dbctx.Context{Ctx: ctx, Tx: dbc.Tx}

	mt := in.MessageType
	if mt == "" {
		mt = chat.MessageTypeText
	}
	if !mt.Valid() {
		return nil, ErrInvalidMessageType
	}
	content, err := chat.NormalizeContent(in.Content, mt, in.AttachmentKey != "")
	switch {
	case errors.Is(err, chat.ErrEmptyContent):
		return nil, ErrEmptyContent
	case errors.Is(err, chat.ErrContentTooLong):
		return nil, ErrContentTooLong
	case err != nil:
		return nil, err
	}
	if !in.MembershipChecked {
		if _, err := s.requireMember(dbc, in.ChatID, in.SenderID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	m := &types.Message{
		ChatID:        in.ChatID,
		SenderID:      in.SenderID,
		Content:       content,
		MessageType:   mt,
		AttachmentKey: in.AttachmentKey,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	var recipients []uuid.UUID
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		if in.ReplyToID != nil {
			parent, err := s.messageRepo.GetByID(inner, *in.ReplyToID)
			if err != nil {
				return err
			}
			if parent != nil && parent.ChatID == in.ChatID && !parent.IsDeleted {
				id := parent.ID
				m.ReplyToID = &id
			}
		}
		if err := s.messageRepo.Create(inner, m); err != nil {
			return err
		}
		members, err := s.partRepo.ListUserIDs(inner, in.ChatID)
		if err != nil {
			return err
		}
		if err := s.statusRepo.CreateForRecipients(inner, m, members); err != nil {
			return err
		}
		if err := s.partRepo.IncrementUnread(inner, in.ChatID, in.SenderID); err != nil {
			return err
		}
		if _, err := s.chatRepo.AdvanceLastMessage(inner, in.ChatID, m.ID, now); err != nil {
			return err
		}
		for _, id := range members {
			if id != in.SenderID {
				recipients = append(recipients, id)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist message")
		return nil, fmt.Errorf("persist message: %w", err)
	}
	observability.Current().IncMessageSent()

	full, err := s.messageRepo.GetByID(dbctx.Context{Ctx: ctx}, m.ID)
	if err != nil || full == nil {
		s.log.Warn("reload sent message failed", "message_id", m.ID, "error", err)
		full = m
	}

	view := protocol.RenderMessage(full, protocol.MessageOptions{MediaBaseURL: s.mediaBaseURL, Now: now})
	s.publish(ctx, realtime.ChatGroup(in.ChatID), protocol.NewNewMessage(view))

	if s.notifier != nil && len(recipients) > 0 {
		if err := s.notifier.NotifyMessage(ctx, full, recipients); err != nil {
			s.log.Warn("message notifications failed", "message_id", m.ID, "error", err)
		}
	}
	return full, nil
}

func (s *chatService) ListMessages(dbc dbctx.Context, userID, chatID uuid.UUID, before *chat.MessageCursor, limit int) ([]protocol.MessageView, error) {
	if _, err := s.requireMember(dbc, chatID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.messageRepo.List(dbc, chatID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	statuses, err := s.statusRepo.ListForUser(dbc, ids, userID)
	if err != nil {
		return nil, fmt.Errorf("load statuses: %w", err)
	}
	now := s.now()
	out := make([]protocol.MessageView, len(msgs))
	// Repo returns newest first; clients want chronological order.
	for i, m := range msgs {
		out[len(msgs)-1-i] = protocol.RenderMessage(m, protocol.MessageOptions{
			Viewer:       userID,
			MediaBaseURL: s.mediaBaseURL,
			Now:          now,
			Status:       statuses[m.ID],
		})
	}
	return out, nil
}

func (s *chatService) EditMessage(dbc dbctx.Context, userID, messageID uuid.UUID, content string) (*protocol.MessageView, error) {
	m, err := s.messageRepo.GetByID(dbc, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if m == nil || m.IsDeleted || m.SenderID != userID {
		return nil, ErrMessageNotFound
	}
	normalized, err := chat.NormalizeContent(content, m.MessageType, false)
	switch {
	case errors.Is(err, chat.ErrEmptyContent):
		return nil, ErrEmptyContent
	case errors.Is(err, chat.ErrContentTooLong):
		return nil, ErrContentTooLong
	case err != nil:
		return nil, err
	}
	now := s.now()
	ok, err := s.messageRepo.UpdateContent(dbc, messageID, userID, normalized, now)
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}
	if !ok {
		return nil, ErrMessageNotFound
	}
	m.Content, m.IsEdited, m.UpdatedAt = normalized, true, now

	view := protocol.RenderMessage(m, protocol.MessageOptions{MediaBaseURL: s.mediaBaseURL, Now: now})
	s.publish(dbc.Ctx, realtime.ChatGroup(m.ChatID), protocol.NewMessageUpdated(view))
	own := view.ForViewer(userID, "")
	return &own, nil
}

func (s *chatService) DeleteMessage(dbc dbctx.Context, userID, messageID uuid.UUID) error {
	m, err := s.messageRepo.GetByID(dbc, messageID)
	if err != nil {
		return fmt.Errorf("load message: %w", err)
	}
	if m == nil || m.IsDeleted || m.SenderID != userID {
		return ErrMessageNotFound
	}
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		ok, err := s.messageRepo.SoftDelete(inner, messageID, userID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrMessageNotFound
		}
		latest, err := s.messageRepo.LatestVisible(inner, m.ChatID)
		if err != nil {
			return err
		}
		var lastID *uuid.UUID
		if latest != nil {
			id := latest.ID
			lastID = &id
		}
		return s.chatRepo.SetLastMessage(inner, m.ChatID, lastID)
	})
	if err != nil {
		if errors.Is(err, ErrMessageNotFound) {
			return err
		}
		return fmt.Errorf("delete message: %w", err)
	}
	s.publish(dbc.Ctx, realtime.ChatGroup(m.ChatID), protocol.NewMessageDeleted(m.ID, m.ChatID))
	return nil
}

func (s *chatService) MarkStatus(dbc dbctx.Context, userID, chatID, messageID uuid.UUID, status chat.DeliveryStatus) (*types.MessageStatus, error) {
	if status != chat.StatusDelivered && status != chat.StatusRead {
		return nil, ErrInvalidStatus
	}
	m, err := s.messageRepo.GetByID(dbc, messageID)
	if err != nil {
		return nil, fmt.Errorf("load message: %w", err)
	}
	if m == nil || (chatID != uuid.Nil && m.ChatID != chatID) {
		return nil, ErrMessageNotFound
	}
	if chatID == uuid.Nil {
		if _, err := s.requireMember(dbc, m.ChatID, userID); err != nil {
			return nil, err
		}
	}
	if m.SenderID == userID {
		return nil, ErrOwnMessage
	}

	var row *types.MessageStatus
	changed := false
	err = inTx(s.db, dbc, func(inner dbctx.Context) error {
		if err := s.statusRepo.Ensure(inner, m.ID, m.ChatID, userID); err != nil {
			return err
		}
		var err error
		changed, err = s.statusRepo.Advance(inner, m.ID, userID, status, s.now())
		if err != nil {
			return err
		}
		if changed && status == chat.StatusRead {
			if err := s.partRepo.DecrementUnread(inner, m.ChatID, userID); err != nil {
				return err
			}
		}
		row, err = s.statusRepo.Get(inner, m.ID, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update message status: %w", err)
	}
	if row == nil {
		return nil, fmt.Errorf("update message status: row missing after ensure")
	}
	observability.Current().IncStatusUpdate(string(status), changed)

	// Always report the persisted state so a late "delivered" after "read"
	// cannot make clients regress.
	frame := protocol.NewMessageStatus(m.ID, string(row.Status), userID, row.Timestamp())
	s.publish(dbc.Ctx, realtime.ChatGroup(m.ChatID), frame)
	return row, nil
}
