package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/data/repos"
	notificationrepo "github.com/yungbote/pulse-backend/internal/data/repos/notification"
	types "github.com/yungbote/pulse-backend/internal/domain"
	"github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/observability"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

type CreateNotificationInput struct {
	RecipientID uuid.UUID
	SenderID    *uuid.UUID
	Type        notification.Type
	Title       string
	Message     string
	Cause       *notification.Cause
}

type LikeEvent struct {
	PostID       uuid.UUID `json:"post_id" binding:"required"`
	PostAuthorID uuid.UUID `json:"post_author_id" binding:"required"`
	ActorID      uuid.UUID `json:"actor_id" binding:"required"`
	PostContent  string    `json:"post_content"`
	PostImageURL string    `json:"post_image_url"`
}

type CommentEvent struct {
	CommentID    uuid.UUID `json:"comment_id" binding:"required"`
	PostID       uuid.UUID `json:"post_id" binding:"required"`
	PostAuthorID uuid.UUID `json:"post_author_id" binding:"required"`
	ActorID      uuid.UUID `json:"actor_id" binding:"required"`
	Content      string    `json:"content"`
	PostContent  string    `json:"post_content"`
}

type FollowEvent struct {
	FollowID    uuid.UUID `json:"follow_id" binding:"required"`
	FollowerID  uuid.UUID `json:"follower_id" binding:"required"`
	FollowingID uuid.UUID `json:"following_id" binding:"required"`
}

type SystemEvent struct {
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Message     string    `json:"message" binding:"required"`
}

type ListNotificationsQuery struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

type NotificationPage struct {
	Notifications []protocol.NotificationView `json:"notifications"`
	Total         int64                       `json:"total"`
	Limit         int                         `json:"limit"`
	Offset        int                         `json:"offset"`
}

// NotificationService is the notification dispatcher plus the per-user
// read side. Create never fails because of a realtime publish.
type NotificationService interface {
	// Create returns nil without error when the notification is suppressed
	// by the recipient's settings or because sender and recipient match.
	Create(ctx context.Context, in CreateNotificationInput) (*types.Notification, error)
	NotifyLike(ctx context.Context, ev LikeEvent) error
	NotifyComment(ctx context.Context, ev CommentEvent) error
	NotifyFollow(ctx context.Context, ev FollowEvent) error
	NotifySystem(ctx context.Context, ev SystemEvent) (*types.Notification, error)
	NotifyMessage(ctx context.Context, m *types.Message, recipients []uuid.UUID) error

	List(dbc dbctx.Context, userID uuid.UUID, q ListNotificationsQuery) (*NotificationPage, error)
	Get(dbc dbctx.Context, userID, id uuid.UUID) (*protocol.NotificationView, error)
	// MarkRead is idempotent; it reports whether the row changed.
	MarkRead(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
	MarkAllRead(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	UnreadCount(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	Delete(dbc dbctx.Context, userID, id uuid.UUID) error
	ClearRead(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	Stats(dbc dbctx.Context, userID uuid.UUID) (*notificationrepo.Stats, error)

	GetSettings(dbc dbctx.Context, userID uuid.UUID) (*notification.Settings, error)
	UpdateSettings(dbc dbctx.Context, userID uuid.UUID, patch notification.SettingsPatch) (*notification.Settings, error)
}

type notificationService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	notifRepo    repos.NotificationRepo
	settingsRepo repos.NotificationSettingsRepo
	broadcaster  Broadcaster
	now          func() time.Time
}

func NewNotificationService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	notifRepo repos.NotificationRepo,
	settingsRepo repos.NotificationSettingsRepo,
	broadcaster Broadcaster,
) NotificationService {
	return &notificationService{
		db:           db,
		log:          log.With("service", "NotificationService"),
		userRepo:     userRepo,
		notifRepo:    notifRepo,
		settingsRepo: settingsRepo,
		broadcaster:  broadcaster,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *notificationService) settingsFor(dbc dbctx.Context, userID uuid.UUID) (notification.Settings, error) {
	st, err := s.settingsRepo.Get(dbc, userID)
	if err != nil {
		return notification.Settings{}, err
	}
	if st == nil {
		return notification.Defaults(userID), nil
	}
	return *st, nil
}

func (s *notificationService) Create(ctx context.Context, in CreateNotificationInput) (*types.Notification, error) {
	ctx, span := tracer.Start(ctx, "NotificationService.Create")
	defer span.End()
	span.SetAttributes(attribute.String("notification.type", string(in.Type)))

	if in.RecipientID == uuid.Nil || !in.Type.Valid() {
		return nil, ErrInvalidNotifyInput
	}
	dbc := dbctx.Context{Ctx: ctx}

	st, err := s.settingsFor(dbc, in.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("load notification settings: %w", err)
	}
	if !st.Allows(in.Type) {
		observability.Current().IncNotification(string(in.Type), "disabled")
		return nil, nil
	}
	if in.SenderID != nil && *in.SenderID == in.RecipientID {
		observability.Current().IncNotification(string(in.Type), "self")
		return nil, nil
	}

	n := &types.Notification{
		RecipientID: in.RecipientID,
		SenderID:    in.SenderID,
		Type:        in.Type,
		Title:       notification.Truncate(strings.TrimSpace(in.Title), notification.MaxTitleLength),
		Message:     notification.Truncate(strings.TrimSpace(in.Message), notification.MaxMessageLength),
		CreatedAt:   s.now(),
	}
	n.SetCause(in.Cause)
	if err := s.notifRepo.Create(dbc, n); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("persist notification: %w", err)
	}
	observability.Current().IncNotification(string(in.Type), "created")

	if in.SenderID != nil {
		if sender, err := s.userRepo.GetByID(dbc, *in.SenderID); err == nil {
			n.Sender = sender
		}
	}
	s.pushNew(ctx, n)
	return n, nil
}

// pushNew publishes the notification and the new unread count. Failures are
// logged only; the row is already committed.
func (s *notificationService) pushNew(ctx context.Context, n *types.Notification) {
	if s.broadcaster == nil {
		return
	}
	group := realtime.NotificationGroup(n.RecipientID)
	view := protocol.RenderNotification(n, s.now())
	if err := s.broadcaster.Publish(ctx, group, protocol.NewNewNotification(view)); err != nil {
		s.log.Warn("publish new_notification failed", "recipient_id", n.RecipientID, "error", err)
		return
	}
	s.pushUnreadCount(ctx, n.RecipientID)
}

func (s *notificationService) pushUnreadCount(ctx context.Context, userID uuid.UUID) {
	if s.broadcaster == nil {
		return
	}
	count, err := s.notifRepo.CountUnread(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		s.log.Warn("count unread failed", "user_id", userID, "error", err)
		return
	}
	if err := s.broadcaster.Publish(ctx, realtime.NotificationGroup(userID), protocol.NewUnreadCountUpdated(count)); err != nil {
		s.log.Warn("publish unread_count_updated failed", "user_id", userID, "error", err)
	}
}

func (s *notificationService) actor(ctx context.Context, id uuid.UUID) (*types.User, error) {
	u, err := s.userRepo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if u == nil || !u.IsActive {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *notificationService) NotifyLike(ctx context.Context, ev LikeEvent) error {
	u, err := s.actor(ctx, ev.ActorID)
	if err != nil {
		return err
	}
	sender := u.ID
	_, err = s.Create(ctx, CreateNotificationInput{
		RecipientID: ev.PostAuthorID,
		SenderID:    &sender,
		Type:        notification.TypeLike,
		Title:       "New Like",
		Message:     fmt.Sprintf("%s liked your post", u.Username),
		Cause:       notification.PostCause(ev.PostID, ev.PostContent, ev.PostImageURL),
	})
	return err
}

func (s *notificationService) NotifyComment(ctx context.Context, ev CommentEvent) error {
	u, err := s.actor(ctx, ev.ActorID)
	if err != nil {
		return err
	}
	sender := u.ID
	cause := notification.CommentCause(ev.CommentID, ev.Content, ev.PostID, ev.PostContent)
	if _, err := s.Create(ctx, CreateNotificationInput{
		RecipientID: ev.PostAuthorID,
		SenderID:    &sender,
		Type:        notification.TypeComment,
		Title:       "New Comment",
		Message:     fmt.Sprintf("%s commented on your post", u.Username),
		Cause:       cause,
	}); err != nil {
		return err
	}

	usernames := MentionedUsernames(ev.Content)
	if len(usernames) == 0 {
		return nil
	}
	mentioned, err := s.userRepo.GetByUsernames(dbctx.Context{Ctx: ctx}, usernames)
	if err != nil {
		return fmt.Errorf("resolve mentions: %w", err)
	}
	for _, m := range mentioned {
		if _, err := s.Create(ctx, CreateNotificationInput{
			RecipientID: m.ID,
			SenderID:    &sender,
			Type:        notification.TypeMention,
			Title:       "You were mentioned",
			Message:     fmt.Sprintf("%s mentioned you in a comment", u.Username),
			Cause:       cause,
		}); err != nil {
			s.log.Warn("mention notification failed", "recipient_id", m.ID, "error", err)
		}
	}
	return nil
}

// MentionedUsernames returns the distinct @usernames in content, in order.
func MentionedUsernames(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		name := strings.ToLower(m[1])
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, m[1])
	}
	return out
}

func (s *notificationService) NotifyFollow(ctx context.Context, ev FollowEvent) error {
	u, err := s.actor(ctx, ev.FollowerID)
	if err != nil {
		return err
	}
	sender := u.ID
	_, err = s.Create(ctx, CreateNotificationInput{
		RecipientID: ev.FollowingID,
		SenderID:    &sender,
		Type:        notification.TypeFollow,
		Title:       "New Follower",
		Message:     fmt.Sprintf("%s started following you", u.Username),
		Cause:       notification.FollowCause(ev.FollowID, ev.FollowerID, ev.FollowingID),
	})
	return err
}

func (s *notificationService) NotifySystem(ctx context.Context, ev SystemEvent) (*types.Notification, error) {
	if strings.TrimSpace(ev.Title) == "" || strings.TrimSpace(ev.Message) == "" {
		return nil, ErrInvalidNotifyInput
	}
	return s.Create(ctx, CreateNotificationInput{
		RecipientID: ev.RecipientID,
		Type:        notification.TypeSystem,
		Title:       ev.Title,
		Message:     ev.Message,
	})
}

func (s *notificationService) NotifyMessage(ctx context.Context, m *types.Message, recipients []uuid.UUID) error {
	if m == nil {
		return nil
	}
	username := ""
	if m.Sender != nil {
		username = m.Sender.Username
	} else {
		u, err := s.actor(ctx, m.SenderID)
		if err != nil {
			return err
		}
		username = u.Username
	}
	sender := m.SenderID
	cause := notification.MessageCause(m.ID, m.ChatID, m.Content)
	var firstErr error
	for _, r := range recipients {
		_, err := s.Create(ctx, CreateNotificationInput{
			RecipientID: r,
			SenderID:    &sender,
			Type:        notification.TypeMessage,
			Title:       "New Message",
			Message:     fmt.Sprintf("%s sent you a message", username),
			Cause:       cause,
		})
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *notificationService) List(dbc dbctx.Context, userID uuid.UUID, q ListNotificationsQuery) (*NotificationPage, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	rows, total, err := s.notifRepo.List(dbc, notificationrepo.ListQuery{
		RecipientID: userID,
		UnreadOnly:  q.UnreadOnly,
		Limit:       q.Limit,
		Offset:      q.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	now := s.now()
	page := &NotificationPage{
		Notifications: make([]protocol.NotificationView, 0, len(rows)),
		Total:         total,
		Limit:         q.Limit,
		Offset:        q.Offset,
	}
	for _, n := range rows {
		page.Notifications = append(page.Notifications, protocol.RenderNotification(n, now))
	}
	return page, nil
}

func (s *notificationService) Get(dbc dbctx.Context, userID, id uuid.UUID) (*protocol.NotificationView, error) {
	n, err := s.notifRepo.Get(dbc, id, userID)
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	if n == nil {
		return nil, ErrNotificationNotFound
	}
	v := protocol.RenderNotification(n, s.now())
	return &v, nil
}

func (s *notificationService) MarkRead(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	n, err := s.notifRepo.Get(dbc, id, userID)
	if err != nil {
		return false, fmt.Errorf("get notification: %w", err)
	}
	if n == nil {
		return false, ErrNotificationNotFound
	}
	changed, err := s.notifRepo.MarkRead(dbc, id, userID, s.now())
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	if changed && s.broadcaster != nil {
		group := realtime.NotificationGroup(userID)
		if err := s.broadcaster.Publish(dbc.Ctx, group, protocol.NewNotificationUpdated(id, true)); err != nil {
			s.log.Warn("publish notification_updated failed", "user_id", userID, "error", err)
		}
		s.pushUnreadCount(dbc.Ctx, userID)
	}
	return changed, nil
}

func (s *notificationService) MarkAllRead(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	n, err := s.notifRepo.MarkAllRead(dbc, userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	if n > 0 {
		s.pushUnreadCount(dbc.Ctx, userID)
	}
	return n, nil
}

func (s *notificationService) UnreadCount(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	return s.notifRepo.CountUnread(dbc, userID)
}

func (s *notificationService) Delete(dbc dbctx.Context, userID, id uuid.UUID) error {
	n, err := s.notifRepo.Get(dbc, id, userID)
	if err != nil {
		return fmt.Errorf("get notification: %w", err)
	}
	if n == nil {
		return ErrNotificationNotFound
	}
	if _, err := s.notifRepo.Delete(dbc, id, userID); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	if !n.IsRead {
		s.pushUnreadCount(dbc.Ctx, userID)
	}
	return nil
}

func (s *notificationService) ClearRead(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	n, err := s.notifRepo.DeleteRead(dbc, userID)
	if err != nil {
		return 0, fmt.Errorf("clear read notifications: %w", err)
	}
	return n, nil
}

func (s *notificationService) Stats(dbc dbctx.Context, userID uuid.UUID) (*notificationrepo.Stats, error) {
	st, err := s.notifRepo.Stats(dbc, userID, s.now().Add(-24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}
	return st, nil
}

func (s *notificationService) GetSettings(dbc dbctx.Context, userID uuid.UUID) (*notification.Settings, error) {
	st, err := s.settingsFor(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("load notification settings: %w", err)
	}
	return &st, nil
}

func (s *notificationService) UpdateSettings(dbc dbctx.Context, userID uuid.UUID, patch notification.SettingsPatch) (*notification.Settings, error) {
	var out notification.Settings
	err := inTx(s.db, dbc, func(inner dbctx.Context) error {
		current, err := s.settingsFor(inner, userID)
		if err != nil {
			return err
		}
		next := patch.Apply(current)
		if err := next.Validate(); err != nil {
			return ErrAllTypesDisabled
		}
		next.UpdatedAt = s.now()
		if next.CreatedAt.IsZero() {
			next.CreatedAt = next.UpdatedAt
		}
		if err := s.settingsRepo.Upsert(inner, &next); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrAllTypesDisabled) {
			return nil, err
		}
		return nil, fmt.Errorf("update notification settings: %w", err)
	}
	return &out, nil
}
