package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

// MessageStatusRepo writes are always scoped by (message_id, user_id) so a
// caller can only touch the row of the identity it passes in.
type MessageStatusRepo interface {
	CreateForRecipients(dbc dbctx.Context, m *types.Message, recipients []uuid.UUID) error
	Ensure(dbc dbctx.Context, messageID, chatID, userID uuid.UUID) error
	Advance(dbc dbctx.Context, messageID, userID uuid.UUID, next types.DeliveryStatus, at time.Time) (bool, error)
	Get(dbc dbctx.Context, messageID, userID uuid.UUID) (*types.MessageStatus, error)
	ListForUser(dbc dbctx.Context, messageIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]*types.MessageStatus, error)
	CountUnread(dbc dbctx.Context, chatID, userID uuid.UUID) (int64, error)
}

type messageStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageStatusRepo(db *gorm.DB, log *logger.Logger) MessageStatusRepo {
	return &messageStatusRepo{db: db, log: log.With("repo", "MessageStatusRepo")}
}

func (r *messageStatusRepo) CreateForRecipients(dbc dbctx.Context, m *types.Message, recipients []uuid.UUID) error {
	rows := make([]*types.MessageStatus, 0, len(recipients))
	for _, uid := range recipients {
		if uid == m.SenderID {
			continue
		}
		rows = append(rows, &types.MessageStatus{
			MessageID: m.ID,
			ChatID:    m.ChatID,
			UserID:    uid,
			Status:    types.StatusSent,
			CreatedAt: m.CreatedAt,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return dbc.DB(r.db).CreateInBatches(&rows, 200).Error
}

// Ensure creates a sent row for the recipient if none exists yet, e.g. for a
// participant who joined after the message was sent.
func (r *messageStatusRepo) Ensure(dbc dbctx.Context, messageID, chatID, userID uuid.UUID) error {
	row := &types.MessageStatus{
		MessageID: messageID,
		ChatID:    chatID,
		UserID:    userID,
		Status:    types.StatusSent,
		CreatedAt: time.Now().UTC(),
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(row).Error
}

const advanceAttempts = 3

// Advance moves the row forward with MessageStatus.Advance, then writes it
// back only if nobody else changed the status in between. A lost race is
// retried against the fresh row. It reports whether the row changed.
func (r *messageStatusRepo) Advance(dbc dbctx.Context, messageID, userID uuid.UUID, next types.DeliveryStatus, at time.Time) (bool, error) {
	for attempt := 0; attempt < advanceAttempts; attempt++ {
		row, err := r.Get(dbc, messageID, userID)
		if err != nil || row == nil {
			return false, err
		}
		prev := row.Status
		if !row.Advance(next, at) {
			return false, nil
		}
		res := dbc.DB(r.db).Model(&types.MessageStatus{}).
			Where("message_id = ? AND user_id = ? AND status = ?", messageID, userID, prev).
			Updates(map[string]interface{}{
				"status":       row.Status,
				"delivered_at": row.DeliveredAt,
				"read_at":      row.ReadAt,
			})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return true, nil
		}
	}
	r.log.Warn("status advance kept losing races", "message_id", messageID, "user_id", userID, "next", next)
	return false, nil
}

func (r *messageStatusRepo) Get(dbc dbctx.Context, messageID, userID uuid.UUID) (*types.MessageStatus, error) {
	var st types.MessageStatus
	err := dbc.DB(r.db).Where("message_id = ? AND user_id = ?", messageID, userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (r *messageStatusRepo) ListForUser(dbc dbctx.Context, messageIDs []uuid.UUID, userID uuid.UUID) (map[uuid.UUID]*types.MessageStatus, error) {
	out := make(map[uuid.UUID]*types.MessageStatus, len(messageIDs))
	if len(messageIDs) == 0 {
		return out, nil
	}
	var rows []*types.MessageStatus
	if err := dbc.DB(r.db).
		Where("message_id IN ? AND user_id = ?", messageIDs, userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.MessageID] = row
	}
	return out, nil
}

func (r *messageStatusRepo) CountUnread(dbc dbctx.Context, chatID, userID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.MessageStatus{}).
		Where("chat_id = ? AND user_id = ? AND status IN ?", chatID, userID,
			[]types.DeliveryStatus{types.StatusSent, types.StatusDelivered}).
		Count(&n).Error
	return n, err
}
