package chat

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type MessageRepo interface {
	Create(dbc dbctx.Context, m *types.Message) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Message, error)
	// List returns visible messages newest first, optionally strictly after
	// before in that order.
	List(dbc dbctx.Context, chatID uuid.UUID, before *types.MessageCursor, limit int) ([]*types.Message, error)
	LatestVisible(dbc dbctx.Context, chatID uuid.UUID) (*types.Message, error)
	UpdateContent(dbc dbctx.Context, id, senderID uuid.UUID, content string, at time.Time) (bool, error)
	SoftDelete(dbc dbctx.Context, id, senderID uuid.UUID, at time.Time) (bool, error)
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, log *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: log.With("repo", "MessageRepo")}
}

func (r *messageRepo) withRefs(txx *gorm.DB) *gorm.DB {
	return txx.Preload("Sender").Preload("ReplyTo").Preload("ReplyTo.Sender")
}

func (r *messageRepo) Create(dbc dbctx.Context, m *types.Message) error {
	return dbc.DB(r.db).Omit("Sender", "ReplyTo").Create(m).Error
}

func (r *messageRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Message, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var m types.Message
	err := r.withRefs(dbc.DB(r.db)).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Message, error) {
	var out []*types.Message
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).Preload("Sender").Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) List(dbc dbctx.Context, chatID uuid.UUID, before *types.MessageCursor, limit int) ([]*types.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := r.withRefs(dbc.DB(r.db)).
		Where("chat_id = ? AND is_deleted = ?", chatID, false)
	switch {
	case before == nil:
	case before.ID == uuid.Nil:
		q = q.Where("created_at < ?", before.CreatedAt)
	default:
		q = q.Where("(created_at < ? OR (created_at = ? AND id < ?))", before.CreatedAt, before.CreatedAt, before.ID)
	}
	var out []*types.Message
	if err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) LatestVisible(dbc dbctx.Context, chatID uuid.UUID) (*types.Message, error) {
	var m types.Message
	err := dbc.DB(r.db).
		Where("chat_id = ? AND is_deleted = ?", chatID, false).
		Order("created_at DESC").
		Order("id DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *messageRepo) UpdateContent(dbc dbctx.Context, id, senderID uuid.UUID, content string, at time.Time) (bool, error) {
	res := dbc.DB(r.db).Model(&types.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", id, senderID, false).
		Updates(map[string]interface{}{
			"content":    content,
			"is_edited":  true,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *messageRepo) SoftDelete(dbc dbctx.Context, id, senderID uuid.UUID, at time.Time) (bool, error) {
	res := dbc.DB(r.db).Model(&types.Message{}).
		Where("id = ? AND sender_id = ? AND is_deleted = ?", id, senderID, false).
		Updates(map[string]interface{}{
			"is_deleted": true,
			"deleted_at": at,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
