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

type ParticipantRepo interface {
	Add(dbc dbctx.Context, chatID uuid.UUID, userIDs []uuid.UUID, at time.Time) error
	Remove(dbc dbctx.Context, chatID, userID uuid.UUID) (bool, error)
	Get(dbc dbctx.Context, chatID, userID uuid.UUID) (*types.Participant, error)
	IsParticipant(dbc dbctx.Context, chatID, userID uuid.UUID) (bool, error)
	ListUserIDs(dbc dbctx.Context, chatID uuid.UUID) ([]uuid.UUID, error)
	ListByChats(dbc dbctx.Context, chatIDs []uuid.UUID) ([]*types.Participant, error)
	Count(dbc dbctx.Context, chatID uuid.UUID) (int64, error)
	IncrementUnread(dbc dbctx.Context, chatID, exceptUserID uuid.UUID) error
	DecrementUnread(dbc dbctx.Context, chatID, userID uuid.UUID) error
	SetUnread(dbc dbctx.Context, chatID, userID uuid.UUID, n int64) error
}

type participantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewParticipantRepo(db *gorm.DB, log *logger.Logger) ParticipantRepo {
	return &participantRepo{db: db, log: log.With("repo", "ParticipantRepo")}
}

func (r *participantRepo) Add(dbc dbctx.Context, chatID uuid.UUID, userIDs []uuid.UUID, at time.Time) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]*types.Participant, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, &types.Participant{ChatID: chatID, UserID: id, JoinedAt: at})
	}
	return dbc.DB(r.db).Create(&rows).Error
}

func (r *participantRepo) Remove(dbc dbctx.Context, chatID, userID uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).Where("chat_id = ? AND user_id = ?", chatID, userID).Delete(&types.Participant{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *participantRepo) Get(dbc dbctx.Context, chatID, userID uuid.UUID) (*types.Participant, error) {
	var p types.Participant
	err := dbc.DB(r.db).Where("chat_id = ? AND user_id = ?", chatID, userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepo) IsParticipant(dbc dbctx.Context, chatID, userID uuid.UUID) (bool, error) {
	if chatID == uuid.Nil || userID == uuid.Nil {
		return false, nil
	}
	var n int64
	if err := dbc.DB(r.db).Model(&types.Participant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *participantRepo) ListUserIDs(dbc dbctx.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := dbc.DB(r.db).Model(&types.Participant{}).
		Where("chat_id = ?", chatID).
		Order("joined_at ASC").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *participantRepo) ListByChats(dbc dbctx.Context, chatIDs []uuid.UUID) ([]*types.Participant, error) {
	var out []*types.Participant
	if len(chatIDs) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("chat_id IN ?", chatIDs).
		Order("joined_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *participantRepo) Count(dbc dbctx.Context, chatID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Participant{}).Where("chat_id = ?", chatID).Count(&n).Error
	return n, err
}

func (r *participantRepo) IncrementUnread(dbc dbctx.Context, chatID, exceptUserID uuid.UUID) error {
	return dbc.DB(r.db).Model(&types.Participant{}).
		Where("chat_id = ? AND user_id <> ?", chatID, exceptUserID).
		UpdateColumn("unread_count", gorm.Expr("unread_count + 1")).Error
}

// DecrementUnread never drops the counter below zero.
func (r *participantRepo) DecrementUnread(dbc dbctx.Context, chatID, userID uuid.UUID) error {
	return dbc.DB(r.db).Model(&types.Participant{}).
		Where("chat_id = ? AND user_id = ? AND unread_count > 0", chatID, userID).
		UpdateColumn("unread_count", gorm.Expr("unread_count - 1")).Error
}

func (r *participantRepo) SetUnread(dbc dbctx.Context, chatID, userID uuid.UUID, n int64) error {
	if n < 0 {
		n = 0
	}
	return dbc.DB(r.db).Model(&types.Participant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		UpdateColumn("unread_count", n).Error
}
