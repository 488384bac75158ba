package chat

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pulse-backend/internal/domain/chat"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type ChatRepo interface {
	Create(dbc dbctx.Context, c *types.Chat, members []uuid.UUID) (*types.Chat, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chat, error)
	GetByDirectKey(dbc dbctx.Context, key string) (*types.Chat, error)
	ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Chat, error)
	UpdateName(dbc dbctx.Context, id uuid.UUID, name string) error
	// AdvanceLastMessage moves the cached last message forward only when at is
	// not older than the stored last_activity.
	AdvanceLastMessage(dbc dbctx.Context, chatID, messageID uuid.UUID, at time.Time) (bool, error)
	SetLastMessage(dbc dbctx.Context, chatID uuid.UUID, messageID *uuid.UUID) error
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, log *logger.Logger) ChatRepo {
	return &chatRepo{db: db, log: log.With("repo", "ChatRepo")}
}

func (r *chatRepo) Create(dbc dbctx.Context, c *types.Chat, members []uuid.UUID) (*types.Chat, error) {
	if c == nil {
		return nil, fmt.Errorf("missing chat")
	}
	txx := dbc.DB(r.db)
	if err := txx.Omit("Participants").Create(c).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return c, nil
	}
	now := c.LastActivity
	rows := make([]*types.Participant, 0, len(members))
	for _, m := range members {
		rows = append(rows, &types.Participant{ChatID: c.ID, UserID: m, JoinedAt: now})
	}
	if err := txx.Create(&rows).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *chatRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chat, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var c types.Chat
	err := dbc.DB(r.db).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *chatRepo) GetByDirectKey(dbc dbctx.Context, key string) (*types.Chat, error) {
	if key == "" {
		return nil, nil
	}
	var c types.Chat
	err := dbc.DB(r.db).Where("direct_key = ?", key).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *chatRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Chat, error) {
	var out []*types.Chat
	if userID == uuid.Nil {
		return out, nil
	}
	sub := dbc.DB(r.db).Model(&types.Participant{}).Select("chat_id").Where("user_id = ?", userID)
	if err := dbc.DB(r.db).
		Where("id IN (?)", sub).
		Order("last_activity DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chatRepo) UpdateName(dbc dbctx.Context, id uuid.UUID, name string) error {
	return dbc.DB(r.db).Model(&types.Chat{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"chat_name": name, "updated_at": time.Now().UTC()}).Error
}

func (r *chatRepo) AdvanceLastMessage(dbc dbctx.Context, chatID, messageID uuid.UUID, at time.Time) (bool, error) {
	res := dbc.DB(r.db).Model(&types.Chat{}).
		Where("id = ? AND last_activity <= ?", chatID, at).
		Updates(map[string]interface{}{
			"last_message_id": messageID,
			"last_activity":   at,
			"updated_at":      at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *chatRepo) SetLastMessage(dbc dbctx.Context, chatID uuid.UUID, messageID *uuid.UUID) error {
	return dbc.DB(r.db).Model(&types.Chat{}).
		Where("id = ?", chatID).
		Update("last_message_id", messageID).Error
}

// Delete removes the chat together with its participants, messages and
// message statuses.
func (r *chatRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	txx := dbc.DB(r.db)
	if err := txx.Where("chat_id = ?", id).Delete(&types.MessageStatus{}).Error; err != nil {
		return err
	}
	if err := txx.Where("chat_id = ?", id).Delete(&types.Message{}).Error; err != nil {
		return err
	}
	if err := txx.Where("chat_id = ?", id).Delete(&types.Participant{}).Error; err != nil {
		return err
	}
	return txx.Where("id = ?", id).Delete(&types.Chat{}).Error
}
