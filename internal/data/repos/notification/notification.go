package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type ListQuery struct {
	RecipientID uuid.UUID
	UnreadOnly  bool
	Limit       int
	Offset      int
}

type Stats struct {
	Total  int64          `json:"total_notifications"`
	Unread int64          `json:"unread_notifications"`
	Recent int64          `json:"recent_notifications"`
	ByType map[string]int `json:"types_breakdown"`
}

type NotificationRepo interface {
	Create(dbc dbctx.Context, n *types.Notification) error
	Get(dbc dbctx.Context, id, recipientID uuid.UUID) (*types.Notification, error)
	List(dbc dbctx.Context, q ListQuery) ([]*types.Notification, int64, error)
	MarkRead(dbc dbctx.Context, id, recipientID uuid.UUID, at time.Time) (bool, error)
	MarkAllRead(dbc dbctx.Context, recipientID uuid.UUID, at time.Time) (int64, error)
	CountUnread(dbc dbctx.Context, recipientID uuid.UUID) (int64, error)
	Delete(dbc dbctx.Context, id, recipientID uuid.UUID) (bool, error)
	DeleteRead(dbc dbctx.Context, recipientID uuid.UUID) (int64, error)
	Stats(dbc dbctx.Context, recipientID uuid.UUID, since time.Time) (*Stats, error)
}

type notificationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewNotificationRepo(db *gorm.DB, log *logger.Logger) NotificationRepo {
	return &notificationRepo{db: db, log: log.With("repo", "NotificationRepo")}
}

func (r *notificationRepo) Create(dbc dbctx.Context, n *types.Notification) error {
	return dbc.DB(r.db).Omit("Sender").Create(n).Error
}

// Get scopes the lookup to the recipient so one user cannot read another's.
func (r *notificationRepo) Get(dbc dbctx.Context, id, recipientID uuid.UUID) (*types.Notification, error) {
	var n types.Notification
	err := dbc.DB(r.db).Preload("Sender").
		Where("id = ? AND recipient_id = ?", id, recipientID).
		First(&n).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *notificationRepo) List(dbc dbctx.Context, q ListQuery) ([]*types.Notification, int64, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	base := dbc.DB(r.db).Model(&types.Notification{}).Where("recipient_id = ?", q.RecipientID)
	if q.UnreadOnly {
		base = base.Where("is_read = ?", false)
	}
	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var out []*types.Notification
	if err := base.Session(&gorm.Session{}).
		Preload("Sender").
		Order("created_at DESC").
		Limit(q.Limit).
		Offset(q.Offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *notificationRepo) MarkRead(dbc dbctx.Context, id, recipientID uuid.UUID, at time.Time) (bool, error) {
	res := dbc.DB(r.db).Model(&types.Notification{}).
		Where("id = ? AND recipient_id = ? AND is_read = ?", id, recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *notificationRepo) MarkAllRead(dbc dbctx.Context, recipientID uuid.UUID, at time.Time) (int64, error) {
	res := dbc.DB(r.db).Model(&types.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) CountUnread(dbc dbctx.Context, recipientID uuid.UUID) (int64, error) {
	var n int64
	err := dbc.DB(r.db).Model(&types.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&n).Error
	return n, err
}

func (r *notificationRepo) Delete(dbc dbctx.Context, id, recipientID uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).Where("id = ? AND recipient_id = ?", id, recipientID).Delete(&types.Notification{})
	return res.RowsAffected > 0, res.Error
}

func (r *notificationRepo) DeleteRead(dbc dbctx.Context, recipientID uuid.UUID) (int64, error) {
	res := dbc.DB(r.db).Where("recipient_id = ? AND is_read = ?", recipientID, true).Delete(&types.Notification{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepo) Stats(dbc dbctx.Context, recipientID uuid.UUID, since time.Time) (*Stats, error) {
	st := &Stats{ByType: map[string]int{}}
	base := func() *gorm.DB {
		return dbc.DB(r.db).Model(&types.Notification{}).Where("recipient_id = ?", recipientID)
	}
	if err := base().Count(&st.Total).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_read = ?", false).Count(&st.Unread).Error; err != nil {
		return nil, err
	}
	if err := base().Where("created_at >= ?", since).Count(&st.Recent).Error; err != nil {
		return nil, err
	}
	var rows []struct {
		NotificationType string
		N                int
	}
	if err := base().
		Select("notification_type, COUNT(*) AS n").
		Group("notification_type").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		st.ByType[row.NotificationType] = row.N
	}
	return st, nil
}
