package notification

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/pulse-backend/internal/domain/notification"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type SettingsRepo interface {
	// Get returns nil when the user never saved preferences.
	Get(dbc dbctx.Context, userID uuid.UUID) (*types.Settings, error)
	Upsert(dbc dbctx.Context, s *types.Settings) error
}

type settingsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSettingsRepo(db *gorm.DB, log *logger.Logger) SettingsRepo {
	return &settingsRepo{db: db, log: log.With("repo", "NotificationSettingsRepo")}
}

func (r *settingsRepo) Get(dbc dbctx.Context, userID uuid.UUID) (*types.Settings, error) {
	var s types.Settings
	err := dbc.DB(r.db).Where("user_id = ?", userID).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepo) Upsert(dbc dbctx.Context, s *types.Settings) error {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"likes_enabled",
				"comments_enabled",
				"follows_enabled",
				"mentions_enabled",
				"messages_enabled",
				"email_notifications",
				"push_notifications",
				"updated_at",
			}),
		}).
		Create(s).Error
}
