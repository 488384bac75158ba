package services

import (
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
)

// inTx runs fn inside dbc's transaction, or a new one when dbc has none.
func inTx(db *gorm.DB, dbc dbctx.Context, fn func(inner dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
	})
}
