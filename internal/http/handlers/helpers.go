package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/platform/apierr"
	"github.com/yungbote/pulse-backend/internal/platform/ctxutil"
	"github.com/yungbote/pulse-backend/internal/platform/dbctx"
)

var errInvalidID = apierr.BadRequest("invalid_id", "Invalid id")

func requestUser(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func dbcOf(c *gin.Context) dbctx.Context {
	return dbctx.New(c.Request.Context())
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		return uuid.Nil, errInvalidID
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, def int) int {
	if v := strings.TrimSpace(c.Query(name)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
