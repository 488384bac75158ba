package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulse-backend/internal/http/response"
)

const headerInternalKey = "X-Internal-Key"

var errInternalKey = errors.New("missing or invalid internal key")

// RequireInternalKey guards service-to-service routes. An empty key closes
// the routes entirely.
func RequireInternalKey(key string) gin.HandlerFunc {
	key = strings.TrimSpace(key)
	return func(c *gin.Context) {
		got := strings.TrimSpace(c.GetHeader(headerInternalKey))
		if key == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.Abort()
			response.RespondError(c, http.StatusUnauthorized, "invalid_internal_key", errInternalKey)
			return
		}
		c.Next()
	}
}

