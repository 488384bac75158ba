package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yungbote/pulse-backend/internal/observability"
)

type requestRecorder interface {
	ApiInflightInc()
	ApiInflightDec()
	ObserveAPI(method, route, status string, dur time.Duration)
}

// Metrics records HTTP request counts and latency. Socket upgrades are left
// to the connection gauges: their handler runs for the socket's lifetime.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return recordRequests(m)
}

func recordRequests(rec requestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsSocketUpgrade(c.Request) {
			c.Next()
			return
		}
		start := time.Now()
		rec.ApiInflightInc()
		defer rec.ApiInflightDec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		rec.ObserveAPI(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// IsSocketUpgrade reports whether r is a websocket handshake.
func IsSocketUpgrade(r *http.Request) bool {
	return r != nil && websocket.IsWebSocketUpgrade(r)
}

// TraceRequest is the otelgin filter: plain requests get a span, sockets
// do not since their span would stay open for the whole session.
func TraceRequest(r *http.Request) bool {
	return !IsSocketUpgrade(r)
}
