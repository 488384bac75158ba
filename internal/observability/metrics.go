package observability

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	sockets        *prometheus.GaugeVec
	framesIn       *prometheus.CounterVec
	eventsDropped  *prometheus.CounterVec
	busFailures    prometheus.Counter
	notifications  *prometheus.CounterVec
	messagesSent   prometheus.Counter
	statusUpdates  *prometheus.CounterVec
	presenceSweeps prometheus.Counter

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Current() *Metrics {
	return instance
}

// Init builds the process-wide collectors. It returns nil when metrics are
// disabled; every method is a no-op on a nil *Metrics.
func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pulse_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		sockets: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pulse_ws_connections",
			Help: "Live websocket connections by kind.",
		}, []string{"kind"}),
		framesIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_ws_inbound_frames_total",
			Help: "Inbound websocket frames by kind/type.",
		}, []string{"kind", "type"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_ws_dropped_events_total",
			Help: "Outbound events dropped for slow clients by group kind.",
		}, []string{"kind"}),
		busFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_bus_publish_failures_total",
			Help: "Failed group bus publications.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_notifications_total",
			Help: "Notification dispatch outcomes by type/outcome.",
		}, []string{"type", "outcome"}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_messages_sent_total",
			Help: "Chat messages persisted.",
		}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pulse_message_status_updates_total",
			Help: "Message status requests by status/changed.",
		}, []string{"status", "changed"}),
		presenceSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pulse_presence_swept_total",
			Help: "Expired presence entries removed.",
		}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pulse_db_pool",
			Help: "Database pool stats.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_redis_up",
			Help: "Redis reachability (1 up, 0 down).",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pulse_redis_ping_seconds",
			Help: "Redis ping latency in seconds.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.sockets, m.framesIn, m.eventsDropped, m.busFailures,
		m.notifications, m.messagesSent, m.statusUpdates, m.presenceSweeps,
		m.pgStats, m.redisUp, m.redisPing,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) SocketOpened(kind string) {
	if m == nil {
		return
	}
	m.sockets.WithLabelValues(kind).Inc()
}

func (m *Metrics) SocketClosed(kind string) {
	if m == nil {
		return
	}
	m.sockets.WithLabelValues(kind).Dec()
}

func (m *Metrics) IncInboundFrame(kind, frameType string) {
	if m == nil {
		return
	}
	if frameType == "" {
		frameType = "unknown"
	}
	m.framesIn.WithLabelValues(kind, frameType).Inc()
}

// IncDroppedEvent counts a dropped event; group is reduced to its kind
// prefix so labels stay bounded.
func (m *Metrics) IncDroppedEvent(group string) {
	if m == nil {
		return
	}
	kind := group
	if i := strings.IndexByte(group, '_'); i > 0 {
		kind = group[:i]
	}
	m.eventsDropped.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncBusFailure() {
	if m == nil {
		return
	}
	m.busFailures.Inc()
}

func (m *Metrics) IncNotification(notificationType, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notificationType, outcome).Inc()
}

func (m *Metrics) IncMessageSent() {
	if m == nil {
		return
	}
	m.messagesSent.Inc()
}

func (m *Metrics) IncStatusUpdate(status string, changed bool) {
	if m == nil {
		return
	}
	c := "false"
	if changed {
		c = "true"
	}
	m.statusUpdates.WithLabelValues(status, c).Inc()
}

func (m *Metrics) AddPresenceSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.presenceSweeps.Add(float64(n))
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB, interval time.Duration) {
	if m == nil || db == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb goredis.UniversalClient, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
