package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.SocketOpened("chat")
	m.IncDroppedEvent("chat_1")
	m.IncNotification("like", "created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("nil metrics handler: status=%d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveAPI("GET", "/api/notifications", "200", 20*time.Millisecond)
	m.SocketOpened("chat")
	m.IncInboundFrame("chat", "chat_message")
	m.IncDroppedEvent("notifications_abc")
	m.IncNotification("follow", "suppressed")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	out := string(body)

	for _, want := range []string{
		`pulse_api_requests_total{method="GET",route="/api/notifications",status="200"} 1`,
		`pulse_ws_connections{kind="chat"} 1`,
		`pulse_ws_inbound_frames_total{kind="chat",type="chat_message"} 1`,
		`pulse_ws_dropped_events_total{kind="notifications"} 1`,
		`pulse_notifications_total{outcome="suppressed",type="follow"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in scrape output", want)
		}
	}
}
