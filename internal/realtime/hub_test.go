package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

func recvEvent(t *testing.T, ch <-chan Event, timeout time.Duration) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return Event{}
}

func event(group, typ string, seq int) Event {
	raw, _ := json.Marshal(map[string]any{"type": typ, "seq": seq})
	return Event{Group: group, Type: typ, Data: raw}
}

func TestHubOrderingAndReconnect(t *testing.T) {
	hub := NewHub(mustTestLogger(t), 8)
	group := ChatGroup(uuid.New())

	clientA := hub.NewClient(uuid.New())
	hub.Join(clientA, group)

	hub.Broadcast(event(group, "new_message", 1))
	hub.Broadcast(event(group, "message_status", 2))

	if got := recvEvent(t, clientA.Outbound, time.Second); got.Type != "new_message" {
		t.Fatalf("first event: got=%s", got.Type)
	}
	if got := recvEvent(t, clientA.Outbound, time.Second); got.Type != "message_status" {
		t.Fatalf("second event: got=%s", got.Type)
	}

	hub.CloseClient(clientA)
	hub.CloseClient(clientA)
	select {
	case _, ok := <-clientA.Outbound:
		if ok {
			t.Fatalf("clientA outbound should be closed after disconnect")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatalf("timed out waiting for clientA channel close")
	}
	if len(hub.Users(group)) != 0 {
		t.Fatalf("closed client still subscribed")
	}

	clientB := hub.NewClient(uuid.New())
	hub.Join(clientB, group)
	if n := hub.Broadcast(event(group, "typing_indicator", 3)); n != 1 {
		t.Fatalf("reconnect broadcast delivered to %d clients", n)
	}
	if got := recvEvent(t, clientB.Outbound, time.Second); got.Type != "typing_indicator" {
		t.Fatalf("reconnect event: got=%s", got.Type)
	}
}

func TestHubIsolatesGroups(t *testing.T) {
	hub := NewHub(mustTestLogger(t), 8)
	g1, g2 := ChatGroup(uuid.New()), ChatGroup(uuid.New())

	a := hub.NewClient(uuid.New())
	b := hub.NewClient(uuid.New())
	hub.Join(a, g1)
	hub.Join(b, g2)

	hub.Broadcast(event(g1, "new_message", 1))
	recvEvent(t, a.Outbound, time.Second)
	select {
	case ev := <-b.Outbound:
		t.Fatalf("client in other group received %s", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}

	if n := hub.Broadcast(event("notifications_nobody", "x", 1)); n != 0 {
		t.Fatalf("empty group publish should be a no-op, delivered=%d", n)
	}
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub := NewHub(mustTestLogger(t), 1)
	group := ChatGroup(uuid.New())
	dropped := 0
	hub.OnDrop(func(string) { dropped++ })

	c := hub.NewClient(uuid.New())
	hub.Join(c, group)
	hub.Broadcast(event(group, "a", 1))
	hub.Broadcast(event(group, "b", 2))

	if dropped != 1 {
		t.Fatalf("expected one dropped event, got %d", dropped)
	}
	if got := recvEvent(t, c.Outbound, time.Second); got.Type != "a" {
		t.Fatalf("buffered event: got=%s", got.Type)
	}
}

func TestHubUsers(t *testing.T) {
	hub := NewHub(mustTestLogger(t), 4)
	group := ChatGroup(uuid.New())
	uid := uuid.New()

	c1 := hub.NewClient(uid)
	c2 := hub.NewClient(uid)
	hub.Join(c1, group)
	hub.Join(c2, group)

	if users := hub.Users(group); len(users) != 1 || users[0] != uid {
		t.Fatalf("Users: %v", users)
	}
	hub.Leave(c1, group)
	if users := hub.Users(group); len(users) != 1 {
		t.Fatalf("second tab should keep the user present")
	}
	hub.Leave(c2, group)
	if users := hub.Users(group); len(users) != 0 {
		t.Fatalf("user should be gone after last client leaves")
	}
}
