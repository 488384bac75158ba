package realtime

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

// Client is one live connection's mailbox inside the hub.
type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Groups   map[string]bool
	Outbound chan Event

	closeOnce sync.Once
}

// Hub tracks which local clients belong to which groups and delivers events
// to them without blocking the caller.
type Hub struct {
	mu            sync.RWMutex
	logger        *logger.Logger
	subscriptions map[string]map[*Client]bool
	bufferSize    int
	onDrop        func(group string)
}

func NewHub(log *logger.Logger, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		logger:        log.With("component", "Hub"),
		subscriptions: make(map[string]map[*Client]bool),
		bufferSize:    bufferSize,
	}
}

// OnDrop registers a callback invoked whenever an event is dropped for a
// slow client.
func (hub *Hub) OnDrop(fn func(group string)) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	hub.onDrop = fn
}

func (hub *Hub) NewClient(userID uuid.UUID) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Groups:   make(map[string]bool),
		Outbound: make(chan Event, hub.bufferSize),
	}
}

func (hub *Hub) Join(client *Client, group string) {
	group = strings.TrimSpace(group)
	if group == "" || client == nil {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	client.Groups[group] = true
	clients, exists := hub.subscriptions[group]
	if !exists {
		clients = make(map[*Client]bool)
		hub.subscriptions[group] = clients
	}
	clients[client] = true

	hub.logger.Debug("client joined group", "clientID", client.ID, "group", group)
}

func (hub *Hub) Leave(client *Client, group string) {
	group = strings.TrimSpace(group)
	if group == "" || client == nil {
		return
	}
	hub.mu.Lock()
	defer hub.mu.Unlock()

	delete(client.Groups, group)
	hub.dropLocked(client, group)
	hub.logger.Debug("client left group", "clientID", client.ID, "group", group)
}

func (hub *Hub) dropLocked(client *Client, group string) {
	if subMap, ok := hub.subscriptions[group]; ok {
		delete(subMap, client)
		if len(subMap) == 0 {
			delete(hub.subscriptions, group)
		}
	}
}

func (hub *Hub) RemoveClient(client *Client) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for g := range client.Groups {
		hub.dropLocked(client, g)
	}
	client.Groups = make(map[string]bool)
}

// Broadcast hands ev to every local client in ev.Group and returns how many
// accepted it. A client whose buffer is full misses the event.
func (hub *Hub) Broadcast(ev Event) int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if ev.Group == "" {
		return 0
	}
	clientsMap, ok := hub.subscriptions[ev.Group]
	if !ok {
		return 0
	}
	delivered := 0
	for c := range clientsMap {
		select {
		case c.Outbound <- ev:
			delivered++
		default:
			hub.logger.Warn("dropping event; outbound buffer full", "clientID", c.ID, "group", ev.Group, "event", ev.Type)
			if hub.onDrop != nil {
				hub.onDrop(ev.Group)
			}
		}
	}
	return delivered
}

// Users lists the distinct users with a local client in group.
func (hub *Hub) Users(group string) []uuid.UUID {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	seen := make(map[uuid.UUID]bool)
	out := make([]uuid.UUID, 0)
	for c := range hub.subscriptions[group] {
		if !seen[c.UserID] {
			seen[c.UserID] = true
			out = append(out, c.UserID)
		}
	}
	return out
}

// CloseClient removes the client from every group and closes its mailbox.
// Safe to call more than once.
func (hub *Hub) CloseClient(client *Client) {
	client.closeOnce.Do(func() {
		hub.RemoveClient(client)
		close(client.Outbound)
	})
}

func (hub *Hub) GroupsOf(client *Client) []string {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	out := make([]string, 0, len(client.Groups))
	for g := range client.Groups {
		out = append(out, g)
	}
	return out
}
