package bus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/presence"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
)

// GroupBus is the group membership and fan-out surface used by actors and
// services. Publications always travel through the Bus so every process,
// this one included, delivers them in the same order.
type GroupBus struct {
	log      *logger.Logger
	hub      *realtime.Hub
	bus      Bus
	presence *presence.Tracker
	origin   string
	onFail   func()
}

func NewGroupBus(log *logger.Logger, hub *realtime.Hub, b Bus, tracker *presence.Tracker) *GroupBus {
	if b == nil {
		b = NewLocalBus()
	}
	return &GroupBus{
		log:      log.With("component", "GroupBus"),
		hub:      hub,
		bus:      b,
		presence: tracker,
		origin:   uuid.NewString(),
	}
}

// OnPublishFailure registers a callback for failed bus publications.
func (g *GroupBus) OnPublishFailure(fn func()) { g.onFail = fn }

func (g *GroupBus) Hub() *realtime.Hub { return g.hub }

// Start subscribes to the bus and forwards every event into the local hub.
func (g *GroupBus) Start(ctx context.Context) error {
	return g.bus.StartForwarder(ctx, func(ev realtime.Event) {
		g.hub.Broadcast(ev)
	})
}

func (g *GroupBus) Join(ctx context.Context, group string, client *realtime.Client) {
	g.hub.Join(client, group)
	if err := g.presence.Touch(ctx, group, client.UserID, client.ID); err != nil {
		g.log.Warn("presence touch failed", "group", group, "error", err)
	}
}

func (g *GroupBus) Leave(ctx context.Context, group string, client *realtime.Client) {
	g.hub.Leave(client, group)
	if err := g.presence.Remove(ctx, group, client.UserID, client.ID); err != nil {
		g.log.Warn("presence remove failed", "group", group, "error", err)
	}
}

// Touch refreshes presence for every group the client is in.
func (g *GroupBus) Touch(ctx context.Context, client *realtime.Client) {
	for _, group := range g.hub.GroupsOf(client) {
		if err := g.presence.Touch(ctx, group, client.UserID, client.ID); err != nil {
			g.log.Warn("presence touch failed", "group", group, "error", err)
			return
		}
	}
}

func (g *GroupBus) Publish(ctx context.Context, group string, frame protocol.Frame) error {
	if group == "" || frame == nil {
		return fmt.Errorf("group and frame required")
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", frame.FrameType(), err)
	}
	ev := realtime.Event{Group: group, Type: frame.FrameType(), Data: raw, Origin: g.origin}
	if err := g.bus.Publish(ctx, ev); err != nil {
		if g.onFail != nil {
			g.onFail()
		}
		return fmt.Errorf("publish %s to %s: %w", ev.Type, group, err)
	}
	return nil
}

// Online lists users with a live socket in group, across processes when
// presence is backed by redis and locally otherwise.
func (g *GroupBus) Online(ctx context.Context, group string) []uuid.UUID {
	if g.presence != nil {
		users, err := g.presence.Members(ctx, group)
		if err == nil {
			return users
		}
		g.log.Warn("presence lookup failed; using local hub", "group", group, "error", err)
	}
	return g.hub.Users(group)
}
