package app

import (
	"fmt"

	"github.com/yungbote/pulse-backend/internal/observability"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/actor"
	"github.com/yungbote/pulse-backend/internal/realtime/bus"
	"github.com/yungbote/pulse-backend/internal/realtime/presence"
)

type Realtime struct {
	Hub      *realtime.Hub
	Groups   *bus.GroupBus
	Presence *presence.Tracker
	Sweeper  *presence.Sweeper
	Sessions *actor.Sessions
}

func wireRealtime(log *logger.Logger, cfg Config, clients Clients) (Realtime, error) {
	log.Info("Wiring realtime...")
	metrics := observability.Current()

	hub := realtime.NewHub(log, cfg.Socket.SendBuffer)
	hub.OnDrop(metrics.IncDroppedEvent)

	var (
		b       bus.Bus
		tracker *presence.Tracker
		sweeper *presence.Sweeper
	)
	if clients.Redis != nil {
		rb, err := bus.NewRedisBus(log, clients.Redis, cfg.Redis.Channel)
		if err != nil {
			return Realtime{}, fmt.Errorf("init redis bus: %w", err)
		}
		b = rb
		tracker = presence.NewTracker(log, clients.Redis, cfg.Redis.PresenceTTL)
		sweeper, err = presence.NewSweeper(log, tracker, cfg.Redis.PresenceSweepCron)
		if err != nil {
			return Realtime{}, fmt.Errorf("init presence sweeper: %w", err)
		}
	}

	groups := bus.NewGroupBus(log, hub, b, tracker)
	groups.OnPublishFailure(metrics.IncBusFailure)
	return Realtime{
		Hub:      hub,
		Groups:   groups,
		Presence: tracker,
		Sweeper:  sweeper,
		Sessions: actor.NewSessions(),
	}, nil
}
