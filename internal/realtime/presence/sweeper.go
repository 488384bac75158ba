package presence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/yungbote/pulse-backend/internal/observability"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
)

// Sweeper runs Tracker.Sweep on a cron schedule.
type Sweeper struct {
	log       *logger.Logger
	tracker   *Tracker
	scheduler gocron.Scheduler
}

func NewSweeper(log *logger.Logger, tracker *Tracker, cronExpr string) (*Sweeper, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker required")
	}
	cronExpr = strings.TrimSpace(cronExpr)
	if cronExpr == "" {
		cronExpr = "* * * * *"
	}
	s, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	sw := &Sweeper{log: log.With("component", "PresenceSweeper"), tracker: tracker, scheduler: s}
	_, err = s.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(sw.run),
		gocron.WithName("presence-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule presence sweep %q: %w", cronExpr, err)
	}
	return sw, nil
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := s.tracker.Sweep(ctx)
	if err != nil {
		s.log.Warn("presence sweep failed", "error", err)
		return
	}
	observability.Current().AddPresenceSwept(n)
	if n > 0 {
		s.log.Debug("presence swept", "removed", n)
	}
}

// Run starts the scheduler and blocks until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.scheduler.Start()
	s.log.Info("presence sweeper started")
	<-ctx.Done()
	if err := s.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("shutdown scheduler: %w", err)
	}
	return nil
}
