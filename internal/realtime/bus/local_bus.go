package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/pulse-backend/internal/realtime"
)

// localBus delivers events synchronously inside one process. It backs
// single-instance deployments and tests.
type localBus struct {
	mu      sync.RWMutex
	onEvent func(ev realtime.Event)
}

func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(ctx context.Context, ev realtime.Event) error {
	b.mu.RLock()
	fn := b.onEvent
	b.mu.RUnlock()
	if fn != nil {
		fn(ev)
	}
	return nil
}

func (b *localBus) StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	b.mu.Lock()
	b.onEvent = onEvent
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		b.mu.Lock()
		b.onEvent = nil
		b.mu.Unlock()
	}()
	return nil
}

func (b *localBus) Close() error { return nil }
