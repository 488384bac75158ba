package bus

import (
	"context"

	"github.com/yungbote/pulse-backend/internal/realtime"
)

// Bus moves events between processes. Every process forwards what it
// receives into its local hub, including its own publications.
type Bus interface {
	Publish(ctx context.Context, ev realtime.Event) error
	StartForwarder(ctx context.Context, onEvent func(ev realtime.Event)) error
	Close() error
}
