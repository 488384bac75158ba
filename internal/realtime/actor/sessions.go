package actor

import (
	"context"
	"sync"
)

// Sessions tracks live sockets across actors. Hijacked connections are
// invisible to http.Server.Shutdown, so the server closes them through here.
type Sessions struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewSessions() *Sessions {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sessions{ctx: ctx, cancel: cancel}
}

// enter registers a session. It fails once Close has been called.
func (s *Sessions) enter() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.wg.Add(1)
	return true
}

func (s *Sessions) exit() { s.wg.Done() }

// Close refuses new sessions and tells every live one to send a going-away
// close frame and release its group.
func (s *Sessions) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every session has released its group or ctx ends.
func (s *Sessions) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown is Close followed by Wait.
func (s *Sessions) Shutdown(ctx context.Context) error {
	s.Close()
	return s.Wait(ctx)
}
