package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pulse-backend/internal/realtime/actor"
)

type Server struct {
	Engine   *gin.Engine
	Sessions *actor.Sessions
}

func NewServer(engine *gin.Engine, sessions *actor.Sessions) *Server {
	if sessions == nil {
		sessions = actor.NewSessions()
	}
	return &Server{Engine: engine, Sessions: sessions}
}

// Run serves on address until ctx is done, then drains for up to 10s.
// Sockets are hijacked and skipped by http.Server.Shutdown, so they are
// closed through Sessions and Run returns only after each has left its group.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv.RegisterOnShutdown(s.Sessions.Close)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		s.Sessions.Close()
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if werr := s.Sessions.Wait(shutdownCtx); werr != nil && err == nil {
		err = werr
	}
	return err
}
