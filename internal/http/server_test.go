package http

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/pulse-backend/internal/data/repos"
	"github.com/yungbote/pulse-backend/internal/data/repos/testutil"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/actor"
	"github.com/yungbote/pulse-backend/internal/realtime/bus"
	"github.com/yungbote/pulse-backend/internal/services"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func dialUntilUp(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			t.Cleanup(func() { _ = conn.Close() })
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestServerRunClosesSocketsOnShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gdb := testutil.DB(t)
	log := testutil.Logger(t)

	busCtx, stopBus := context.WithCancel(context.Background())
	t.Cleanup(stopBus)
	hub := realtime.NewHub(log, 32)
	groups := bus.NewGroupBus(log, hub, nil, nil)
	require.NoError(t, groups.Start(busCtx))

	users := repos.NewUserRepo(gdb, log)
	notify := services.NewNotificationService(gdb, log, users, repos.NewNotificationRepo(gdb, log),
		repos.NewNotificationSettingsRepo(gdb, log), groups)
	tokens := services.NewTokenVerifier(log, users, "server-secret", "")

	sessions := actor.NewSessions()
	engine := NewRouter(RouterConfig{
		Log: log,
		NotificationActor: actor.NewNotificationActor(log, tokens, notify, groups,
			actor.Config{PingInterval: time.Second, Sessions: sessions}),
	})

	bob := testutil.SeedUser(t, gdb, "bob")
	tok, err := tokens.Issue(bob.ID, time.Hour)
	require.NoError(t, err)

	addr := freeAddr(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- NewServer(engine, sessions).Run(ctx, addr) }()

	conn := dialUntilUp(t, "ws://"+addr+"/ws/notifications?token="+tok)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var hello map[string]any
	require.NoError(t, json.Unmarshal(raw, &hello))
	require.Equal(t, "connection_established", hello["type"])

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	require.True(t, errors.As(err, &ce), "expected close frame, got %v", err)
	assert.Equal(t, websocket.CloseGoingAway, ce.Code)
	assert.Empty(t, hub.Users(realtime.NotificationGroup(bob.ID)))
}
