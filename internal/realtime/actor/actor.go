package actor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/valyala/fastjson"
	"golang.org/x/time/rate"

	types "github.com/yungbote/pulse-backend/internal/domain"
	"github.com/yungbote/pulse-backend/internal/observability"
	"github.com/yungbote/pulse-backend/internal/platform/apierr"
	"github.com/yungbote/pulse-backend/internal/platform/logger"
	"github.com/yungbote/pulse-backend/internal/realtime"
	"github.com/yungbote/pulse-backend/internal/realtime/bus"
	"github.com/yungbote/pulse-backend/internal/realtime/protocol"
	"github.com/yungbote/pulse-backend/internal/services"
)

// Application close codes sent before any group is joined.
const (
	CloseUnauthorized = 4001
	CloseForbidden    = 4003
)

const (
	kindChat          = "chat"
	kindNotifications = "notifications"
)

type Config struct {
	RateRPS        float64
	RateBurst      int
	PingInterval   time.Duration
	WriteWait      time.Duration
	MaxFrameBytes  int64
	AllowedOrigins []string
	// Sessions is shared by every actor of one server so shutdown can
	// close their sockets. Each actor gets its own when nil.
	Sessions *Sessions
}

func (c Config) withDefaults() Config {
	if c.RateRPS <= 0 {
		c.RateRPS = 10
	}
	if c.RateBurst <= 0 {
		c.RateBurst = 20
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.MaxFrameBytes <= 0 {
		c.MaxFrameBytes = 16 << 10
	}
	if c.Sessions == nil {
		c.Sessions = NewSessions()
	}
	return c
}

// handler answers one inbound frame. A nil frame means nothing goes back to
// the sender; broadcasts reach it through the group like everyone else.
type handler func(ctx context.Context, in protocol.Inbound) protocol.Frame

// render turns a group event into the bytes this viewer should receive.
// ok=false skips the event for this viewer.
type render func(ev realtime.Event) (data []byte, ok bool)

type base struct {
	log      *logger.Logger
	verifier services.TokenVerifier
	groups   *bus.GroupBus
	cfg      Config
	upgrader websocket.Upgrader
	parsers  fastjson.ParserPool
}

func newBase(log *logger.Logger, verifier services.TokenVerifier, groups *bus.GroupBus, cfg Config) *base {
	cfg = cfg.withDefaults()
	b := &base{
		log:      log,
		verifier: verifier,
		groups:   groups,
		cfg:      cfg,
	}
	b.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	return b
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[strings.TrimRight(origin, "/")]
	}
}

// authenticate resolves the token or closes the socket with 4001.
func (b *base) authenticate(ctx context.Context, conn *websocket.Conn, token string) (*types.User, bool) {
	u, err := b.verifier.Verify(ctx, token)
	if err != nil {
		b.rejectErr(conn, err, CloseUnauthorized)
		return nil, false
	}
	return u, true
}

// rejectErr closes with code for auth and permission errors and with 1011
// for anything else, so an outage never reads as a bad credential.
func (b *base) rejectErr(conn *websocket.Conn, err error, code int) {
	switch apierr.StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		b.log.Debug("socket rejected", "code", code, "error", err)
		b.reject(conn, code, apierr.Message(err))
	default:
		b.log.Error("socket setup failed", "error", err)
		b.reject(conn, websocket.CloseInternalServerErr, apierr.Message(err))
	}
}

func (b *base) reject(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(b.cfg.WriteWait))
	_ = conn.Close()
}

// session is one authenticated connection bound to a single group.
type session struct {
	b       *base
	log     *logger.Logger
	kind    string
	conn    *websocket.Conn
	client  *realtime.Client
	group   string
	replies chan []byte
	limiter *rate.Limiter
}

// serve joins the group, greets the client, and runs the read and write
// pumps until either side goes away or the server shuts down. The group is
// always left on return.
func (b *base) serve(parent context.Context, conn *websocket.Conn, kind, group string, u *types.User, hello protocol.Frame, handle handler, rend render) {
	sessions := b.cfg.Sessions
	if !sessions.enter() {
		b.reject(conn, websocket.CloseGoingAway, "server shutting down")
		return
	}
	defer sessions.exit()

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	stop := context.AfterFunc(sessions.ctx, cancel)
	defer stop()

	s := &session{
		b:       b,
		log:     b.log.With("group", group, "user_id", u.ID),
		kind:    kind,
		conn:    conn,
		client:  b.groups.Hub().NewClient(u.ID),
		group:   group,
		replies: make(chan []byte, 16),
		limiter: rate.NewLimiter(rate.Limit(b.cfg.RateRPS), b.cfg.RateBurst),
	}

	b.groups.Join(ctx, group, s.client)
	observability.Current().SocketOpened(kind)
	s.log.Info("socket connected", "client_id", s.client.ID)

	writerDone := make(chan struct{})
	defer func() {
		cancel()
		<-writerDone
		b.groups.Leave(context.Background(), group, s.client)
		b.groups.Hub().CloseClient(s.client)
		_ = conn.Close()
		observability.Current().SocketClosed(kind)
		s.log.Info("socket disconnected", "client_id", s.client.ID)
	}()

	s.reply(ctx, hello)
	go func() {
		defer close(writerDone)
		s.writePump(ctx, rend)
	}()
	s.readPump(ctx, handle)
}

func (s *session) reply(ctx context.Context, f protocol.Frame) {
	if f == nil {
		return
	}
	raw, err := json.Marshal(f)
	if err != nil {
		s.log.Error("marshal reply failed", "type", f.FrameType(), "error", err)
		return
	}
	select {
	case s.replies <- raw:
	case <-ctx.Done():
	}
}

func (s *session) readPump(ctx context.Context, handle handler) {
	pongWait := s.b.cfg.PingInterval * 2
	s.conn.SetReadLimit(s.b.cfg.MaxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				s.log.Warn("socket read failed", "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))

		if !s.limiter.Allow() {
			s.reply(ctx, protocol.NewError(protocol.MsgRateLimited))
			continue
		}

		p := s.b.parsers.Get()
		in, err := protocol.Parse(p, raw)
		s.b.parsers.Put(p)
		if err != nil {
			observability.Current().IncInboundFrame(s.kind, "invalid")
			s.reply(ctx, protocol.NewError(protocol.MsgInvalidJSON))
			continue
		}
		observability.Current().IncInboundFrame(s.kind, in.Type)
		s.reply(ctx, handle(ctx, in))
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *session) writePump(ctx context.Context, rend render) {
	ticker := time.NewTicker(s.b.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.goAway()
			return
		case raw := <-s.replies:
			if err := s.write(websocket.TextMessage, raw); err != nil {
				s.fail(err)
				return
			}
		case ev, ok := <-s.client.Outbound:
			if !ok {
				_ = s.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			data, deliver := rend(ev)
			if !deliver {
				continue
			}
			if err := s.write(websocket.TextMessage, data); err != nil {
				s.fail(err)
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.b.cfg.WriteWait)); err != nil {
				s.fail(err)
				return
			}
			s.b.groups.Touch(ctx, s.client)
		}
	}
}

func (s *session) write(messageType int, data []byte) error {
	_ = s.conn.SetWriteDeadline(time.Now().Add(s.b.cfg.WriteWait))
	return s.conn.WriteMessage(messageType, data)
}

// goAway sends a going-away close frame and closes the conn, which also
// unblocks the reader. The peer may already be gone.
func (s *session) goAway() {
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(s.b.cfg.WriteWait))
	_ = s.conn.Close()
}

// fail unblocks the reader after a write error.
func (s *session) fail(err error) {
	if !errors.Is(err, websocket.ErrCloseSent) {
		s.log.Debug("socket write failed", "error", err)
	}
	_ = s.conn.Close()
}

// passthrough delivers every event unchanged.
func passthrough(ev realtime.Event) ([]byte, bool) { return ev.Data, true }
