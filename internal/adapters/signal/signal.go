package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/jamq/jamq/internal/app"
	"github.com/jamq/jamq/internal/config"
	"github.com/jamq/jamq/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

// Controller accepts websocket connections and routes decoded requests
// into the engine. One instance serves every connection.
type Controller struct {
	Engine   *app.Engine
	Registry *app.Registry
	Limiter  *RateLimiter
	Cfg      *config.Config
}

func NewController(engine *app.Engine, registry *app.Registry, cfg *config.Config) *Controller {
	return &Controller{
		Engine:   engine,
		Registry: registry,
		Limiter:  NewRateLimiter(cfg.MsgRateLimit, cfg.MsgRateInterval),
		Cfg:      cfg,
	}
}

// WsConn wraps one websocket with a bounded send channel. A full
// channel fails TrySend instead of blocking the sender.
type WsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsConn) Open() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.closed
}

func (c *WsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.GetString("client_token"))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade")
		return
	}

	conn := &WsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	ctx, cancel := context.WithCancel(ctx)
	ctl.Registry.Bind(sid, conn, cancel)

	ctl.sendJSON(conn, core.Envelope{Type: "connected", Data: string(sid)})

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, sid, conn)
}
