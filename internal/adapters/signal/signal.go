package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

// Controller owns the websocket entry point and translates wire messages
// into coordinator events.
type Controller struct {
	Coord *app.Coordinator
	Chat  *ChatLimiter
	cfg   *config.Config
}

func NewController(coord *app.Coordinator, chat *ChatLimiter, cfg *config.Config) *Controller {
	return &Controller{Coord: coord, Chat: chat, cfg: cfg}
}

// wsConn implements core.SignalConnection over a gorilla websocket with a
// bounded outbound queue. TrySend never blocks.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn, buffer int) *wsConn {
	return &wsConn{conn: conn, send: make(chan core.Frame, buffer)}
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
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

// HandleMeeting upgrades the request and runs the connection's pumps. Each
// connection gets a fresh id; the identity used in rooms arrives later with
// the join message.
func (ctl *Controller) HandleMeeting(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	cid := core.ConnID(uuid.NewString())
	log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("new WS connection")

	conn := newWSConn(ws, ctl.cfg.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, cid, conn)
}
