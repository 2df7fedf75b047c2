package signal

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteTimeout)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, cid core.ConnID, c *wsConn) {
	pongWait := ctl.cfg.PingPeriod * 10 / 9
	defer func() {
		log.Info().Str("module", "signal").Str("cid", string(cid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Coord.Handle(cid, app.Disconnect{})
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("cid", string(cid)).Msg("readPump read error")
				return
			}
			ctl.handleMessage(cid, c, data)
		}
	}
}

// handleMessage decodes the envelope and dispatches on its type. A malformed
// message gets an error ack on the offending connection only; nobody else is
// affected.
func (ctl *Controller) handleMessage(cid core.ConnID, c *wsConn, data []byte) {
	var env protocol.Envelope
	if err := sonic.Unmarshal(data, &env); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case protocol.TypeJoin:
		ctl.handleJoin(cid, c, data)
	case protocol.TypeLeave:
		ctl.handleLeave(cid, c, data)
	case protocol.TypeToggleVideo:
		ctl.handleToggle(cid, c, data, domain.FlagVideo)
	case protocol.TypeToggleAudio:
		ctl.handleToggle(cid, c, data, domain.FlagAudio)
	case protocol.TypeToggleScreenShare:
		ctl.handleToggle(cid, c, data, domain.FlagScreenShare)
	case protocol.TypeToggleHandRaise:
		ctl.handleToggle(cid, c, data, domain.FlagHandRaise)
	case protocol.TypeChat:
		ctl.handleChat(cid, c, data)
	case protocol.TypeSignalOffer, protocol.TypeSignalAnswer, protocol.TypeSignalCandidate:
		ctl.handleSignal(cid, c, env.Type, data)
	case protocol.TypePing:
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown message type")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, protocol.Error{Type: protocol.TypeError, Error: msg})
}
