package signal

import "github.com/dkeye/Huddle/internal/protocol"

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, protocol.Pong{Type: protocol.TypePong})
}
