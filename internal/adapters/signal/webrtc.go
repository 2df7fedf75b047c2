package signal

import (
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

// handleSignal decodes only the addressing of a negotiation message; the
// offer/answer/candidate blob passes through untouched.
func (ctl *Controller) handleSignal(cid core.ConnID, c *wsConn, msgType string, data []byte) {
	var p protocol.SignalPayload
	if err := sonic.Unmarshal(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad signal payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	blob := p.Blob(msgType)
	if p.To == "" || len(blob) == 0 {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Coord.Handle(cid, app.Signal{Kind: msgType, To: domain.UserID(p.To), Payload: blob})
}
