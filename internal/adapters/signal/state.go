package signal

import (
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

const maxChatLen = 2000

func (ctl *Controller) handleToggle(cid core.ConnID, c *wsConn, data []byte, flag domain.Flag) {
	var p protocol.TogglePayload
	if err := sonic.Unmarshal(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad toggle payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Room == "" {
		ctl.sendError(c, "bad_room_id")
		return
	}
	ctl.Coord.Handle(cid, app.Toggle{Room: domain.RoomID(p.Room), Flag: flag, Value: p.Value})
}

func (ctl *Controller) handleChat(cid core.ConnID, c *wsConn, data []byte) {
	var p protocol.ChatPayload
	if err := sonic.Unmarshal(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad chat payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Room == "" || p.Text == "" || len(p.Text) > maxChatLen {
		ctl.sendError(c, "bad_payload")
		return
	}

	// Rate limiting keys off the joined identity; messages from connections
	// that never joined are dropped by the coordinator anyway.
	if _, sess, ok := ctl.Coord.Registry.Resolve(cid); ok {
		if !ctl.Chat.Allow(sess.Participant.User.ID) {
			ctl.sendError(c, "rate_limited")
			return
		}
	}
	ctl.Coord.Handle(cid, app.Chat{Room: domain.RoomID(p.Room), Text: p.Text})
}
