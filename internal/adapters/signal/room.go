package signal

import (
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

func (ctl *Controller) handleJoin(cid core.ConnID, c *wsConn, data []byte) {
	var p protocol.JoinPayload
	if err := sonic.Unmarshal(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Room == "" || len(p.Room) > domain.MaxRoomIDLen {
		ctl.sendError(c, "bad_room_id")
		return
	}
	user, err := domain.NewUser(p.User.ID, p.User.DisplayName)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad join identity")
		ctl.sendError(c, "bad_user")
		return
	}

	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", p.Room).Str("user", p.User.ID).Msg("join")
	ctl.Coord.Handle(cid, app.Join{
		Room: domain.RoomID(p.Room),
		User: user,
		Role: domain.ParseRole(p.Role),
		Conn: c,
	})
}

func (ctl *Controller) handleLeave(cid core.ConnID, c *wsConn, data []byte) {
	var p protocol.LeavePayload
	if err := sonic.Unmarshal(data, &p); err != nil {
		log.Debug().Err(err).Str("module", "signal").Msg("bad leave payload")
		ctl.sendError(c, "bad_payload")
		return
	}
	if p.Room == "" {
		ctl.sendError(c, "bad_room_id")
		return
	}
	log.Info().Str("module", "signal").Str("cid", string(cid)).Str("room", p.Room).Msg("leave")
	ctl.Coord.Handle(cid, app.Leave{Room: domain.RoomID(p.Room)})
}
