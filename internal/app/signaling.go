package app

import (
	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/protocol"
)

// relay forwards a negotiation blob to exactly one named peer in the sender's
// room. The blob is opaque to this layer; it is never parsed or rewritten.
// A missing peer means the expected join/leave race, so the message is
// dropped without an error.
func (c *Coordinator) relay(cid core.ConnID, e Signal) {
	room, sender, ok := c.Registry.Resolve(cid)
	if !ok {
		log.Debug().Str("module", "app.signaling").Str("cid", string(cid)).Msg("relay from unbound connection, dropped")
		return
	}
	target, ok := c.Rooms.Find(room, e.To)
	if !ok {
		log.Debug().Str("module", "app.signaling").Str("room", string(room)).Str("to", string(e.To)).Msg("relay target gone, dropped")
		return
	}
	msg := protocol.NewSignal(e.Kind, sender.Participant.User.ID, e.Payload)
	b, err := sonic.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.signaling").Msg("relay marshal")
		return
	}
	// Best-effort unicast; backpressure on the peer drops the message.
	if err := target.Conn.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "app.signaling").Str("to", string(e.To)).Msg("relay send dropped")
	}
}
