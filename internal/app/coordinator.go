package app

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

// Coordinator is the single entry point for every inbound event. It owns no
// transport resources: connections are handed to it at join and it only ever
// pushes frames through them.
type Coordinator struct {
	Rooms    *core.RoomStore
	Registry *Registry
	Policy   Policy

	now func() time.Time
}

func NewCoordinator(rooms *core.RoomStore, reg *Registry, policy Policy) *Coordinator {
	return &Coordinator{
		Rooms:    rooms,
		Registry: reg,
		Policy:   policy,
		now:      time.Now,
	}
}

// Handle processes one event to completion. Errors are local to the event:
// an event referencing a room or participant that no longer exists is
// dropped, since join/leave races are expected and benign.
func (c *Coordinator) Handle(cid core.ConnID, ev Event) {
	switch e := ev.(type) {
	case Join:
		c.join(cid, e)
	case Leave:
		c.leave(cid, e)
	case Toggle:
		c.toggle(cid, e)
	case Chat:
		c.chat(cid, e)
	case Signal:
		c.relay(cid, e)
	case Disconnect:
		c.drop(cid, false)
	}
}

func (c *Coordinator) join(cid core.ConnID, e Join) {
	if _, _, ok := c.Registry.Resolve(cid); ok {
		// Re-join on a live connection acts as leave-then-join.
		c.drop(cid, false)
	}

	p := domain.NewParticipant(e.User, e.Role)
	sess := core.NewSession(cid, p, e.Conn)

	existing, displaced := c.Rooms.Add(e.Room, sess)
	if displaced != nil {
		// Same user id reconnected: the stale connection is force-closed so
		// no registry entry leaks behind the replaced participant record.
		c.Registry.Unbind(displaced.ID)
		displaced.Conn.Close()
		log.Info().Str("module", "app.coordinator").Str("cid", string(displaced.ID)).Str("user", string(e.User.ID)).Msg("displaced stale connection")
	}
	c.Registry.Bind(cid, e.Room, sess)

	list := make([]protocol.ParticipantInfo, 0, len(existing))
	for _, s := range existing {
		if s.Participant.User.ID == e.User.ID {
			continue
		}
		list = append(list, participantInfo(s.Participant))
	}
	c.send(sess.Conn, protocol.ParticipantsList{
		Type:         protocol.TypeParticipantsList,
		Room:         e.Room,
		Participants: list,
	})
	c.broadcast(e.Room, e.User.ID, protocol.UserJoined{
		Type:        protocol.TypeUserJoined,
		UserID:      e.User.ID,
		DisplayName: e.User.DisplayName,
		Role:        e.Role,
	})
	log.Info().Str("module", "app.coordinator").Str("cid", string(cid)).Str("room", string(e.Room)).Str("user", string(e.User.ID)).Msg("joined room")
}

func (c *Coordinator) leave(cid core.ConnID, e Leave) {
	room, _, ok := c.Registry.Resolve(cid)
	if !ok || room != e.Room {
		log.Debug().Str("module", "app.coordinator").Str("cid", string(cid)).Str("room", string(e.Room)).Msg("leave for unresolved room, dropped")
		return
	}
	c.drop(cid, false)
}

func (c *Coordinator) toggle(cid core.ConnID, e Toggle) {
	room, sess, ok := c.Registry.Resolve(cid)
	if !ok || room != e.Room {
		log.Debug().Str("module", "app.coordinator").Str("cid", string(cid)).Str("room", string(e.Room)).Msg("toggle for unresolved room, dropped")
		return
	}
	sess.Participant.SetFlag(e.Flag, e.Value)

	uid := sess.Participant.User.ID
	name := sess.Participant.User.DisplayName
	var msg any
	switch e.Flag {
	case domain.FlagVideo:
		msg = protocol.VideoChanged{Type: protocol.TypeVideoChanged, UserID: uid, IsVideoOn: e.Value}
	case domain.FlagAudio:
		msg = protocol.AudioChanged{Type: protocol.TypeAudioChanged, UserID: uid, IsAudioOn: e.Value}
	case domain.FlagScreenShare:
		t := protocol.TypeScreenShareStop
		if e.Value {
			t = protocol.TypeScreenShareStart
		}
		msg = protocol.ScreenShareChanged{Type: t, UserID: uid, DisplayName: name}
	case domain.FlagHandRaise:
		msg = protocol.HandRaised{Type: protocol.TypeHandRaised, UserID: uid, DisplayName: name, IsRaised: e.Value}
	}
	// Toggle broadcasts include the sender.
	c.broadcast(room, "", msg)
}

func (c *Coordinator) chat(cid core.ConnID, e Chat) {
	room, sess, ok := c.Registry.Resolve(cid)
	if !ok || room != e.Room {
		log.Debug().Str("module", "app.coordinator").Str("cid", string(cid)).Str("room", string(e.Room)).Msg("chat for unresolved room, dropped")
		return
	}
	c.broadcast(room, "", protocol.ChatReceived{
		Type:        protocol.TypeChatReceived,
		UserID:      sess.Participant.User.ID,
		DisplayName: sess.Participant.User.DisplayName,
		Text:        e.Text,
		Timestamp:   c.now().UTC(),
	})
}

// drop removes the connection's participant from its room, unbinds the
// registry entry and notifies the room. Unbound connections are a no-op
// (disconnect before join completed).
func (c *Coordinator) drop(cid core.ConnID, closeConn bool) {
	room, sess, ok := c.Registry.Resolve(cid)
	if !ok {
		log.Debug().Str("module", "app.coordinator").Str("cid", string(cid)).Msg("drop for unbound connection, no-op")
		return
	}
	uid := sess.Participant.User.ID
	// The room may already map this user id to a newer connection.
	if cur, found := c.Rooms.Find(room, uid); found && cur.ID == cid {
		c.Rooms.Remove(room, uid)
	}
	c.Registry.Unbind(cid)
	if closeConn {
		sess.Conn.Close()
	}
	c.broadcast(room, "", protocol.UserLeft{
		Type:        protocol.TypeUserLeft,
		UserID:      uid,
		DisplayName: sess.Participant.User.DisplayName,
	})
	log.Info().Str("module", "app.coordinator").Str("cid", string(cid)).Str("room", string(room)).Str("user", string(uid)).Msg("left room")
}

func (c *Coordinator) broadcast(room domain.RoomID, exclude domain.UserID, msg any) {
	b, err := sonic.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("broadcast marshal")
		return
	}
	res := c.Rooms.Broadcast(room, exclude, b)
	if c.Policy == nil {
		return
	}
	for _, slow := range res.Dropped {
		switch c.Policy.OnBackPressure(room, slow) {
		case KickParticipant:
			log.Info().Str("module", "app.coordinator").Str("cid", string(slow.ID)).Msg("kicking slow consumer")
			c.drop(slow.ID, true)
		case DropMessage, NoAction:
		}
	}
}

func (c *Coordinator) send(conn core.SignalConnection, msg any) {
	b, err := sonic.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Str("module", "app.coordinator").Msg("send marshal")
		return
	}
	if err := conn.TrySend(b); err != nil {
		log.Debug().Err(err).Str("module", "app.coordinator").Msg("send dropped")
	}
}

func participantInfo(p *domain.Participant) protocol.ParticipantInfo {
	f := p.Flags()
	return protocol.ParticipantInfo{
		UserID:        p.User.ID,
		DisplayName:   p.User.DisplayName,
		Role:          p.Role,
		IsVideoOn:     f.VideoOn,
		IsAudioOn:     f.AudioOn,
		IsScreenShare: f.ScreenSharing,
		IsHandRaised:  f.HandRaised,
	}
}
