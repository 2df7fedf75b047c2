package app

import (
	"encoding/json"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// Event is the closed set of inbound events the coordinator handles.
// One variant per wire message; adapters construct these after decoding.
type Event interface{ isEvent() }

// Join attaches a connection to a room. The transport hands over the
// connection here; identity arrives pre-verified from the auth collaborator.
type Join struct {
	Room domain.RoomID
	User domain.User
	Role domain.Role
	Conn core.SignalConnection
}

type Leave struct {
	Room domain.RoomID
}

// Toggle mutates one live-state flag; flags are independent of each other.
type Toggle struct {
	Room  domain.RoomID
	Flag  domain.Flag
	Value bool
}

type Chat struct {
	Room domain.RoomID
	Text string
}

// Signal relays an opaque negotiation blob to one named peer in the
// sender's room. Kind is the wire message type to emit on the far side.
type Signal struct {
	Kind    string
	To      domain.UserID
	Payload json.RawMessage
}

// Disconnect is synthesized by the transport when a connection drops.
type Disconnect struct{}

func (Join) isEvent()       {}
func (Leave) isEvent()      {}
func (Toggle) isEvent()     {}
func (Chat) isEvent()       {}
func (Signal) isEvent()     {}
func (Disconnect) isEvent() {}
