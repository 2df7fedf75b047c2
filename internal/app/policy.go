package app

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickParticipant
	DropMessage
)

// Policy decides what happens to a participant whose outbound queue is full.
// Meeting signaling tolerates message loss better than memory exhaustion.
type Policy interface {
	OnBackPressure(room domain.RoomID, sess *core.Session) BackpressureAction
}

// KickPolicy disconnects slow consumers so one stalled client cannot hold a
// growing queue for the whole room.
type KickPolicy struct{}

func (KickPolicy) OnBackPressure(room domain.RoomID, sess *core.Session) BackpressureAction {
	return KickParticipant
}
