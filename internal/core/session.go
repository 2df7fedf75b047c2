package core

import "github.com/dkeye/Huddle/internal/domain"

// Session binds a participant to its live transport endpoint.
// This is what a room stores and fans out to.
type Session struct {
	ID          ConnID
	Participant *domain.Participant
	Conn        SignalConnection
}

func NewSession(id ConnID, p *domain.Participant, conn SignalConnection) *Session {
	return &Session{ID: id, Participant: p, Conn: conn}
}
