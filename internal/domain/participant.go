package domain

import (
	"sync"
	"time"
)

type Role string

const (
	RoleHost        Role = "HOST"
	RoleCoHost      Role = "CO_HOST"
	RoleParticipant Role = "PARTICIPANT"
)

// ParseRole maps a wire role to a known one, defaulting to attendee.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleHost, RoleCoHost:
		return Role(s)
	default:
		return RoleParticipant
	}
}

// Flag names one of the independent live-state toggles of a participant.
type Flag int

const (
	FlagVideo Flag = iota
	FlagAudio
	FlagScreenShare
	FlagHandRaise
)

// Flags is a value snapshot of the live-state toggles.
type Flags struct {
	VideoOn       bool
	AudioOn       bool
	ScreenSharing bool
	HandRaised    bool
}

// Participant represents one user's membership in one room for the lifetime
// of a single connection. Flags are written by the coordinator only; the
// mutex exists because snapshots are read from other connections' handlers.
type Participant struct {
	User     User
	Role     Role
	JoinedAt time.Time

	mu    sync.Mutex
	flags Flags
}

func NewParticipant(user User, role Role) *Participant {
	return &Participant{User: user, Role: role, JoinedAt: time.Now().UTC()}
}

func (p *Participant) SetFlag(f Flag, value bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch f {
	case FlagVideo:
		p.flags.VideoOn = value
	case FlagAudio:
		p.flags.AudioOn = value
	case FlagScreenShare:
		p.flags.ScreenSharing = value
	case FlagHandRaise:
		p.flags.HandRaised = value
	}
}

func (p *Participant) Flags() Flags {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flags
}
