// Package protocol defines the closed set of wire messages exchanged over the
// signal connection. Inbound payloads carry a type tag; outbound messages are
// plain structs encoded as-is. Signaling payloads stay opaque raw JSON.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

// Inbound message types.
const (
	TypeJoin              = "join"
	TypeLeave             = "leave"
	TypeToggleVideo       = "toggle-video"
	TypeToggleAudio       = "toggle-audio"
	TypeToggleScreenShare = "toggle-screen-share"
	TypeToggleHandRaise   = "toggle-hand-raise"
	TypeChat              = "chat"
	TypeSignalOffer       = "signal-offer"
	TypeSignalAnswer      = "signal-answer"
	TypeSignalCandidate   = "signal-candidate"
	TypePing              = "ping"
)

// Outbound message types.
const (
	TypeParticipantsList = "participants-list"
	TypeUserJoined       = "user-joined"
	TypeUserLeft         = "user-left"
	TypeVideoChanged     = "participant-video-changed"
	TypeAudioChanged     = "participant-audio-changed"
	TypeScreenShareStart = "screen-share-started"
	TypeScreenShareStop  = "screen-share-stopped"
	TypeHandRaised       = "hand-raised"
	TypeChatReceived     = "chat-message-received"
	TypeError            = "error"
	TypePong             = "pong"
)

// Envelope is the minimal view decoded first to dispatch on type.
type Envelope struct {
	Type string `json:"type"`
}

type JoinPayload struct {
	Room string `json:"roomId"`
	User struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
	} `json:"user"`
	Role string `json:"role,omitempty"`
}

type LeavePayload struct {
	Room string `json:"roomId"`
}

type TogglePayload struct {
	Room  string `json:"roomId"`
	Value bool   `json:"value"`
}

type ChatPayload struct {
	Room string `json:"roomId"`
	Text string `json:"text"`
}

// SignalPayload carries a negotiation blob for exactly one named peer. Only
// the field matching the message type is set; the blob is never inspected.
type SignalPayload struct {
	To        string          `json:"to"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Blob returns whichever negotiation field the given type names.
func (p SignalPayload) Blob(msgType string) json.RawMessage {
	switch msgType {
	case TypeSignalOffer:
		return p.Offer
	case TypeSignalAnswer:
		return p.Answer
	default:
		return p.Candidate
	}
}

// ParticipantInfo mirrors one participant's full live state for list/join acks.
type ParticipantInfo struct {
	UserID        domain.UserID `json:"userId"`
	DisplayName   string        `json:"displayName"`
	Role          domain.Role   `json:"role"`
	IsVideoOn     bool          `json:"isVideoOn"`
	IsAudioOn     bool          `json:"isAudioOn"`
	IsScreenShare bool          `json:"isScreenSharing"`
	IsHandRaised  bool          `json:"isHandRaised"`
}

type ParticipantsList struct {
	Type         string            `json:"type"`
	Room         domain.RoomID     `json:"roomId"`
	Participants []ParticipantInfo `json:"participants"`
}

type UserJoined struct {
	Type        string        `json:"type"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
	Role        domain.Role   `json:"role"`
}

type UserLeft struct {
	Type        string        `json:"type"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type VideoChanged struct {
	Type      string        `json:"type"`
	UserID    domain.UserID `json:"userId"`
	IsVideoOn bool          `json:"isVideoOn"`
}

type AudioChanged struct {
	Type      string        `json:"type"`
	UserID    domain.UserID `json:"userId"`
	IsAudioOn bool          `json:"isAudioOn"`
}

type ScreenShareChanged struct {
	Type        string        `json:"type"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
}

type HandRaised struct {
	Type        string        `json:"type"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
	IsRaised    bool          `json:"isRaised"`
}

type ChatReceived struct {
	Type        string        `json:"type"`
	UserID      domain.UserID `json:"userId"`
	DisplayName string        `json:"displayName"`
	Text        string        `json:"text"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Signal is the unicast relay envelope; the blob field matches Type.
type Signal struct {
	Type      string          `json:"type"`
	From      domain.UserID   `json:"from"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// NewSignal builds the relay envelope with the blob in the field named by t.
func NewSignal(t string, from domain.UserID, blob json.RawMessage) Signal {
	s := Signal{Type: t, From: from}
	switch t {
	case TypeSignalOffer:
		s.Offer = blob
	case TypeSignalAnswer:
		s.Answer = blob
	default:
		s.Candidate = blob
	}
	return s
}

type Error struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

type Pong struct {
	Type string `json:"type"`
}
