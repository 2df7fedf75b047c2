package domain

const MaxRoomIDLen = 64

// RoomID is caller-supplied; the first joiner implicitly creates the room.
type RoomID string
