package core

// Frame is a raw encoded payload pushed to a connection.
type Frame []byte

// ConnID identifies one transport-level connection.
type ConnID string

// SignalConnection abstracts the messaging transport endpoint.
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	// TrySend must never block; it reports backpressure as an error.
	TrySend(Frame) error
	Close()
}
