// Package hub provides a thread-safe websocket broadcast hub for dashboard
// clients using the channel-based fan-out pattern.
package hub

// Message is a pre-encoded text frame to be broadcast to clients
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON bytes
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// Event is the envelope dashboard clients receive: {"type": ..., "data": ...}
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}
