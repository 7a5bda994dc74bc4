// Package protocol defines the WebSocket messages exchanged between headsets
// and the tour server.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-vrtour/pkg/gaze"
	"github.com/teslashibe/go-vrtour/pkg/pose"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Headset → Server messages
	TypeGaze     MessageType = "gaze"     // Raycast hit under the reticle
	TypeLook     MessageType = "look"     // Look input or absolute orientation
	TypeShortcut MessageType = "shortcut" // Digit key pressed
	TypeGPS      MessageType = "gps"      // Device location fix

	// Server → Headset messages
	TypeState MessageType = "state" // Selection snapshot
	TypePose  MessageType = "pose"  // Actor pose only (teleports)

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Headset → Server Message Types
// =============================================================================

// GazeData reports the marker under the reticle. An empty Target means the
// ray hit nothing.
type GazeData struct {
	Target string `json:"target,omitempty"`
}

// LookData carries either a relative input delta or, when Absolute is set,
// yaw/pitch in degrees.
type LookData struct {
	DX       float64 `json:"dx,omitempty"`
	DY       float64 `json:"dy,omitempty"`
	Yaw      float64 `json:"yaw,omitempty"`
	Pitch    float64 `json:"pitch,omitempty"`
	Absolute bool    `json:"absolute,omitempty"`
}

// ShortcutData is a digit key 1-9.
type ShortcutData struct {
	Digit int `json:"digit"`
}

// GPSData is a device location fix in degrees.
type GPSData struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// =============================================================================
// Server → Headset Message Types
// =============================================================================

// StateData mirrors the session snapshot.
type StateData struct {
	Tick          uint64         `json:"tick"`
	State         gaze.State     `json:"state"`
	DwellProgress float64        `json:"dwell_progress"`
	Indicator     gaze.Indicator `json:"indicator"`
	Pose          pose.Pose      `json:"pose"`
	Target        string         `json:"target,omitempty"`
	Location      string         `json:"location,omitempty"`
	Selected      bool           `json:"selected,omitempty"`
	Arrived       bool           `json:"arrived,omitempty"`
}

// PoseData is the actor pose after a teleport.
type PoseData struct {
	Location string    `json:"location,omitempty"`
	Pose     pose.Pose `json:"pose"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData is a health check request
type PingData struct {
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"ts"`
}

// PongData is a health check response
type PongData struct {
	ID        string `json:"id,omitempty"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
