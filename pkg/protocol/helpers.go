package protocol

import (
	"time"

	"github.com/teslashibe/go-vrtour/pkg/pose"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewGazeMessage creates a gaze hit message; an empty target clears the hit
func NewGazeMessage(target string) (*Message, error) {
	return NewMessage(TypeGaze, GazeData{Target: target})
}

// NewLookMessage creates a relative look input message
func NewLookMessage(dx, dy float64) (*Message, error) {
	return NewMessage(TypeLook, LookData{DX: dx, DY: dy})
}

// NewOrientationMessage creates an absolute look message
func NewOrientationMessage(yaw, pitch float64) (*Message, error) {
	return NewMessage(TypeLook, LookData{Yaw: yaw, Pitch: pitch, Absolute: true})
}

// NewShortcutMessage creates a digit shortcut message
func NewShortcutMessage(digit int) (*Message, error) {
	return NewMessage(TypeShortcut, ShortcutData{Digit: digit})
}

// NewGPSMessage creates a location fix message
func NewGPSMessage(lat, lon float64) (*Message, error) {
	return NewMessage(TypeGPS, GPSData{Lat: lat, Lon: lon})
}

// NewStateMessage creates a state message
func NewStateMessage(state StateData) (*Message, error) {
	return NewMessage(TypeState, state)
}

// NewPoseMessage creates a pose message
func NewPoseMessage(location string, p pose.Pose) (*Message, error) {
	return NewMessage(TypePose, PoseData{Location: location, Pose: p})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: time.Now().UnixMilli()})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetGazeData extracts gaze data from a message
func (m *Message) GetGazeData() (*GazeData, error) {
	var data GazeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLookData extracts look data from a message
func (m *Message) GetLookData() (*LookData, error) {
	var data LookData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetShortcutData extracts shortcut data from a message
func (m *Message) GetShortcutData() (*ShortcutData, error) {
	var data ShortcutData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetGPSData extracts a location fix from a message
func (m *Message) GetGPSData() (*GPSData, error) {
	var data GPSData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPoseData extracts pose data from a message
func (m *Message) GetPoseData() (*PoseData, error) {
	var data PoseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
