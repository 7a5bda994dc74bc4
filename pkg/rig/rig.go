// Package rig accumulates look input into a viewer orientation.
//
// It only applies deltas handed to it; polling mice, touch screens and
// gyroscopes is the client's job.
package rig

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/teslashibe/go-vrtour/pkg/pose"
)

// DefaultPitchLimit is the maximum look-up/look-down angle in degrees.
const DefaultPitchLimit = 45.0

// Config holds look sensitivity.
type Config struct {
	SpeedX     float64 // degrees of yaw per unit of horizontal input
	SpeedY     float64 // degrees of pitch per unit of vertical input
	PitchLimit float64 // symmetric clamp in degrees
}

// DefaultConfig returns unit speeds and a ±45° pitch clamp.
func DefaultConfig() Config {
	return Config{SpeedX: 1, SpeedY: 1, PitchLimit: DefaultPitchLimit}
}

// Rig is a yaw/pitch look controller. Safe for concurrent use.
type Rig struct {
	mu    sync.RWMutex
	cfg   Config
	yaw   float64
	pitch float64
}

// New creates a rig looking down -Z.
func New(cfg Config) *Rig {
	if cfg.PitchLimit <= 0 {
		cfg.PitchLimit = DefaultPitchLimit
	}
	return &Rig{cfg: cfg}
}

// Look applies an input delta. Positive dx turns right, positive dy looks up.
func (r *Rig) Look(dx, dy float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.yaw = wrap(r.yaw - dx*r.cfg.SpeedX)
	r.pitch = mgl64.Clamp(r.pitch+dy*r.cfg.SpeedY, -r.cfg.PitchLimit, r.cfg.PitchLimit)
}

// Set replaces the orientation, clamping pitch.
func (r *Rig) Set(yawDeg, pitchDeg float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.yaw = wrap(yawDeg)
	r.pitch = mgl64.Clamp(pitchDeg, -r.cfg.PitchLimit, r.cfg.PitchLimit)
}

// Reset looks straight ahead again.
func (r *Rig) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.yaw, r.pitch = 0, 0
}

// Angles returns yaw and pitch in degrees.
func (r *Rig) Angles() (yaw, pitch float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.yaw, r.pitch
}

// Orientation returns the current view rotation.
func (r *Rig) Orientation() mgl64.Quat {
	return r.View(mgl64.Vec3{}).Orientation
}

// Forward returns the unit gaze direction used for raycasts.
func (r *Rig) Forward() mgl64.Vec3 {
	return r.View(mgl64.Vec3{}).Forward()
}

// View places the rig's orientation at an eye position.
func (r *Rig) View(eye mgl64.Vec3) pose.Pose {
	yaw, pitch := r.Angles()
	return pose.FromYawPitch(eye, yaw, pitch)
}

// wrap keeps yaw in (-180, 180].
func wrap(deg float64) float64 {
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}
