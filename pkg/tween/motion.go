// Package tween moves a pose toward a destination over time.
//
// Duration is derived from distance and speed; progress is time-driven and
// shaped by an easing curve. Completion invokes a one-shot callback from
// inside Tick.
package tween

import (
	"github.com/teslashibe/go-vrtour/pkg/dwell"
	"github.com/teslashibe/go-vrtour/pkg/easing"
	"github.com/teslashibe/go-vrtour/pkg/pose"
)

// MinDistance is the distance below which Start treats the actor as already
// at the destination.
const MinDistance = 0.1

const arrivalSlack = 1e-9

// Motion is a cancellable pose tween. The zero value is inactive and ready
// for Start. Not safe for concurrent use.
type Motion struct {
	from, to pose.Pose
	current  pose.Pose
	target   string
	distance float64

	curve      easing.Curve
	clock      *dwell.Timer
	onComplete func()
	active     bool
}

// Start begins a tween from -> to at speed units per second.
// Returns false without changing state when the poses are closer than
// MinDistance or speed is not positive. A nil curve means easing.EaseInOut.
func (m *Motion) Start(target string, from, to pose.Pose, speed float64, curve easing.Curve, onComplete func()) bool {
	distance := pose.Distance(from, to)
	if distance < MinDistance || speed <= 0 {
		return false
	}
	if curve == nil {
		curve = easing.EaseInOut
	}

	m.from, m.to, m.current = from, to, from
	m.target = target
	m.distance = distance
	m.curve = curve
	m.onComplete = onComplete

	if m.clock == nil {
		m.clock = dwell.New(distance/speed, nil)
	} else {
		m.clock.ResetWith(distance/speed, nil)
	}
	m.active = true
	return true
}

// Tick advances the tween by dt and returns the current pose and whether
// this tick completed it. Inactive motions return the last pose unchanged.
func (m *Motion) Tick(dt float64) (pose.Pose, bool) {
	if !m.active {
		return m.current, false
	}

	// Arrival is inclusive of the duration boundary, with slack for
	// accumulated float error across many small ticks.
	if m.clock.Tick(dt) || m.clock.Elapsed() >= m.clock.Duration()-arrivalSlack {
		m.current = m.to
		m.active = false

		cb := m.onComplete
		m.onComplete = nil
		if cb != nil {
			cb()
		}
		return m.current, true
	}

	m.current = pose.Lerp(m.from, m.to, m.curve(m.clock.Progress()))
	return m.current, false
}

// Cancel stops the tween where it is. The completion callback is dropped.
func (m *Motion) Cancel() {
	m.active = false
	m.onComplete = nil
}

// Active reports whether the tween is in flight.
func (m *Motion) Active() bool {
	return m.active
}

// Current returns the most recently computed pose.
func (m *Motion) Current() pose.Pose {
	return m.current
}

// Target returns the identity of the destination of the last Start.
func (m *Motion) Target() string {
	return m.target
}

// Destination returns the pose snapshot taken at Start.
func (m *Motion) Destination() pose.Pose {
	return m.to
}

// Distance returns the distance fixed at Start.
func (m *Motion) Distance() float64 {
	return m.distance
}

// Duration returns the tween duration in seconds, or 0 if never started.
func (m *Motion) Duration() float64 {
	if m.clock == nil {
		return 0
	}
	return m.clock.Duration()
}

// Progress returns the un-eased time fraction of the tween.
func (m *Motion) Progress() float64 {
	if m.clock == nil {
		return 0
	}
	return m.clock.Progress()
}
