// Package dwell provides the elapsed-time accumulator behind gaze selection.
//
// A Timer is driven by explicit Tick calls with a delta time. It fires its
// trigger callback exactly once, on the tick where the accumulated time first
// exceeds the configured duration.
package dwell

import "math"

// zeroDuration is the magnitude below which a duration reports no progress.
const zeroDuration = 0.001

// Timer accumulates elapsed time against a duration.
// It is not safe for concurrent use; the owning loop drives it.
type Timer struct {
	duration float64
	elapsed  float64
	finished bool

	onTriggered func()
}

// New creates a running timer that fires onTriggered once duration has passed.
// onTriggered may be nil.
func New(duration float64, onTriggered func()) *Timer {
	t := &Timer{}
	t.ResetWith(duration, onTriggered)
	return t
}

// NewStopped creates a timer that is already finished. It reports full
// progress until it is reset.
func NewStopped(duration float64) *Timer {
	return &Timer{
		duration: duration,
		elapsed:  duration,
		finished: true,
	}
}

// Tick advances the timer by dt.
// Returns true only on the tick that finishes the timer.
func (t *Timer) Tick(dt float64) bool {
	if t.finished {
		return false
	}

	t.elapsed += dt

	// Strictly greater: a tick landing exactly on the boundary does not fire.
	if t.elapsed > t.duration {
		t.finished = true
		if t.onTriggered != nil {
			t.onTriggered()
		}
		return true
	}
	return false
}

// Reset restarts the timer with a new duration, keeping the trigger callback.
// A duration <= 0 leaves the timer finished without firing.
func (t *Timer) Reset(duration float64) {
	t.ResetWith(duration, t.onTriggered)
}

// ResetWith restarts the timer with a new duration and trigger callback.
func (t *Timer) ResetWith(duration float64, onTriggered func()) {
	t.elapsed = 0
	t.duration = duration
	t.finished = duration <= 0
	t.onTriggered = onTriggered
}

// Restart restarts the timer with its current duration.
func (t *Timer) Restart() {
	t.Reset(t.duration)
}

// Progress returns elapsed/duration clamped to 1.
// A near-zero duration reports 0 unless the timer has finished.
func (t *Timer) Progress() float64 {
	if t.finished {
		return 1
	}
	if math.Abs(t.duration) < zeroDuration {
		return 0
	}
	return math.Min(t.elapsed/t.duration, 1)
}

// SetProgress scrubs the timer to fraction p of its duration.
// It never fires the trigger callback.
func (t *Timer) SetProgress(p float64) {
	p = clamp01(p)
	t.elapsed = t.duration * p
	t.finished = p >= 1
}

// Duration returns the configured duration.
func (t *Timer) Duration() float64 {
	return t.duration
}

// Elapsed returns the accumulated time since the last reset.
func (t *Timer) Elapsed() float64 {
	return t.elapsed
}

// Finished reports whether the timer has completed since the last reset.
func (t *Timer) Finished() bool {
	return t.finished
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
