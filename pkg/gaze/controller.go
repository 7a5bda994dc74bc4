// Package gaze implements dwell-to-select with a tweened move to the
// selected target.
//
// The Controller is a tick-driven state machine:
//
//	Idle --hit--> Dwelling --dwell elapsed--> Tweening --arrived--> Idle
//
// Looking away or at another target while Dwelling restarts or abandons the
// dwell. Looking at a different target while Tweening cancels the tween.
// The controller is single-threaded and owned by its driving loop.
package gaze

import (
	"github.com/teslashibe/go-vrtour/pkg/dwell"
	"github.com/teslashibe/go-vrtour/pkg/pose"
	"github.com/teslashibe/go-vrtour/pkg/tween"
)

// Controller tracks gaze hits and drives dwell selection and tweening.
type Controller struct {
	cfg      Config
	observer Observer

	state   State
	current *Target // tracked target while Dwelling or Tweening
	dwell   *dwell.Timer
	motion  tween.Motion
	actor   pose.Pose

	// arrivedAt is the target the actor last arrived at; hits on it do not
	// start a new dwell.
	arrivedAt string

	// set by the tween completion callback during Tick
	arrived bool
}

// New creates an idle controller with the actor at start. obs may be nil.
func New(cfg Config, start pose.Pose, obs Observer) *Controller {
	if obs == nil {
		obs = NopObserver{}
	}
	return &Controller{
		cfg:      cfg,
		observer: obs,
		dwell:    dwell.NewStopped(cfg.DwellThreshold),
		actor:    start,
	}
}

// Tick advances the state machine by dt with this tick's raycast hit
// (nil when nothing is hit). The tick that starts a dwell counts toward it.
func (c *Controller) Tick(hit *Target, dt float64) Output {
	selected := false

	switch c.state {
	case Idle:
		if c.eligible(hit) {
			c.beginDwell(*hit)
			selected = c.accumulate(hit, dt)
		}

	case Dwelling:
		switch {
		case !c.eligible(hit):
			c.cancelDwell()
		case hit.ID != c.current.ID:
			c.cancelDwell()
			c.beginDwell(*hit)
			selected = c.accumulate(hit, dt)
		default:
			selected = c.accumulate(hit, dt)
		}

	case Tweening:
		if hit != nil && hit.ID != "" && hit.ID != c.motion.Target() {
			c.cancelTween()
			break
		}
		c.actor, _ = c.motion.Tick(dt)
	}

	out := c.output()
	if selected {
		out.Selected = true
		out.DwellProgress = 1
	}
	out.Arrived = c.arrived
	c.arrived = false
	return out
}

// TweenTo starts a tween to t immediately, bypassing dwell and replacing any
// dwell or tween in progress. Returns false, leaving state unchanged, if the
// actor is already there. With a non-positive speed the actor is placed at t
// and the arrival is reported by the next Tick.
func (c *Controller) TweenTo(t Target) bool {
	if pose.Distance(c.actor, t.Pose) < tween.MinDistance {
		return false
	}

	prevState, prevCurrent := c.state, c.current
	prevTween := Target{ID: c.motion.Target(), Pose: c.motion.Destination()}

	c.current = &t
	started := c.motion.Start(t.ID, c.actor, t.Pose, c.cfg.TweenSpeed, c.cfg.curve(), c.onArrive(t))
	if !started {
		c.motion.Cancel()
	}

	switch prevState {
	case Dwelling:
		c.observer.DwellCancelled(*prevCurrent)
	case Tweening:
		c.observer.TweenCancelled(prevTween)
	}

	if !started {
		c.actor = t.Pose
		c.onArrive(t)()
		return true
	}
	c.state = Tweening
	c.arrivedAt = ""
	return true
}

// Teleport places the actor at t without tweening, cancelling any dwell or
// tween, and marks t as the arrived-at target.
func (c *Controller) Teleport(t Target) {
	c.abort()
	c.actor = t.Pose
	c.arrivedAt = t.ID
}

// Reset returns to Idle, keeping the actor pose and forgetting the
// arrived-at target.
func (c *Controller) Reset() {
	c.abort()
	c.arrivedAt = ""
}

// SetConfig replaces the configuration. A running dwell or tween keeps the
// values it started with.
func (c *Controller) SetConfig(cfg Config) {
	c.cfg = cfg
}

// Config returns the current configuration.
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns the current phase.
func (c *Controller) State() State {
	return c.state
}

// Pose returns the actor pose.
func (c *Controller) Pose() pose.Pose {
	return c.actor
}

// CurrentTarget returns the tracked target ID, or "" when Idle.
func (c *Controller) CurrentTarget() string {
	if c.current == nil {
		return ""
	}
	return c.current.ID
}

// ArrivedAt returns the ID of the target the actor last arrived at.
func (c *Controller) ArrivedAt() string {
	return c.arrivedAt
}

// DwellProgress returns the fill fraction, 0 unless Dwelling.
func (c *Controller) DwellProgress() float64 {
	if c.state != Dwelling {
		return 0
	}
	return c.dwell.Progress()
}

// TweenProgress returns the un-eased tween time fraction, 0 unless Tweening.
func (c *Controller) TweenProgress() float64 {
	if c.state != Tweening {
		return 0
	}
	return c.motion.Progress()
}

func (c *Controller) eligible(hit *Target) bool {
	return hit != nil && hit.ID != "" && hit.ID != c.arrivedAt
}

func (c *Controller) beginDwell(t Target) {
	c.current = &t
	c.dwell.Reset(c.cfg.DwellThreshold)
	c.state = Dwelling
	c.observer.DwellStarted(t)
}

func (c *Controller) cancelDwell() {
	t := *c.current
	c.current = nil
	c.state = Idle
	c.observer.DwellCancelled(t)
}

// accumulate adds dt to the running dwell and selects once it completes.
// A non-positive threshold leaves the timer finished from the start, which
// selects on the first tick.
func (c *Controller) accumulate(hit *Target, dt float64) bool {
	c.current.Pose = hit.Pose
	if c.dwell.Tick(dt) || c.dwell.Finished() {
		c.selectCurrent()
		return true
	}
	return false
}

func (c *Controller) selectCurrent() {
	t := *c.current
	c.observer.Selected(t)

	if pose.Distance(c.actor, t.Pose) < tween.MinDistance {
		c.onArrive(t)()
		return
	}
	if !c.motion.Start(t.ID, c.actor, t.Pose, c.cfg.TweenSpeed, c.cfg.curve(), c.onArrive(t)) {
		// No speed: complete the move at once.
		c.actor = t.Pose
		c.onArrive(t)()
		return
	}
	c.state = Tweening
	c.arrivedAt = ""
}

func (c *Controller) onArrive(t Target) func() {
	return func() {
		c.current = nil
		c.state = Idle
		c.arrivedAt = t.ID
		c.arrived = true
		c.observer.Arrived(t)
	}
}

func (c *Controller) cancelTween() {
	t := Target{ID: c.motion.Target(), Pose: c.motion.Destination()}
	c.motion.Cancel()
	c.current = nil
	c.state = Idle
	c.observer.TweenCancelled(t)
}

func (c *Controller) abort() {
	switch c.state {
	case Dwelling:
		c.cancelDwell()
	case Tweening:
		c.cancelTween()
	}
}

func (c *Controller) output() Output {
	return Output{
		State:         c.state,
		DwellProgress: c.DwellProgress(),
		Pose:          c.actor,
		Target:        c.CurrentTarget(),
	}
}
