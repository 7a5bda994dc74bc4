// Package session drives the gaze controller for one viewer: it latches the
// latest raycast hit, ticks the controller at a fixed rate and publishes a
// snapshot after every step.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/gaze"
	"github.com/teslashibe/go-vrtour/pkg/metrics"
	"github.com/teslashibe/go-vrtour/pkg/pose"
	"github.com/teslashibe/go-vrtour/pkg/rig"
	"github.com/teslashibe/go-vrtour/pkg/tour"
	"github.com/teslashibe/go-vrtour/pkg/tween"
)

// ErrAlreadyThere is returned by TweenTo when the actor is at the location.
var ErrAlreadyThere = errors.New("session: already at location")

// Config holds driver loop settings.
type Config struct {
	TickHz  float64 // fixed update rate
	MaxStep float64 // largest dt in seconds fed to the controller after a stall
	Rig     rig.Config
}

// DefaultConfig returns a 60 Hz loop.
func DefaultConfig() Config {
	return Config{
		TickHz:  60,
		MaxStep: 0.25,
		Rig:     rig.DefaultConfig(),
	}
}

// Snapshot is the per-step view of the session published to sinks.
type Snapshot struct {
	Tick          uint64         `json:"tick"`
	State         gaze.State     `json:"state"`
	DwellProgress float64        `json:"dwell_progress"`
	Indicator     gaze.Indicator `json:"indicator"`
	Pose          pose.Pose      `json:"pose"`
	View          pose.Pose      `json:"view"`
	Target        string         `json:"target,omitempty"`
	Location      string         `json:"location,omitempty"`
	Selected      bool           `json:"selected,omitempty"`
	Arrived       bool           `json:"arrived,omitempty"`
}

// Sink receives snapshots. Publish is called outside the session lock and
// must not block for long.
type Sink interface {
	Publish(Snapshot)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Snapshot)

func (f SinkFunc) Publish(s Snapshot) { f(s) }

// Session owns the controller for one viewer. Safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	cfg     Config
	tour    *tour.Tour
	pending *tour.Tour
	ctrl    *gaze.Controller
	look    *rig.Rig
	hit     string
	tick    uint64
	last    Snapshot

	// reason overrides the cancellation reason reported to metrics while a
	// manual command runs
	reason string

	sinksMu sync.RWMutex
	sinks   []Sink

	logger *slog.Logger
}

// New creates a session placed at the tour's start location.
func New(t *tour.Tour, cfg Config, sinks ...Sink) (*Session, error) {
	if cfg.TickHz <= 0 {
		cfg.TickHz = DefaultConfig().TickHz
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = DefaultConfig().MaxStep
	}
	gcfg, err := t.Gaze()
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	s := &Session{
		cfg:    cfg,
		tour:   t,
		look:   rig.New(cfg.Rig),
		sinks:  sinks,
		logger: log.Component("session"),
	}
	start := t.StartLocation()
	s.ctrl = gaze.New(gcfg, start.Pose, observer{s})
	s.ctrl.Teleport(start.Target())
	s.last = s.snapshotLocked(gaze.Output{State: gaze.Idle, Pose: start.Pose})
	return s, nil
}

// SetLogger replaces the session logger.
func (s *Session) SetLogger(l *slog.Logger) {
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
}

// AddSink registers a snapshot receiver.
func (s *Session) AddSink(sink Sink) {
	s.sinksMu.Lock()
	s.sinks = append(s.sinks, sink)
	s.sinksMu.Unlock()
}

// SetHit latches the location currently under the viewer's gaze. IDs that
// are not in the tour count as no hit.
func (s *Session) SetHit(id string) {
	s.mu.Lock()
	s.hit = id
	s.mu.Unlock()
}

// ClearHit latches "nothing hit".
func (s *Session) ClearHit() {
	s.SetHit("")
}

// Hit returns the latched hit ID.
func (s *Session) Hit() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hit
}

// Step advances the controller by dt seconds with the latched hit and
// publishes the resulting snapshot.
func (s *Session) Step(dt float64) Snapshot {
	s.mu.Lock()
	var hit *gaze.Target
	if s.hit != "" {
		if loc, _, err := s.tour.ByID(s.hit); err == nil {
			target := loc.Target()
			hit = &target
		}
	}
	out := s.ctrl.Tick(hit, dt)
	s.applyPendingLocked()
	snap := s.snapshotLocked(out)
	s.mu.Unlock()

	s.publish(snap)
	return snap
}

// Run steps the session at the configured rate until ctx is cancelled.
// dt is measured between ticks and capped at MaxStep.
func (s *Session) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / s.cfg.TickHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("session loop started", "tick_hz", s.cfg.TickHz)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("session loop stopped")
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt <= 0 {
				dt = interval.Seconds()
			}
			if dt > s.cfg.MaxStep {
				dt = s.cfg.MaxStep
			}
			s.Step(dt)
		}
	}
}

// Jump teleports the actor to the location at index.
func (s *Session) Jump(index int) error {
	s.mu.Lock()
	loc, err := s.tour.ByIndex(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.reason = metrics.ReasonManual
	s.ctrl.Teleport(loc.Target())
	s.reason = ""
	s.applyPendingLocked()
	snap := s.snapshotLocked(s.outputLocked())
	s.mu.Unlock()

	s.logger.Info("jumped to location", "location", loc.ID, "index", index)
	s.publish(snap)
	return nil
}

// TweenTo starts moving to the location at index, bypassing dwell.
func (s *Session) TweenTo(index int) error {
	return s.tweenTo(index, "api")
}

// Shortcut handles digit keys 1-9, which move to locations 0-8.
func (s *Session) Shortcut(digit int) error {
	if digit < 1 || digit > 9 {
		return fmt.Errorf("%w: shortcut %d", tour.ErrIndexOutOfRange, digit)
	}
	return s.tweenTo(digit-1, "shortcut")
}

func (s *Session) tweenTo(index int, source string) error {
	s.mu.Lock()
	loc, err := s.tour.ByIndex(index)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.reason = metrics.ReasonManual
	ok := s.ctrl.TweenTo(loc.Target())
	s.reason = ""
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyThere, loc.ID)
	}
	s.observeTween(loc.Target())
	snap := s.snapshotLocked(s.outputLocked())
	s.mu.Unlock()

	metrics.SelectionsTotal.WithLabelValues(source).Inc()
	s.logger.Info("tween started", "location", loc.ID, "source", source)
	s.publish(snap)
	return nil
}

// Reset cancels any dwell or tween, keeping the actor where it is.
func (s *Session) Reset() {
	s.mu.Lock()
	s.reason = metrics.ReasonManual
	s.ctrl.Reset()
	s.reason = ""
	s.hit = ""
	s.applyPendingLocked()
	snap := s.snapshotLocked(s.outputLocked())
	s.mu.Unlock()

	s.publish(snap)
}

// Look applies a look input delta to the viewer rig.
func (s *Session) Look(dx, dy float64) {
	s.look.Look(dx, dy)
}

// SetView sets the viewer orientation from absolute yaw/pitch degrees.
func (s *Session) SetView(yawDeg, pitchDeg float64) {
	s.look.Set(yawDeg, pitchDeg)
}

// SetConfig replaces the selection configuration. A running dwell or tween
// keeps its parameters; the new values apply from the next one.
func (s *Session) SetConfig(cfg gaze.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.ctrl.SetConfig(cfg)
	s.mu.Unlock()
	s.logger.Info("config updated", "dwell_threshold", cfg.DwellThreshold, "tween_speed", cfg.TweenSpeed)
	return nil
}

// Config returns the selection configuration.
func (s *Session) Config() gaze.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Config()
}

// Tour returns the active tour.
func (s *Session) Tour() *tour.Tour {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tour
}

// ReloadTour swaps in a new tour. If a dwell or tween is in progress the
// swap waits until the controller is idle again. It reports whether the tour
// was applied immediately.
func (s *Session) ReloadTour(t *tour.Tour) (bool, error) {
	cfg, err := t.Gaze()
	if err != nil {
		return false, fmt.Errorf("session: reload: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("session: reload: %w", err)
	}

	s.mu.Lock()
	s.pending = t
	s.applyPendingLocked()
	applied := s.pending == nil
	s.mu.Unlock()

	if !applied {
		s.logger.Info("tour reload deferred until idle", "tour", t.Name)
	}
	return applied, nil
}

// Snapshot returns the last published snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) applyPendingLocked() {
	if s.pending == nil || s.ctrl.State() != gaze.Idle {
		return
	}
	t := s.pending
	s.pending = nil

	cfg, _ := t.Gaze()
	s.tour = t
	s.ctrl.SetConfig(cfg)
	s.logger.Info("tour applied", "tour", t.Name, "locations", t.Len())
}

func (s *Session) outputLocked() gaze.Output {
	return gaze.Output{
		State:         s.ctrl.State(),
		DwellProgress: s.ctrl.DwellProgress(),
		Pose:          s.ctrl.Pose(),
		Target:        s.ctrl.CurrentTarget(),
	}
}

func (s *Session) snapshotLocked(out gaze.Output) Snapshot {
	s.tick++
	snap := Snapshot{
		Tick:          s.tick,
		State:         out.State,
		DwellProgress: out.DwellProgress,
		Indicator:     out.Indicator(),
		Pose:          out.Pose,
		View:          s.look.View(out.Pose.Position),
		Target:        out.Target,
		Location:      s.ctrl.ArrivedAt(),
		Selected:      out.Selected,
		Arrived:       out.Arrived,
	}
	s.last = snap

	metrics.ControllerState.Set(float64(out.State))
	metrics.DwellProgress.Set(out.DwellProgress)
	return snap
}

func (s *Session) publish(snap Snapshot) {
	s.sinksMu.RLock()
	defer s.sinksMu.RUnlock()
	for _, sink := range s.sinks {
		sink.Publish(snap)
	}
}

// observeTween records the planned duration of a tween that just started.
func (s *Session) observeTween(t gaze.Target) {
	speed := s.ctrl.Config().TweenSpeed
	d := pose.Distance(s.ctrl.Pose(), t.Pose)
	if speed <= 0 || d < tween.MinDistance {
		return
	}
	metrics.TweenDuration.Observe(d / speed)
}
