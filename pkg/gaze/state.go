package gaze

import (
	"fmt"

	"github.com/teslashibe/go-vrtour/pkg/pose"
)

// State is the selection controller's phase.
type State int

const (
	// Idle: nothing tracked.
	Idle State = iota
	// Dwelling: a target is fixated and the dwell timer is running.
	Dwelling
	// Tweening: the actor is moving toward a selected target.
	Tweening
)

var stateNames = [...]string{"idle", "dwelling", "tweening"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("gaze: unknown state %q", text)
}

// Target is a selectable marker as reported by the raycast layer.
// The pose is copied by value; later changes to the marker do not affect a
// tween already in flight.
type Target struct {
	ID   string
	Pose pose.Pose
}

// Indicator names the UI cursor the render layer should show.
type Indicator string

const (
	IndicatorPointer Indicator = "pointer"
	IndicatorGaze    Indicator = "gaze"
)

// Output is the controller's per-tick result.
type Output struct {
	State State
	// DwellProgress is the radial fill fraction: the dwell progress while
	// Dwelling, 1 on the selecting tick, 0 otherwise.
	DwellProgress float64
	// Pose is the actor pose; it only changes while Tweening or on Teleport.
	Pose pose.Pose
	// Target is the tracked target ID, empty when Idle.
	Target string
	// Selected is true only on the tick a dwell completed.
	Selected bool
	// Arrived is true only on the tick a tween reached its destination.
	Arrived bool
}

// Indicator returns the cursor to show for this output.
func (o Output) Indicator() Indicator {
	if o.State == Dwelling {
		return IndicatorGaze
	}
	return IndicatorPointer
}

// Observer receives controller transitions synchronously from Tick.
type Observer interface {
	DwellStarted(t Target)
	DwellCancelled(t Target)
	Selected(t Target)
	Arrived(t Target)
	TweenCancelled(t Target)
}

// NopObserver ignores all events. Embed it to implement a subset.
type NopObserver struct{}

func (NopObserver) DwellStarted(Target)   {}
func (NopObserver) DwellCancelled(Target) {}
func (NopObserver) Selected(Target)       {}
func (NopObserver) Arrived(Target)        {}
func (NopObserver) TweenCancelled(Target) {}
