package gaze

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-vrtour/pkg/easing"
)

// Config holds the tunable parameters for gaze selection.
type Config struct {
	// DwellThreshold is how long (seconds) a target must be fixated before
	// it is selected.
	DwellThreshold float64

	// TweenSpeed is the travel speed toward a selected target (units/second).
	TweenSpeed float64

	// Curve shapes tween progress. Nil means easing.EaseInOut.
	Curve easing.Curve
}

// DefaultConfig returns a 3 second dwell and 1 unit/s ease-in-out tween.
func DefaultConfig() Config {
	return Config{
		DwellThreshold: 3.0,
		TweenSpeed:     1.0,
		Curve:          easing.EaseInOut,
	}
}

// ErrInvalidConfig is wrapped by Validate failures.
var ErrInvalidConfig = errors.New("gaze: invalid config")

// Validate rejects configurations a caller should not set deliberately.
// The controller itself tolerates them: a non-positive threshold selects
// on the next tick and a non-positive speed skips the tween.
func (c Config) Validate() error {
	if c.DwellThreshold <= 0 {
		return fmt.Errorf("%w: dwell threshold must be positive, got %v", ErrInvalidConfig, c.DwellThreshold)
	}
	if c.TweenSpeed <= 0 {
		return fmt.Errorf("%w: tween speed must be positive, got %v", ErrInvalidConfig, c.TweenSpeed)
	}
	return nil
}

func (c Config) curve() easing.Curve {
	if c.Curve == nil {
		return easing.EaseInOut
	}
	return c.Curve
}
