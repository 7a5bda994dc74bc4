// Package tour loads the set of locations a viewer can move between.
package tour

import (
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-vrtour/pkg/easing"
	"github.com/teslashibe/go-vrtour/pkg/gaze"
	"github.com/teslashibe/go-vrtour/pkg/pose"
)

var (
	ErrIndexOutOfRange = errors.New("tour: location index out of range")
	ErrUnknownLocation = errors.New("tour: unknown location")
	ErrInvalid         = errors.New("tour: invalid tour")
)

// Location is a marker the actor can be moved to.
type Location struct {
	ID   string    `yaml:"id" json:"id"`
	Name string    `yaml:"name" json:"name"`
	Pose pose.Pose `yaml:"pose" json:"pose"`
}

// Target converts the location into a selectable gaze target.
func (l Location) Target() gaze.Target {
	return gaze.Target{ID: l.ID, Pose: l.Pose}
}

// Settings are the selection parameters stored with a tour.
type Settings struct {
	DwellThreshold float64      `yaml:"dwell_threshold" json:"dwell_threshold"`
	TweenSpeed     float64      `yaml:"tween_speed" json:"tween_speed"`
	Curve          string       `yaml:"curve,omitempty" json:"curve,omitempty"`
	Keys           []easing.Key `yaml:"keys,omitempty" json:"keys,omitempty"`
}

// Tour is an ordered list of locations plus selection settings.
type Tour struct {
	Name      string     `yaml:"name" json:"name"`
	Start     int        `yaml:"start" json:"start"`
	Settings  Settings   `yaml:"settings" json:"settings"`
	Locations []Location `yaml:"locations" json:"locations"`
}

// Load reads and parses a tour file.
func Load(path string) (*Tour, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tour %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load tour %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML tour, fills defaults and validates it.
// Locations without an ID get a random UUID.
func Parse(data []byte) (*Tour, error) {
	var t Tour
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode tour: %w", err)
	}

	def := gaze.DefaultConfig()
	if t.Settings.DwellThreshold == 0 {
		t.Settings.DwellThreshold = def.DwellThreshold
	}
	if t.Settings.TweenSpeed == 0 {
		t.Settings.TweenSpeed = def.TweenSpeed
	}
	for i := range t.Locations {
		if t.Locations[i].ID == "" {
			t.Locations[i].ID = uuid.NewString()
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Validate checks the tour is usable.
func (t *Tour) Validate() error {
	if len(t.Locations) == 0 {
		return fmt.Errorf("%w: no locations", ErrInvalid)
	}
	seen := make(map[string]bool, len(t.Locations))
	for i, loc := range t.Locations {
		if loc.ID == "" {
			return fmt.Errorf("%w: location %d has no id", ErrInvalid, i)
		}
		if seen[loc.ID] {
			return fmt.Errorf("%w: duplicate location id %q", ErrInvalid, loc.ID)
		}
		seen[loc.ID] = true
	}
	if t.Start < 0 || t.Start >= len(t.Locations) {
		return fmt.Errorf("%w: start index %d", ErrInvalid, t.Start)
	}
	cfg, err := t.Gaze()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Len returns the number of locations.
func (t *Tour) Len() int {
	return len(t.Locations)
}

// ByIndex returns the location at i.
func (t *Tour) ByIndex(i int) (Location, error) {
	if i < 0 || i >= len(t.Locations) {
		return Location{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(t.Locations))
	}
	return t.Locations[i], nil
}

// ByID returns the location with the given ID and its index.
func (t *Tour) ByID(id string) (Location, int, error) {
	for i, loc := range t.Locations {
		if loc.ID == id {
			return loc, i, nil
		}
	}
	return Location{}, -1, fmt.Errorf("%w: %q", ErrUnknownLocation, id)
}

// StartLocation returns the location the actor is placed at on load.
func (t *Tour) StartLocation() Location {
	return t.Locations[t.Start]
}

// Gaze builds the controller configuration from the tour settings.
// Explicit keyframes take precedence over a named curve.
func (t *Tour) Gaze() (gaze.Config, error) {
	var (
		curve easing.Curve
		err   error
	)
	if len(t.Settings.Keys) > 0 {
		curve, err = easing.Keyframes(t.Settings.Keys...)
	} else {
		curve, err = easing.ByName(t.Settings.Curve)
	}
	if err != nil {
		return gaze.Config{}, fmt.Errorf("tween curve: %w", err)
	}
	return gaze.Config{
		DwellThreshold: t.Settings.DwellThreshold,
		TweenSpeed:     t.Settings.TweenSpeed,
		Curve:          curve,
	}, nil
}
