// Package easing provides normalized easing curves for tweened motion.
//
// A Curve maps normalized time in [0,1] to normalized progress. Inputs outside
// [0,1] are clamped before evaluation.
package easing

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Curve maps normalized time to normalized progress.
type Curve func(t float64) float64

// Errors returned by curve construction and lookup.
var (
	ErrUnknownCurve = errors.New("easing: unknown curve")
	ErrNoKeys       = errors.New("easing: curve has no keys")
	ErrUnsortedKeys = errors.New("easing: keys must be sorted by strictly increasing time")
)

// Linear returns t.
func Linear(t float64) float64 {
	return clamp01(t)
}

// EaseInOut is a cubic Hermite curve from (0,0) to (1,1) with flat tangents.
func EaseInOut(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

// EaseIn starts slow and ends at full speed.
func EaseIn(t float64) float64 {
	t = clamp01(t)
	return t * t
}

// EaseOut starts at full speed and ends slow.
func EaseOut(t float64) float64 {
	t = clamp01(t)
	return t * (2 - t)
}

var named = map[string]Curve{
	"linear":      Linear,
	"ease-in-out": EaseInOut,
	"ease-in":     EaseIn,
	"ease-out":    EaseOut,
}

// Names returns the registered curve names in sorted order.
func Names() []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ByName looks up a registered curve. An empty name selects EaseInOut.
func ByName(name string) (Curve, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return EaseInOut, nil
	}
	c, ok := named[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurve, name)
	}
	return c, nil
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
