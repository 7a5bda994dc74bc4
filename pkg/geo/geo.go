// Package geo computes distance and heading between GPS fixes.
package geo

import (
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// EarthRadius is the mean earth radius in meters.
const EarthRadius = 6371e3

// Coord is a latitude/longitude pair in degrees.
type Coord struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Distance returns the great-circle distance in meters (haversine).
func Distance(a, b Coord) float64 {
	phi1 := mgl64.DegToRad(a.Lat)
	phi2 := mgl64.DegToRad(b.Lat)
	dPhi := mgl64.DegToRad(b.Lat - a.Lat)
	dLambda := mgl64.DegToRad(b.Lon - a.Lon)

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return EarthRadius * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Bearing returns the initial great-circle bearing from a to b in degrees,
// 0 = north, 90 = east, in [0, 360).
func Bearing(a, b Coord) float64 {
	phi1 := mgl64.DegToRad(a.Lat)
	phi2 := mgl64.DegToRad(b.Lat)
	dLambda := mgl64.DegToRad(b.Lon - a.Lon)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	if math.Abs(x) < 1e-15 && math.Abs(y) < 1e-15 {
		return 0
	}
	return normalizeDeg(mgl64.RadToDeg(math.Atan2(y, x)))
}

// Direction is the bearing from a to b turned around, i.e. the heading that
// points back from b toward a.
func Direction(a, b Coord) float64 {
	return normalizeDeg(Bearing(a, b) + 180)
}

// HeadingVector turns a compass heading into a horizontal unit vector in the
// scene frame, where -Z is north and +X is east.
func HeadingVector(deg float64) mgl64.Vec3 {
	q := mgl64.QuatRotate(mgl64.DegToRad(-deg), mgl64.Vec3{0, 1, 0})
	return q.Rotate(mgl64.Vec3{0, 0, -1})
}

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// Fix summarizes movement between the previous and current positions.
type Fix struct {
	From      Coord   `json:"from"`
	To        Coord   `json:"to"`
	Distance  float64 `json:"distance_m"`
	Direction float64 `json:"direction_deg"`
}

// Tracker keeps the last two GPS positions reported by a device.
type Tracker struct {
	mu      sync.RWMutex
	last    Coord
	current Coord
	seen    int
}

// Update records a new position and returns the movement since the last one.
// The first update reports zero distance.
func (t *Tracker) Update(c Coord) Fix {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen == 0 {
		t.last = c
	} else {
		t.last = t.current
	}
	t.current = c
	t.seen++
	return t.fixLocked()
}

// Fix returns the movement between the last two positions.
func (t *Tracker) Fix() Fix {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.fixLocked()
}

// Current returns the most recent position and whether any was recorded.
func (t *Tracker) Current() (Coord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current, t.seen > 0
}

func (t *Tracker) fixLocked() Fix {
	return Fix{
		From:      t.last,
		To:        t.current,
		Distance:  Distance(t.last, t.current),
		Direction: Direction(t.last, t.current),
	}
}
