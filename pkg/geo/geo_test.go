package geo

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDistance(t *testing.T) {
	oneDegree := EarthRadius * math.Pi / 180

	tests := []struct {
		name string
		a, b Coord
		want float64
		tol  float64
	}{
		{"same point", Coord{48.2, 16.37}, Coord{48.2, 16.37}, 0, 1e-9},
		{"one degree of longitude on the equator", Coord{0, 0}, Coord{0, 1}, oneDegree, 1e-6},
		{"one degree of latitude", Coord{10, 20}, Coord{11, 20}, oneDegree, 1e-6},
		{"london to paris", Coord{51.5074, -0.1278}, Coord{48.8566, 2.3522}, 343_556, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("Distance() = %v, want %v ± %v", got, tt.want, tt.tol)
			}
			if back := Distance(tt.b, tt.a); math.Abs(back-got) > 1e-6 {
				t.Errorf("Distance not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestBearingAndDirection(t *testing.T) {
	origin := Coord{0, 0}
	tests := []struct {
		name          string
		to            Coord
		bearing, back float64
	}{
		{"north", Coord{1, 0}, 0, 180},
		{"east", Coord{0, 1}, 90, 270},
		{"south", Coord{-1, 0}, 180, 0},
		{"west", Coord{0, -1}, 270, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Bearing(origin, tt.to); math.Abs(got-tt.bearing) > 1e-9 {
				t.Errorf("Bearing() = %v, want %v", got, tt.bearing)
			}
			if got := Direction(origin, tt.to); math.Abs(got-tt.back) > 1e-9 {
				t.Errorf("Direction() = %v, want %v", got, tt.back)
			}
		})
	}

	if got := Bearing(origin, origin); got != 0 {
		t.Errorf("Expected bearing 0 for identical points, got %v", got)
	}
}

func TestHeadingVector(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-12)
	tests := map[float64]mgl64.Vec3{
		0:   {0, 0, -1},
		90:  {1, 0, 0},
		180: {0, 0, 1},
		270: {-1, 0, 0},
	}
	for deg, want := range tests {
		if diff := cmp.Diff(want, HeadingVector(deg), approx); diff != "" {
			t.Errorf("HeadingVector(%v) mismatch (-want +got):\n%s", deg, diff)
		}
	}
}

func TestTracker(t *testing.T) {
	var tr Tracker

	if _, ok := tr.Current(); ok {
		t.Error("Expected no position before first update")
	}

	first := tr.Update(Coord{0, 0})
	if first.Distance != 0 {
		t.Errorf("Expected zero distance on first fix, got %v", first.Distance)
	}

	fix := tr.Update(Coord{0, 1})
	if fix.From != (Coord{0, 0}) || fix.To != (Coord{0, 1}) {
		t.Errorf("Unexpected fix endpoints: %+v", fix)
	}
	if math.Abs(fix.Direction-270) > 1e-9 {
		t.Errorf("Expected direction 270, got %v", fix.Direction)
	}
	if fix != tr.Fix() {
		t.Errorf("Fix() = %+v, want %+v", tr.Fix(), fix)
	}

	cur, ok := tr.Current()
	if !ok || cur != (Coord{0, 1}) {
		t.Errorf("Current() = %v, %v", cur, ok)
	}
}
