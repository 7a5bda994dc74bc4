package rig

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestRig_PitchClamped(t *testing.T) {
	r := New(DefaultConfig())

	r.Look(0, 30)
	r.Look(0, 30)
	if _, pitch := r.Angles(); pitch != 45 {
		t.Errorf("Expected pitch clamped to 45, got %v", pitch)
	}

	r.Look(0, -200)
	if _, pitch := r.Angles(); pitch != -45 {
		t.Errorf("Expected pitch clamped to -45, got %v", pitch)
	}
}

func TestRig_YawWraps(t *testing.T) {
	r := New(Config{SpeedX: 10, SpeedY: 1})

	r.Look(-20, 0) // 200° to the left
	yaw, _ := r.Angles()
	if yaw != -160 {
		t.Errorf("Expected yaw -160, got %v", yaw)
	}
}

func TestRig_Forward(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-12)
	tests := []struct {
		name   string
		dx, dy float64
		want   mgl64.Vec3
	}{
		{"ahead", 0, 0, mgl64.Vec3{0, 0, -1}},
		{"right", 90, 0, mgl64.Vec3{1, 0, 0}},
		{"left", -90, 0, mgl64.Vec3{-1, 0, 0}},
		{"up", 0, 45, mgl64.Vec3{0, 0.7071067811865476, -0.7071067811865476}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(DefaultConfig())
			r.Look(tt.dx, tt.dy)
			if diff := cmp.Diff(tt.want, r.Forward(), approx); diff != "" {
				t.Errorf("Forward() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRig_Reset(t *testing.T) {
	r := New(DefaultConfig())
	r.Look(33, 12)
	r.Reset()

	if yaw, pitch := r.Angles(); yaw != 0 || pitch != 0 {
		t.Errorf("Expected zero angles after Reset, got %v/%v", yaw, pitch)
	}
	if !r.Orientation().ApproxEqualThreshold(mgl64.QuatIdent(), 1e-12) {
		t.Errorf("Expected identity orientation, got %v", r.Orientation())
	}
}

func TestRig_Set(t *testing.T) {
	r := New(Config{SpeedX: 1, SpeedY: 1, PitchLimit: 30})
	r.Set(370, 80)

	yaw, pitch := r.Angles()
	if yaw != 10 || pitch != 30 {
		t.Errorf("Expected 10/30, got %v/%v", yaw, pitch)
	}

	v := r.View(mgl64.Vec3{1, 2, 3})
	if v.Position != (mgl64.Vec3{1, 2, 3}) {
		t.Errorf("Expected eye position kept, got %v", v.Position)
	}
}
