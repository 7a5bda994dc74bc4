// Package pose provides position + orientation snapshots for tour actors
// and waypoint markers.
package pose

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a position and orientation in world space.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// Identity returns a pose at the origin with no rotation.
func Identity() Pose {
	return Pose{Orientation: mgl64.QuatIdent()}
}

// New creates a pose, normalizing the orientation.
// A zero quaternion is treated as identity.
func New(position mgl64.Vec3, orientation mgl64.Quat) Pose {
	return Pose{Position: position, Orientation: normalize(orientation)}
}

// At returns an unrotated pose at position (x, y, z).
func At(x, y, z float64) Pose {
	return Pose{Position: mgl64.Vec3{x, y, z}, Orientation: mgl64.QuatIdent()}
}

// FromYawPitch builds a pose from a position and yaw/pitch in degrees.
// Yaw rotates about +Y, pitch about +X, applied yaw first.
func FromYawPitch(position mgl64.Vec3, yawDeg, pitchDeg float64) Pose {
	yaw := mgl64.QuatRotate(mgl64.DegToRad(yawDeg), mgl64.Vec3{0, 1, 0})
	pitch := mgl64.QuatRotate(mgl64.DegToRad(pitchDeg), mgl64.Vec3{1, 0, 0})
	return Pose{Position: position, Orientation: yaw.Mul(pitch).Normalize()}
}

// Distance returns the positional distance between a and b.
func Distance(a, b Pose) float64 {
	return b.Position.Sub(a.Position).Len()
}

// Lerp interpolates from a to b at t: linear for position, shortest-arc
// spherical for orientation. t is not clamped.
func Lerp(a, b Pose, t float64) Pose {
	pos := a.Position.Add(b.Position.Sub(a.Position).Mul(t))

	qa, qb := normalize(a.Orientation), normalize(b.Orientation)
	if qa.Dot(qb) < 0 {
		qb = qb.Scale(-1)
	}
	return Pose{Position: pos, Orientation: mgl64.QuatSlerp(qa, qb, t)}
}

// ApproxEqual reports whether p and o match within eps. Orientations q and -q
// are considered equal.
func (p Pose) ApproxEqual(o Pose, eps float64) bool {
	if !p.Position.ApproxEqualThreshold(o.Position, eps) {
		return false
	}
	d := math.Abs(normalize(p.Orientation).Dot(normalize(o.Orientation)))
	return 1-d <= eps
}

// Forward returns the direction the pose faces (-Z rotated by orientation).
func (p Pose) Forward() mgl64.Vec3 {
	return normalize(p.Orientation).Rotate(mgl64.Vec3{0, 0, -1})
}

// Up returns the pose's up vector (+Y rotated by orientation).
func (p Pose) Up() mgl64.Vec3 {
	return normalize(p.Orientation).Rotate(mgl64.Vec3{0, 1, 0})
}

// Billboard returns p re-oriented to share the viewer's orientation, so a
// flat marker at p faces the camera plane.
func (p Pose) Billboard(viewer Pose) Pose {
	return Pose{Position: p.Position, Orientation: normalize(viewer.Orientation)}
}

func (p Pose) String() string {
	q := p.Orientation
	return fmt.Sprintf("pos=(%.3f,%.3f,%.3f) rot=(%.3f,%.3f,%.3f,%.3f)",
		p.Position[0], p.Position[1], p.Position[2], q.W, q.V[0], q.V[1], q.V[2])
}

// wirePose is the JSON/YAML form: position [x,y,z], orientation [w,x,y,z].
type wirePose struct {
	Position    [3]float64  `json:"position" yaml:"position"`
	Orientation *[4]float64 `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Yaw         float64     `json:"-" yaml:"yaw,omitempty"`
	Pitch       float64     `json:"-" yaml:"pitch,omitempty"`
}

// MarshalJSON encodes the pose as {"position":[x,y,z],"orientation":[w,x,y,z]}.
func (p Pose) MarshalJSON() ([]byte, error) {
	q := normalize(p.Orientation)
	return json.Marshal(wirePose{
		Position:    p.Position,
		Orientation: &[4]float64{q.W, q.V[0], q.V[1], q.V[2]},
	})
}

// UnmarshalJSON decodes the form written by MarshalJSON. A missing
// orientation decodes as identity.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var w wirePose
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode pose: %w", err)
	}
	*p = w.pose()
	return nil
}

// UnmarshalYAML decodes a pose from YAML. Orientation may be given either as
// a [w,x,y,z] quaternion or as yaw/pitch degrees.
func (p *Pose) UnmarshalYAML(unmarshal func(any) error) error {
	var w wirePose
	if err := unmarshal(&w); err != nil {
		return fmt.Errorf("decode pose: %w", err)
	}
	*p = w.pose()
	return nil
}

// MarshalYAML encodes the pose with a quaternion orientation.
func (p Pose) MarshalYAML() (any, error) {
	q := normalize(p.Orientation)
	return wirePose{
		Position:    p.Position,
		Orientation: &[4]float64{q.W, q.V[0], q.V[1], q.V[2]},
	}, nil
}

func (w wirePose) pose() Pose {
	pos := mgl64.Vec3(w.Position)
	if w.Orientation != nil {
		o := w.Orientation
		return New(pos, mgl64.Quat{W: o[0], V: mgl64.Vec3{o[1], o[2], o[3]}})
	}
	return FromYawPitch(pos, w.Yaw, w.Pitch)
}

func normalize(q mgl64.Quat) mgl64.Quat {
	if q.Len() < 1e-12 {
		return mgl64.QuatIdent()
	}
	return q.Normalize()
}
