package easing

import (
	"fmt"
	"sort"
)

// Key is a single point on a keyframed curve.
// InTangent and OutTangent are slopes (dValue/dTime) on each side of the key.
type Key struct {
	Time       float64 `yaml:"time" json:"time"`
	Value      float64 `yaml:"value" json:"value"`
	InTangent  float64 `yaml:"in" json:"in"`
	OutTangent float64 `yaml:"out" json:"out"`
}

// Keyframes builds a curve from Hermite keys.
// Outside the key range the curve holds the first or last value.
func Keyframes(keys ...Key) (Curve, error) {
	if len(keys) == 0 {
		return nil, ErrNoKeys
	}
	for i := 1; i < len(keys); i++ {
		if keys[i].Time <= keys[i-1].Time {
			return nil, fmt.Errorf("%w: key %d at %v", ErrUnsortedKeys, i, keys[i].Time)
		}
	}

	ks := make([]Key, len(keys))
	copy(ks, keys)

	return func(t float64) float64 {
		return evaluate(ks, clamp01(t))
	}, nil
}

func evaluate(keys []Key, t float64) float64 {
	if len(keys) == 1 || t <= keys[0].Time {
		return keys[0].Value
	}
	last := keys[len(keys)-1]
	if t >= last.Time {
		return last.Value
	}

	// t lies in (keys[idx-1].Time, keys[idx].Time].
	idx := sort.Search(len(keys), func(i int) bool {
		return keys[i].Time >= t
	})
	k0, k1 := keys[idx-1], keys[idx]

	dt := k1.Time - k0.Time
	s := (t - k0.Time) / dt
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	return h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
}
