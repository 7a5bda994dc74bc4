package gallery

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// MatchTolerance is the maximum RGB distance between a sampled mask pixel
// and a hotspot key color.
const MatchTolerance = 0.1

// Color is an RGB color with channels in [0, 1].
type Color struct {
	R, G, B float64
}

// ParseColor parses "#rrggbb" or "rrggbb".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return Color{}, fmt.Errorf("gallery: bad color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("gallery: bad color %q: %w", s, err)
	}
	return Color{
		R: float64(v>>16&0xff) / 255,
		G: float64(v>>8&0xff) / 255,
		B: float64(v&0xff) / 255,
	}, nil
}

// FromColor converts any image color, ignoring alpha.
func FromColor(c color.Color) Color {
	r, g, b, _ := c.RGBA()
	return Color{R: float64(r) / 0xffff, G: float64(g) / 0xffff, B: float64(b) / 0xffff}
}

// Distance is the Euclidean RGB distance.
func (c Color) Distance(o Color) float64 {
	dr, dg, db := c.R-o.R, c.G-o.G, c.B-o.B
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

func (c Color) String() string {
	to8 := func(v float64) uint8 { return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", to8(c.R), to8(c.G), to8(c.B))
}

// MarshalText encodes the color as #rrggbb.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes #rrggbb.
func (c *Color) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Hotspot labels the mask region painted in Color.
type Hotspot struct {
	Label string `json:"label" yaml:"label"`
	Color Color  `json:"color" yaml:"color"`
}

// Match returns the first hotspot whose color lies within MatchTolerance of c.
func Match(hotspots []Hotspot, c Color) (Hotspot, bool) {
	for _, h := range hotspots {
		if h.Color.Distance(c) < MatchTolerance {
			return h, true
		}
	}
	return Hotspot{}, false
}

// Mask is the hotspot layer laid over a media item. Only still image masks
// can be sampled.
type Mask struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
	img  image.Image
}

// NewImageMask wraps a decoded mask image.
func NewImageMask(path string, img image.Image) *Mask {
	return &Mask{Path: path, Kind: KindImage, img: img}
}

// NewVideoMask records a video mask. Sampling it always fails.
func NewVideoMask(path string) *Mask {
	return &Mask{Path: path, Kind: KindVideo}
}

// Sample reads the mask color at texture coordinate (u, v), where (0, 0) is
// the bottom-left corner. Coordinates outside [0, 1] are clamped to the edge.
func (m *Mask) Sample(u, v float64) (Color, error) {
	if m.Kind != KindImage || m.img == nil {
		return Color{}, fmt.Errorf("%w: %s mask %s", ErrMaskNotSampleable, m.Kind, m.Path)
	}
	b := m.img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return Color{}, fmt.Errorf("%w: empty mask %s", ErrMaskNotSampleable, m.Path)
	}
	x := clampInt(int(u*float64(w)), 0, w-1)
	y := clampInt(int(v*float64(h)), 0, h-1)
	return FromColor(m.img.At(b.Min.X+x, b.Max.Y-1-y)), nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
