// Package gallery is a carousel of 360° images and videos with optional
// color-keyed hotspot masks.
package gallery

import (
	"errors"
	"fmt"
	"sync"

	"github.com/h2non/filetype"
)

var (
	ErrEmpty             = errors.New("gallery: no media")
	ErrIndexOutOfRange   = errors.New("gallery: index out of range")
	ErrUnsupportedMedia  = errors.New("gallery: unsupported media type")
	ErrMaskNotSampleable = errors.New("gallery: mask cannot be sampled")
)

// Kind is the media variant of a clip.
type Kind int

const (
	KindUnknown Kind = iota
	KindImage
	KindVideo
)

var kindNames = [...]string{"unknown", "image", "video"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *Kind) UnmarshalText(text []byte) error {
	for i, name := range kindNames {
		if name == string(text) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("gallery: unknown kind %q", text)
}

// DetectKind classifies a file from its leading bytes.
func DetectKind(header []byte) Kind {
	switch {
	case filetype.IsImage(header):
		return KindImage
	case filetype.IsVideo(header):
		return KindVideo
	default:
		return KindUnknown
	}
}

// Media is one entry of the carousel.
type Media struct {
	Path     string    `json:"path"`
	Kind     Kind      `json:"kind"`
	Mask     *Mask     `json:"mask,omitempty"`
	Hotspots []Hotspot `json:"hotspots,omitempty"`
}

// Gallery cycles through media. Safe for concurrent use.
type Gallery struct {
	mu    sync.RWMutex
	items []Media
	index int
}

// New creates a gallery showing the first item.
func New(items []Media) (*Gallery, error) {
	if len(items) == 0 {
		return nil, ErrEmpty
	}
	for i, m := range items {
		if m.Kind != KindImage && m.Kind != KindVideo {
			return nil, fmt.Errorf("%w: item %d (%s) is %s", ErrUnsupportedMedia, i, m.Path, m.Kind)
		}
	}
	return &Gallery{items: items}, nil
}

// Len returns the number of items.
func (g *Gallery) Len() int {
	return len(g.items)
}

// Items returns a copy of the media list.
func (g *Gallery) Items() []Media {
	out := make([]Media, len(g.items))
	copy(out, g.items)
	return out
}

// Current returns the shown item and its index.
func (g *Gallery) Current() (Media, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.items[g.index], g.index
}

// Next shows the following item, wrapping to the first.
func (g *Gallery) Next() Media {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index = (g.index + 1) % len(g.items)
	return g.items[g.index]
}

// Prev shows the preceding item, wrapping to the last.
func (g *Gallery) Prev() Media {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.index = (g.index - 1 + len(g.items)) % len(g.items)
	return g.items[g.index]
}

// Show jumps to item i.
func (g *Gallery) Show(i int) (Media, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if i < 0 || i >= len(g.items) {
		return Media{}, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(g.items))
	}
	g.index = i
	return g.items[i], nil
}

// Probe looks up the hotspot under texture coordinate (u, v) of the current
// item's mask. found is false when the item has no mask or no hotspot color
// matches.
func (g *Gallery) Probe(u, v float64) (Hotspot, bool, error) {
	m, _ := g.Current()
	if m.Mask == nil {
		return Hotspot{}, false, nil
	}
	c, err := m.Mask.Sample(u, v)
	if err != nil {
		return Hotspot{}, false, err
	}
	h, ok := Match(m.Hotspots, c)
	return h, ok, nil
}
