package gallery

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

var (
	red   = color.RGBA{255, 0, 0, 255}
	green = color.RGBA{0, 255, 0, 255}
	blue  = color.RGBA{0, 0, 255, 255}
)

// aviHeader is the smallest RIFF/AVI prefix content sniffing recognizes.
var aviHeader = []byte("RIFF\x00\x00\x00\x00AVI LIST\x00\x00\x00\x00")

// maskImage is 4x2: top row blue, bottom row red on the left half and a
// slightly off green on the right half.
func maskImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	for x := 0; x < 4; x++ {
		img.Set(x, 0, blue)
		if x < 2 {
			img.Set(x, 1, red)
		} else {
			img.Set(x, 1, color.RGBA{5, 250, 5, 255})
		}
	}
	return img
}

func hotspots() []Hotspot {
	return []Hotspot{
		{Label: "Fountain", Color: FromColor(red)},
		{Label: "Church", Color: FromColor(green)},
	}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 4)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"png", encodePNG(t, maskImage()), KindImage},
		{"jpeg", encodeJPEG(t), KindImage},
		{"avi", aviHeader, KindVideo},
		{"text", []byte("hello world"), KindUnknown},
		{"empty", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectKind(tt.header); got != tt.want {
				t.Errorf("DetectKind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKind_Text(t *testing.T) {
	for _, k := range []Kind{KindUnknown, KindImage, KindVideo} {
		text, _ := k.MarshalText()
		var back Kind
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Errorf("round trip of %v gave %v, %v", k, back, err)
		}
	}
	var k Kind
	if err := k.UnmarshalText([]byte("audio")); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestGallery_Navigation(t *testing.T) {
	g, err := New([]Media{
		{Path: "a.jpg", Kind: KindImage},
		{Path: "b.mp4", Kind: KindVideo},
		{Path: "c.jpg", Kind: KindImage},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if m, i := g.Current(); i != 0 || m.Path != "a.jpg" {
		t.Errorf("Expected first item shown, got %d %s", i, m.Path)
	}
	if m := g.Prev(); m.Path != "c.jpg" {
		t.Errorf("Expected Prev to wrap to last, got %s", m.Path)
	}
	if m := g.Next(); m.Path != "a.jpg" {
		t.Errorf("Expected Next to wrap to first, got %s", m.Path)
	}
	if m := g.Next(); m.Kind != KindVideo {
		t.Errorf("Expected video second, got %v", m.Kind)
	}

	if _, err := g.Show(3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Expected ErrIndexOutOfRange, got %v", err)
	}
	if m, err := g.Show(2); err != nil || m.Path != "c.jpg" {
		t.Errorf("Show(2) = %v, %v", m.Path, err)
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Expected ErrEmpty, got %v", err)
	}
	if _, err := New([]Media{{Path: "x.bin"}}); !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("Expected ErrUnsupportedMedia, got %v", err)
	}
}

func TestGallery_Probe(t *testing.T) {
	g, err := New([]Media{
		{Path: "a.jpg", Kind: KindImage, Mask: NewImageMask("a.png", maskImage()), Hotspots: hotspots()},
		{Path: "b.jpg", Kind: KindImage},
		{Path: "c.mp4", Kind: KindVideo, Mask: NewVideoMask("c_mask.mp4"), Hotspots: hotspots()},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name      string
		u, v      float64
		wantLabel string
		wantFound bool
	}{
		{"bottom left is red", 0.1, 0.1, "Fountain", true},
		{"bottom right is near green", 0.9, 0.1, "Church", true},
		{"top row is unlabelled", 0.1, 0.9, "", false},
		{"clamped below range", -1, -1, "Fountain", true},
		{"clamped above range", 2, 0, "Church", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, found, err := g.Probe(tt.u, tt.v)
			if err != nil {
				t.Fatalf("Probe() error = %v", err)
			}
			if found != tt.wantFound || h.Label != tt.wantLabel {
				t.Errorf("Probe() = %q, %v; want %q, %v", h.Label, found, tt.wantLabel, tt.wantFound)
			}
		})
	}

	g.Next()
	if _, found, err := g.Probe(0.5, 0.5); found || err != nil {
		t.Errorf("Expected no hotspot without mask, got %v, %v", found, err)
	}

	g.Next()
	if _, _, err := g.Probe(0.5, 0.5); !errors.Is(err, ErrMaskNotSampleable) {
		t.Errorf("Expected ErrMaskNotSampleable for video mask, got %v", err)
	}
}

func TestColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	if c.R != 1 || c.B != 0 || c.G < 0.5 || c.G > 0.51 {
		t.Errorf("Unexpected color %+v", c)
	}
	if c.String() != "#ff8000" {
		t.Errorf("String() = %s", c.String())
	}
	for _, bad := range []string{"", "#fff", "zzzzzz"} {
		if _, err := ParseColor(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}

	if _, ok := Match(hotspots(), Color{R: 0.5, G: 0.5, B: 0.5}); ok {
		t.Error("Expected grey to match no hotspot")
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "square.jpg"), encodeJPEG(t))
	writeFile(t, filepath.Join(dir, "square_mask.png"), encodePNG(t, maskImage()))
	writeFile(t, filepath.Join(dir, "harbour.avi"), aviHeader)
	writeFile(t, filepath.Join(dir, "gallery.yaml"), []byte(`
items:
  - media: square.jpg
    mask: square_mask.png
    hotspots:
      - label: Fountain
        color: "#ff0000"
      - label: Church
        color: "#00ff00"
  - media: harbour.avi
`))

	g, err := LoadManifest(filepath.Join(dir, "gallery.yaml"))
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("Expected 2 items, got %d", g.Len())
	}

	items := g.Items()
	if items[0].Kind != KindImage || items[1].Kind != KindVideo {
		t.Errorf("Unexpected kinds %v, %v", items[0].Kind, items[1].Kind)
	}
	if items[0].Mask == nil || items[0].Mask.Kind != KindImage {
		t.Fatal("Expected decoded image mask on first item")
	}

	h, found, err := g.Probe(0.9, 0.1)
	if err != nil || !found || h.Label != "Church" {
		t.Errorf("Probe() = %q, %v, %v", h.Label, found, err)
	}
}

func TestLoadManifest_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "notes.txt"), []byte("not media"))
	writeFile(t, filepath.Join(dir, "bad.yaml"), []byte("items:\n  - media: notes.txt\n"))
	writeFile(t, filepath.Join(dir, "missing.yaml"), []byte("items:\n  - media: nope.jpg\n"))

	if _, err := LoadManifest(filepath.Join(dir, "bad.yaml")); !errors.Is(err, ErrUnsupportedMedia) {
		t.Errorf("Expected ErrUnsupportedMedia, got %v", err)
	}
	if _, err := LoadManifest(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
	if _, err := LoadManifest(filepath.Join(dir, "absent.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected not-exist error for manifest, got %v", err)
	}
}
