package gallery

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// headerSize is how many leading bytes filetype needs to classify a file.
const headerSize = 261

type manifest struct {
	Items []struct {
		Media    string    `yaml:"media"`
		Mask     string    `yaml:"mask"`
		Hotspots []Hotspot `yaml:"hotspots"`
	} `yaml:"items"`
}

// LoadManifest reads a YAML gallery manifest. Media and mask paths are
// relative to the manifest's directory. Image masks are decoded up front.
func LoadManifest(path string) (*Gallery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read gallery manifest: %w", err)
	}

	var mf manifest
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("decode gallery manifest: %w", err)
	}

	dir := filepath.Dir(path)
	items := make([]Media, 0, len(mf.Items))
	for i, it := range mf.Items {
		mediaPath := resolve(dir, it.Media)
		kind, err := DetectFile(mediaPath)
		if err != nil {
			return nil, fmt.Errorf("gallery item %d: %w", i, err)
		}

		m := Media{Path: mediaPath, Kind: kind, Hotspots: it.Hotspots}
		if it.Mask != "" {
			mask, err := loadMask(resolve(dir, it.Mask))
			if err != nil {
				return nil, fmt.Errorf("gallery item %d: %w", i, err)
			}
			m.Mask = mask
		}
		items = append(items, m)
	}
	return New(items)
}

// DetectFile classifies a file on disk by its content.
func DetectFile(path string) (Kind, error) {
	f, err := os.Open(path)
	if err != nil {
		return KindUnknown, err
	}
	defer f.Close()

	header := make([]byte, headerSize)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return KindUnknown, fmt.Errorf("read %s: %w", path, err)
	}
	kind := DetectKind(header[:n])
	if kind == KindUnknown {
		return kind, fmt.Errorf("%w: %s", ErrUnsupportedMedia, path)
	}
	return kind, nil
}

func loadMask(path string) (*Mask, error) {
	kind, err := DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	if kind == KindVideo {
		return NewVideoMask(path), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode mask %s: %w", path, err)
	}
	return NewImageMask(path, img), nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
