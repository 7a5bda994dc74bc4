package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"

	"github.com/teslashibe/go-vrtour/internal/log"
	"github.com/teslashibe/go-vrtour/pkg/metrics"
	"github.com/teslashibe/go-vrtour/pkg/tour"
)

const tourV1 = `
name: v1
locations:
  - id: a
    pose: {position: [0, 0, 0]}
`

const tourV2 = `
name: v2
settings: {dwell_threshold: 2}
locations:
  - id: a
    pose: {position: [0, 0, 0]}
  - id: b
    pose: {position: [3, 0, 0]}
`

func writeTour(t *testing.T, path, src string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("failed to write tour: %v", err)
	}
}

func newHolder(t *testing.T) (*Holder, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tour.yaml")
	writeTour(t, path, tourV1)

	h, err := LoadHolder(path)
	if err != nil {
		t.Fatalf("LoadHolder() error = %v", err)
	}
	h.SetLogger(log.Discard())
	return h, path
}

func TestEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "TOUR_FILE", "GALLERY_FILE", "TICK_HZ", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}

	if Port() != DefaultPort {
		t.Errorf("Port() = %q, want %q", Port(), DefaultPort)
	}
	if TourFile() != DefaultTourFile {
		t.Errorf("TourFile() = %q, want %q", TourFile(), DefaultTourFile)
	}
	if GalleryFile() != "" {
		t.Errorf("Expected no gallery by default, got %q", GalleryFile())
	}
	if TickHz() != DefaultTickHz {
		t.Errorf("TickHz() = %v, want %v", TickHz(), DefaultTickHz)
	}
	if LogLevel() != "info" {
		t.Errorf("LogLevel() = %q, want info", LogLevel())
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TOUR_FILE", "/srv/museum.yaml")
	t.Setenv("GALLERY_FILE", "/srv/gallery.yaml")
	t.Setenv("LOG_LEVEL", "debug")

	if Port() != "9000" || TourFile() != "/srv/museum.yaml" || GalleryFile() != "/srv/gallery.yaml" || LogLevel() != "debug" {
		t.Errorf("Expected overrides, got %q %q %q %q", Port(), TourFile(), GalleryFile(), LogLevel())
	}

	tests := []struct {
		value string
		want  float64
	}{
		{"90", 90},
		{"29.97", 29.97},
		{"0", DefaultTickHz},
		{"-5", DefaultTickHz},
		{"fast", DefaultTickHz},
	}
	for _, tt := range tests {
		t.Setenv("TICK_HZ", tt.value)
		if got := TickHz(); got != tt.want {
			t.Errorf("TickHz() with %q = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestHolder_Reload(t *testing.T) {
	h, path := newHolder(t)
	ch := make(chan *tour.Tour, 1)
	h.RegisterListener(ch)
	success := testutil.ToFloat64(metrics.TourReloadsTotal.WithLabelValues("success"))
	failed := testutil.ToFloat64(metrics.TourReloadsTotal.WithLabelValues("error"))

	if h.Get().Name != "v1" {
		t.Fatalf("Expected v1, got %q", h.Get().Name)
	}

	writeTour(t, path, tourV2)
	if err := h.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if h.Get().Name != "v2" || h.Get().Len() != 2 {
		t.Errorf("Expected v2 with 2 locations, got %q/%d", h.Get().Name, h.Get().Len())
	}
	select {
	case got := <-ch:
		if got.Name != "v2" {
			t.Errorf("Listener got %q, want v2", got.Name)
		}
	default:
		t.Error("Listener was not notified")
	}

	// Invalid tours never replace the active one.
	writeTour(t, path, "name: broken\nlocations: []\n")
	if err := h.Reload(context.Background()); err == nil {
		t.Error("Expected error for an empty tour")
	}
	if h.Get().Name != "v2" {
		t.Errorf("Expected v2 kept after failed reload, got %q", h.Get().Name)
	}
	select {
	case got := <-ch:
		t.Errorf("Listener notified of failed reload: %q", got.Name)
	default:
	}

	if got := testutil.ToFloat64(metrics.TourReloadsTotal.WithLabelValues("success")) - success; got != 1 {
		t.Errorf("Expected 1 successful reload counted, got %v", got)
	}
	if got := testutil.ToFloat64(metrics.TourReloadsTotal.WithLabelValues("error")) - failed; got != 1 {
		t.Errorf("Expected 1 failed reload counted, got %v", got)
	}
}

func TestHolder_FullListenerSkipped(t *testing.T) {
	h, path := newHolder(t)
	ch := make(chan *tour.Tour) // unbuffered, nobody reading
	h.RegisterListener(ch)

	writeTour(t, path, tourV2)
	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Reload() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Reload blocked on a full listener")
	}
}

func TestHolder_Watcher(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h, path := newHolder(t)
	h.SetDebounce(20 * time.Millisecond)
	ch := make(chan *tour.Tour, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := h.StartWatcher(ctx); err != nil {
		t.Fatalf("StartWatcher() error = %v", err)
	}

	// An unrelated file in the same directory is ignored.
	writeTour(t, filepath.Join(filepath.Dir(path), "other.yaml"), tourV2)
	writeTour(t, path, tourV2)

	select {
	case got := <-ch:
		if got.Name != "v2" {
			t.Errorf("Watcher reloaded %q, want v2", got.Name)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Watcher did not reload the tour")
	}

	cancel()
	h.Stop()
	// Let a timer that fired during shutdown finish.
	time.Sleep(50 * time.Millisecond)
}

func TestHolder_WatcherDisabled(t *testing.T) {
	tr, err := tour.Parse([]byte(tourV1))
	if err != nil {
		t.Fatal(err)
	}
	h := NewHolder(tr, "")
	h.SetLogger(log.Discard())
	if err := h.StartWatcher(context.Background()); err != nil {
		t.Errorf("StartWatcher() with no path error = %v", err)
	}
	h.Stop()
}

func TestLoadHolder_Missing(t *testing.T) {
	if _, err := LoadHolder(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for a missing tour file")
	}
}
