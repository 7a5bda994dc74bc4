// Package config provides configuration helpers for go-vrtour commands:
// environment defaults and a hot-reloading tour holder.
package config

import (
	"os"
	"strconv"
)

// Defaults used when the environment does not override them.
const (
	DefaultPort     = "8080"
	DefaultTourFile = "tour.yaml"
	DefaultTickHz   = 60.0
	DefaultLogLevel = "info"
)

// Port returns the dashboard port from PORT or the default.
func Port() string {
	return envOr("PORT", DefaultPort)
}

// TourFile returns the tour path from TOUR_FILE or the default.
func TourFile() string {
	return envOr("TOUR_FILE", DefaultTourFile)
}

// GalleryFile returns the gallery manifest path from GALLERY_FILE.
// Empty means no gallery.
func GalleryFile() string {
	return os.Getenv("GALLERY_FILE")
}

// TickHz returns the session tick rate from TICK_HZ. Unparsable or
// non-positive values fall back to the default.
func TickHz() float64 {
	v := os.Getenv("TICK_HZ")
	if v == "" {
		return DefaultTickHz
	}
	hz, err := strconv.ParseFloat(v, 64)
	if err != nil || hz <= 0 {
		return DefaultTickHz
	}
	return hz
}

// LogLevel returns the log level from LOG_LEVEL or the default.
func LogLevel() string {
	return envOr("LOG_LEVEL", DefaultLogLevel)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
