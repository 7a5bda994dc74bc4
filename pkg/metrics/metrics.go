// Package metrics provides Prometheus metrics for gaze selection.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cancellation reasons.
const (
	ReasonLookAway = "look_away"
	ReasonSwitch   = "switch"
	ReasonTween    = "tween_interrupted"
	ReasonManual   = "manual"
)

var (
	// DwellStartedTotal counts dwells begun on a marker.
	DwellStartedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vrtour_dwell_started_total",
		Help: "Total number of dwells started on a location marker.",
	})

	// SelectionsTotal counts completed dwells by trigger source.
	SelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrtour_selections_total",
		Help: "Total number of location selections, by source (gaze, shortcut, api).",
	}, []string{"source"})

	// ArrivalsTotal counts tweens that reached their destination.
	ArrivalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vrtour_arrivals_total",
		Help: "Total number of completed moves to a location.",
	})

	// CancellationsTotal counts abandoned dwells and tweens by reason.
	CancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrtour_cancellations_total",
		Help: "Total number of cancelled dwells and tweens, by reason.",
	}, []string{"reason"})

	// TweenDuration observes planned tween durations.
	TweenDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vrtour_tween_duration_seconds",
		Help:    "Planned duration of moves between locations.",
		Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	})

	// ControllerState is 0 idle, 1 dwelling, 2 tweening.
	ControllerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vrtour_controller_state",
		Help: "Current selection state (0 idle, 1 dwelling, 2 tweening).",
	})

	// DwellProgress is the current dwell fill fraction.
	DwellProgress = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vrtour_dwell_progress_ratio",
		Help: "Current dwell progress between 0 and 1.",
	})

	// HeadsetsConnected tracks live headset websocket connections.
	HeadsetsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vrtour_headsets_connected",
		Help: "Number of connected headsets.",
	})

	// TourReloadsTotal counts tour file reloads by result.
	TourReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vrtour_tour_reloads_total",
		Help: "Total number of tour reloads, by result (success, error).",
	}, []string{"result"})
)
