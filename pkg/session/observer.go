package session

import (
	"github.com/teslashibe/go-vrtour/pkg/gaze"
	"github.com/teslashibe/go-vrtour/pkg/metrics"
)

// observer turns controller transitions into logs and metrics. Callbacks run
// inside Controller calls, with the session lock held.
type observer struct {
	s *Session
}

func (o observer) DwellStarted(t gaze.Target) {
	metrics.DwellStartedTotal.Inc()
	o.s.logger.Debug("dwell started", "location", t.ID)
}

func (o observer) DwellCancelled(t gaze.Target) {
	reason := o.s.reason
	if reason == "" {
		reason = metrics.ReasonLookAway
		if o.s.hit != "" && o.s.hit != t.ID {
			reason = metrics.ReasonSwitch
		}
	}
	metrics.CancellationsTotal.WithLabelValues(reason).Inc()
	o.s.logger.Debug("dwell cancelled", "location", t.ID, "reason", reason)
}

func (o observer) Selected(t gaze.Target) {
	metrics.SelectionsTotal.WithLabelValues("gaze").Inc()
	o.s.observeTween(t)
	o.s.logger.Info("location selected", "location", t.ID)
}

func (o observer) Arrived(t gaze.Target) {
	metrics.ArrivalsTotal.Inc()
	o.s.logger.Info("arrived at location", "location", t.ID)
}

func (o observer) TweenCancelled(t gaze.Target) {
	reason := o.s.reason
	if reason == "" {
		reason = metrics.ReasonTween
	}
	metrics.CancellationsTotal.WithLabelValues(reason).Inc()
	o.s.logger.Info("move cancelled", "location", t.ID, "reason", reason)
}
