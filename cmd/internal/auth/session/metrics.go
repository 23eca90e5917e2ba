package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rotation outcome labels.
const (
	rotateOK        = "ok"
	rotateInvalid   = "invalid"
	rotateTimeout   = "timeout"
	rotateTransient = "transient"
	rotateError     = "error"
)

// Metrics are the session counters exported on /metrics.
type Metrics struct {
	logins        prometheus.Counter
	rotations     *prometheus.CounterVec
	logouts       prometheus.Counter
	sweepRemoved  prometheus.Counter
	sweepFailures prometheus.Counter
}

// NewMetrics registers the session counters with reg. A nil reg builds
// unregistered counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		logins: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopauth",
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Sessions issued by login.",
		}),
		rotations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shopauth",
			Subsystem: "session",
			Name:      "rotations_total",
			Help:      "Refresh token rotations by result.",
		}, []string{"result"}),
		logouts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopauth",
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Refresh records deleted by logout.",
		}),
		sweepRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopauth",
			Subsystem: "session",
			Name:      "sweep_removed_total",
			Help:      "Expired refresh records removed by sweeps.",
		}),
		sweepFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "shopauth",
			Subsystem: "session",
			Name:      "sweep_failures_total",
			Help:      "Sweeps that returned an error.",
		}),
	}
}
