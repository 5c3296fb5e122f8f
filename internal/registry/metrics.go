package registry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts reconcile outcomes and queue submissions.
type Metrics struct {
	updates     *prometheus.CounterVec
	services    prometheus.Gauge
	submissions *prometheus.CounterVec
}

// NewMetrics creates the registry metrics and registers them with reg when
// reg is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svcsync_registry_updates_total",
			Help: "Candidate updates processed by the reconciler, by outcome",
		}, []string{"outcome"}),
		services: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "svcsync_registry_services",
			Help: "Services currently held in the registry",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "svcsync_queue_submissions_total",
			Help: "Update queue submissions, by result",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.updates, m.services, m.submissions)
	}
	return m
}

func (m *Metrics) observeOutcome(o Outcome, size int) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(o.String()).Inc()
	m.services.Set(float64(size))
}

// ObserveSubmit records the result of a TrySubmit call.
func (m *Metrics) ObserveSubmit(err error) {
	if m == nil {
		return
	}
	result := "queued"
	switch err {
	case nil:
	case ErrQueueFull:
		result = "full"
	case ErrQueueClosed:
		result = "closed"
	default:
		result = "error"
	}
	m.submissions.WithLabelValues(result).Inc()
}
