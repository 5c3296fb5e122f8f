package monotime

import (
	"github.com/prometheus/client_golang/prometheus"
)

type samplerCollector struct {
	sampler *Sampler

	sampleSeconds *prometheus.Desc
	refreshes     *prometheus.Desc
	periodSeconds *prometheus.Desc
}

// Collector exposes the sampler state as Prometheus metrics.
func (s *Sampler) Collector() prometheus.Collector {
	return &samplerCollector{
		sampler: s,
		sampleSeconds: prometheus.NewDesc(
			"svcsync_monotime_sample_seconds",
			"Most recently published monotonic clock sample",
			nil, nil,
		),
		refreshes: prometheus.NewDesc(
			"svcsync_monotime_refreshes_total",
			"Samples published by the refresh loop",
			nil, nil,
		),
		periodSeconds: prometheus.NewDesc(
			"svcsync_monotime_period_seconds",
			"Configured refresh period",
			nil, nil,
		),
	}
}

func (c *samplerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.sampleSeconds
	ch <- c.refreshes
	ch <- c.periodSeconds
}

func (c *samplerCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.sampleSeconds, prometheus.GaugeValue, c.sampler.Load().Duration().Seconds())
	ch <- prometheus.MustNewConstMetric(c.refreshes, prometheus.CounterValue, float64(c.sampler.Refreshes()))
	ch <- prometheus.MustNewConstMetric(c.periodSeconds, prometheus.GaugeValue, c.sampler.Period().Seconds())
}
