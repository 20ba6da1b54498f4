// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups the collectors updated by the monitor and the notifier.
type Metrics struct {
	PollCycles      *prometheus.CounterVec
	PollDuration    prometheus.Histogram
	Machines        prometheus.Gauge
	SkippedMachines prometheus.Counter
	Finished        prometheus.Counter
	Notifications   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PollCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "laundry",
			Name:      "poll_cycles_total",
			Help:      "Poll cycles by result.",
		}, []string{"result"}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "laundry",
			Name:      "poll_duration_seconds",
			Help:      "Time spent fetching and diffing one poll cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		Machines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "laundry",
			Name:      "machines",
			Help:      "Machines in the current generation.",
		}),
		SkippedMachines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "laundry",
			Name:      "skipped_machines_total",
			Help:      "Machines skipped because their status could not be decoded.",
		}),
		Finished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "laundry",
			Name:      "finished_events_total",
			Help:      "Transition events with finished set.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "laundry",
			Name:      "notifications_total",
			Help:      "Push notifications by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.PollCycles, m.PollDuration, m.Machines, m.SkippedMachines, m.Finished, m.Notifications)
	return m
}
