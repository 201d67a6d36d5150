// Package metrics exports task telemetry as Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DoctorReid/ZenlessZoneZero-OneDragon-sub002/internal/operation"
)

const namespace = "condop"

// Collector counts task lifecycle events. It implements operation.Observer
// and the engine's optional preemption hook.
//
// Thread-safety: safe for concurrent use (Prometheus collectors are).
type Collector struct {
	started     *prometheus.CounterVec
	finished    *prometheus.CounterVec
	opErrors    *prometheus.CounterVec
	running     prometheus.Gauge
	preemptions prometheus.Counter
}

// New creates a Collector and registers it with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		started: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_started_total",
			Help:      "Tasks started, by trigger.",
		}, []string{"trigger"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Tasks finished, by trigger and final status.",
		}, []string{"trigger", "status"}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "op_errors_total",
			Help:      "Operation failures recovered inside tasks, by operation.",
		}, []string{"op"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Tasks whose driver loop has not exited.",
		}),
		preemptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preemptions_total",
			Help:      "Running tasks stopped in favor of a new match.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.started, c.finished, c.opErrors, c.running, c.preemptions)
	}
	return c
}

// TaskStarted implements operation.Observer.
func (c *Collector) TaskStarted(t *operation.Task) {
	c.started.WithLabelValues(t.TriggerDisplay()).Inc()
	c.running.Inc()
}

// TaskFinished implements operation.Observer.
func (c *Collector) TaskFinished(t *operation.Task, status operation.Status) {
	c.finished.WithLabelValues(t.TriggerDisplay(), status.String()).Inc()
	c.running.Dec()
}

// OpFailed implements operation.Observer.
func (c *Collector) OpFailed(_ *operation.Task, err *operation.ExecutionError) {
	c.opErrors.WithLabelValues(err.Op).Inc()
}

// Preempted counts one preemption.
func (c *Collector) Preempted() {
	c.preemptions.Inc()
}

var _ operation.Observer = (*Collector)(nil)
