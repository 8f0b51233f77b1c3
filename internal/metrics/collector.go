// Package metrics exposes scheduler activity as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector counts node executions and runs on its own registry, so several
// collectors can coexist in one process (tests, embedded engines).
type Collector struct {
	registry *prometheus.Registry

	nodesSubmitted prometheus.Counter
	nodesRejected  prometheus.Counter
	nodesFinished  *prometheus.CounterVec
	nodesInFlight  prometheus.Gauge
	nodeDuration   prometheus.Histogram
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// NewCollector creates a collector whose metric names start with namespace.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		nodesSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_submitted_total",
			Help:      "Nodes handed to the worker pool.",
		}),
		nodesRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_rejected_total",
			Help:      "Submissions refused because the pool's main channel was full.",
		}),
		nodesFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_finished_total",
			Help:      "Node executions by outcome.",
		}, []string{"status"}),
		nodesInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_in_flight",
			Help:      "Nodes submitted and not yet finished.",
		}),
		nodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "node_duration_seconds",
			Help:      "Operator execution time.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scheduler runs by outcome.",
		}, []string{"status"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a whole scheduler run.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "completed"
}

// NodeSubmitted records a successful submission.
func (c *Collector) NodeSubmitted(int) {
	c.nodesSubmitted.Inc()
	c.nodesInFlight.Inc()
}

// NodeRejected records a submission refused with resource exhaustion.
func (c *Collector) NodeRejected(int) {
	c.nodesRejected.Inc()
}

// NodeFinished records a worker result.
func (c *Collector) NodeFinished(_ int, d time.Duration, err error) {
	c.nodesInFlight.Dec()
	c.nodesFinished.WithLabelValues(outcome(err)).Inc()
	c.nodeDuration.Observe(d.Seconds())
}

// RunFinished records the end of a run.
func (c *Collector) RunFinished(d time.Duration, err error) {
	c.runsTotal.WithLabelValues(outcome(err)).Inc()
	c.runDuration.Observe(d.Seconds())
}

// Registry returns the registry holding every metric of this collector.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
