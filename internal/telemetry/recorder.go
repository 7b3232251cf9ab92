// Package telemetry exports backward-pass statistics as Prometheus metrics.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements autodiff.Observer and gradcheck.ResultObserver.
//
// Thread Safety: safe for concurrent use; collectors are atomic.
type Recorder struct {
	passes       prometheus.Counter
	sortedNodes  prometheus.Histogram
	chainRules   *prometheus.CounterVec
	accumulation prometheus.Counter
	checks       *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
//
// Panics if a collector with the same name is already registered with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		passes: factory.NewCounter(prometheus.CounterOpts{
			Name: "autograd_backward_passes_total",
			Help: "Number of backward passes started",
		}),
		sortedNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "autograd_sorted_nodes",
			Help:    "Tracked variables in the topological order of each backward pass",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		chainRules: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autograd_chain_rule_total",
			Help: "Local chain rule applications by operation",
		}, []string{"fn"}),
		accumulation: factory.NewCounter(prometheus.CounterOpts{
			Name: "autograd_leaf_accumulations_total",
			Help: "Derivatives routed into leaf accumulation sinks",
		}),
		checks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "autograd_gradcheck_total",
			Help: "Completed gradient checks by function and outcome",
		}, []string{"function", "pass"}),
	}
}

// Sorted implements autodiff.Observer.
func (r *Recorder) Sorted(_ uint64, nodes int) {
	r.passes.Inc()
	r.sortedNodes.Observe(float64(nodes))
}

// ChainRule implements autodiff.Observer.
func (r *Recorder) ChainRule(_ uint64, fn string, _ int) {
	r.chainRules.WithLabelValues(fn).Inc()
}

// Accumulated implements autodiff.Observer.
func (r *Recorder) Accumulated(_ uint64) {
	r.accumulation.Inc()
}

// CheckCompleted implements gradcheck.ResultObserver.
func (r *Recorder) CheckCompleted(function string, passed bool) {
	r.checks.WithLabelValues(function, strconv.FormatBool(passed)).Inc()
}
