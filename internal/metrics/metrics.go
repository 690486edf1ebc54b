// Package metrics holds the Prometheus collectors shared by the bridge client
// and the action invoker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// BridgeRequests counts HTTP round trips to the bridge and discovery endpoint
	BridgeRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hueaction_bridge_requests_total",
			Help: "Requests sent to the Hue bridge or discovery endpoint",
		},
		[]string{"method", "outcome"},
	)

	// ActionInvocations counts action executions
	ActionInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hueaction_action_invocations_total",
			Help: "Action invocations by action name and outcome",
		},
		[]string{"action", "outcome"},
	)

	// ActionDuration observes how long actions take, bridge calls included
	ActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hueaction_action_duration_seconds",
			Help:    "Action execution time",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)

// Collectors exposes the shared collectors.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		BridgeRequests,
		ActionInvocations,
		ActionDuration,
	}
}

// NewRegistry returns a registry with the shared collectors plus Go runtime
// and process collectors.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(Collectors()...)
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}
