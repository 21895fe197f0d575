package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EdgeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netedge_edge_requests_total",
			Help: "Total number of requests sent to the edge device",
		},
		[]string{"method", "resource", "status"},
	)

	EdgeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "netedge_edge_request_duration_seconds",
			Help:    "Edge device request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "resource"},
	)

	// RuleChainCorruptions counts reads that found a broken rule chain.
	RuleChainCorruptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netedge_rule_chain_corruptions_total",
			Help: "Number of rule chain traversals that detected corruption",
		},
	)

	VPNStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "netedge_vpn_status_transitions_total",
			Help: "VPN resource status transitions by resource kind and resulting status",
		},
		[]string{"kind", "status"},
	)
)
