// Copyright 2025 Certen Protocol
//
// Ambient observability: counters/gauges wired through
// prometheus/client_golang, the teacher's own direct dependency for this
// purpose, exposed on the node's /metrics HTTP endpoint.

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every metric this validator node exposes.
type Registry struct {
	PeersConnected   prometheus.Gauge
	MempoolSize      prometheus.Gauge
	RoundsFinalized  prometheus.Counter
	AgreementFailures prometheus.Counter
	BlocksApplied    prometheus.Counter

	registry *prometheus.Registry
}

// NewRegistry constructs and registers every metric under its own
// prometheus.Registry (not the global default, so multiple nodes in the
// same process — as in tests — don't collide).
func NewRegistry() *Registry {
	r := &Registry{
		PeersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "certen_validator",
			Name:      "peers_connected",
			Help:      "Number of peers currently known to the node service.",
		}),
		MempoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "certen_validator",
			Name:      "mempool_size",
			Help:      "Number of transactions currently pending in the mempool.",
		}),
		RoundsFinalized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "certen_validator",
			Name:      "rounds_finalized_total",
			Help:      "Number of consensus rounds this node has finalized as leader.",
		}),
		AgreementFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "certen_validator",
			Name:      "agreement_failures_total",
			Help:      "Number of rounds that failed to reach hash agreement quorum.",
		}),
		BlocksApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "certen_validator",
			Name:      "blocks_applied_total",
			Help:      "Number of blocks applied to the local chain, leader or follower.",
		}),
		registry: prometheus.NewRegistry(),
	}

	r.registry.MustRegister(
		r.PeersConnected,
		r.MempoolSize,
		r.RoundsFinalized,
		r.AgreementFailures,
		r.BlocksApplied,
	)
	return r
}

// Handler returns the HTTP handler to mount at /metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
