// Package metrics provides Prometheus metrics for the matchmaking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConnectedSessions tracks live signaling sessions on this process.
	ConnectedSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairline_connected_sessions",
			Help: "Number of live signaling sessions",
		},
	)

	// ActiveRooms tracks in-process rooms.
	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pairline_active_rooms",
			Help: "Number of in-process call rooms",
		},
	)

	// MatchPasses counts MatchMaker passes by outcome (ok, error).
	MatchPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairline_match_passes_total",
			Help: "Total number of matchmaking passes",
		},
		[]string{"outcome"},
	)

	// PairsCommitted counts pairings written to the ledger.
	PairsCommitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairline_pairs_committed_total",
			Help: "Total number of committed pairings",
		},
	)

	// PairsAborted counts pairings abandoned before or right after commit.
	PairsAborted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairline_pairs_aborted_total",
			Help: "Total number of aborted pairings",
		},
		[]string{"reason"},
	)

	// CallsEnded counts room teardowns by reason.
	CallsEnded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairline_calls_ended_total",
			Help: "Total number of ended calls",
		},
		[]string{"reason"},
	)

	// SignalsRelayed counts forwarded signaling messages by kind.
	SignalsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairline_signals_relayed_total",
			Help: "Total number of relayed signaling messages",
		},
		[]string{"kind"},
	)

	// SignalsRejected counts dropped signaling messages.
	SignalsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pairline_signals_rejected_total",
			Help: "Total number of rejected signaling messages",
		},
	)

	// SweepRepairs counts repairs made by the reconciliation sweep by kind.
	SweepRepairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pairline_sweep_repairs_total",
			Help: "Total number of reconciliation repairs",
		},
		[]string{"kind"},
	)

	// MatchPassDuration tracks the duration of a matchmaking pass.
	MatchPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pairline_match_pass_duration_seconds",
			Help:    "Duration of matchmaking passes",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordCallEnded records a room teardown.
func RecordCallEnded(reason string) {
	CallsEnded.WithLabelValues(reason).Inc()
}
