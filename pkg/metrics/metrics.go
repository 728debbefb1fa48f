// Package metrics exposes Prometheus metrics for the live contest engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every metric the service reports.
type Manager struct {
	// Ingestion
	VotesAccepted prometheus.Counter
	VotesRejected *prometheus.CounterVec
	ScoresUpserts prometheus.Counter
	ScoresNoop    prometheus.Counter

	// Orchestration
	Transitions       *prometheus.CounterVec
	TransitionErrors  *prometheus.CounterVec
	WinnerReveals     prometheus.Counter
	RankingComputes   prometheus.Counter
	RankingComputeDur prometheus.Histogram

	// Broadcast
	SnapshotsPublished prometheus.Counter
	BroadcastErrors    prometheus.Counter
	StreamSubscribers  prometheus.Gauge
}

// New registers all metrics on the given registerer. Pass
// prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		VotesAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "ingestion",
			Name:      "votes_accepted_total",
			Help:      "Public votes accepted and durably stored.",
		}),
		VotesRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "ingestion",
			Name:      "votes_rejected_total",
			Help:      "Public votes rejected, partitioned by reason.",
		}, []string{"reason"}),
		ScoresUpserts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "ingestion",
			Name:      "jury_score_upserts_total",
			Help:      "Jury score writes that changed stored state.",
		}),
		ScoresNoop: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "ingestion",
			Name:      "jury_score_noops_total",
			Help:      "Idempotent jury score resubmissions with no observable change.",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "orchestrator",
			Name:      "transitions_total",
			Help:      "Successful live event transitions, partitioned by operation.",
		}, []string{"op"}),
		TransitionErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "orchestrator",
			Name:      "transition_errors_total",
			Help:      "Rejected live event transitions, partitioned by operation.",
		}, []string{"op"}),
		WinnerReveals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "orchestrator",
			Name:      "winner_reveals_total",
			Help:      "Winner reveal sequences started.",
		}),
		RankingComputes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "aggregator",
			Name:      "ranking_computes_total",
			Help:      "Ranking recomputations from raw signals.",
		}),
		RankingComputeDur: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "chantenscene",
			Subsystem: "aggregator",
			Name:      "ranking_compute_seconds",
			Help:      "Latency of ranking recomputation including signal reads.",
			Buckets:   prometheus.DefBuckets,
		}),
		SnapshotsPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "broadcast",
			Name:      "snapshots_published_total",
			Help:      "State snapshots published to subscribers.",
		}),
		BroadcastErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "chantenscene",
			Subsystem: "broadcast",
			Name:      "publish_errors_total",
			Help:      "Broadcast publish failures (swallowed, state already durable).",
		}),
		StreamSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "chantenscene",
			Subsystem: "broadcast",
			Name:      "stream_subscribers",
			Help:      "Currently connected snapshot stream subscribers.",
		}),
	}
}
