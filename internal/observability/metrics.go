package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "struggles_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LiveSubscriptions is the number of open snapshot streams by kind.
	LiveSubscriptions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "struggles_live_subscriptions",
		Help: "Number of open live snapshot streams",
	}, []string{"kind"})

	// LiveSnapshots counts snapshots delivered to subscribers by kind.
	LiveSnapshots = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "struggles_live_snapshots_total",
		Help: "Total snapshots delivered to live subscribers",
	}, []string{"kind"})

	// LiveErrors counts snapshot fetch failures reported on the error side channel.
	LiveErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "struggles_live_errors_total",
		Help: "Total snapshot fetch failures on live streams",
	}, []string{"kind"})

	// LiveSignalsDropped counts change signals coalesced because a watcher was already pending.
	LiveSignalsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "struggles_live_signals_coalesced_total",
		Help: "Change signals merged into an already pending refresh",
	})

	// WebSocketBackpressureDrops counts frames dropped because a socket's buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "struggles_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket frames dropped due to backpressure",
	}, []string{"stream", "reason"})

	// MessagesSent counts chat messages committed.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "struggles_messages_sent_total",
		Help: "Total chat messages committed",
	})

	// ChatsCreated counts chats created (not fetched) by createOrGetChat.
	ChatsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "struggles_chats_created_total",
		Help: "Total chats created",
	})

	// StoriesPublished counts stories created.
	StoriesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "struggles_stories_published_total",
		Help: "Total stories published",
	})

	// AIGenerations counts text generation calls by flow and outcome.
	AIGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "struggles_ai_generations_total",
		Help: "Text generation calls by flow and outcome",
	}, []string{"flow", "outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
