// Package observability provides metrics and tracing.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VotesCastTotal counts accepted votes by kind.
	VotesCastTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipal_votes_cast_total",
		Help: "Total number of accepted votes by vote type",
	}, []string{"vote_type"})

	// DuplicateVotesTotal counts casts rejected by the (user, post, kind) constraint.
	DuplicateVotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipal_duplicate_votes_total",
		Help: "Total number of rejected duplicate votes by vote type",
	}, []string{"vote_type"})

	// ThresholdCrossingsTotal counts threshold-crossed notifications.
	ThresholdCrossingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipal_vote_threshold_crossings_total",
		Help: "Total number of posts whose vote tally crossed the live session threshold",
	})

	// LiveSessionTransitions counts lifecycle transitions by target state and result.
	LiveSessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipal_live_session_transitions_total",
		Help: "Live session lifecycle transitions by target status and result",
	}, []string{"to", "result"})

	// BroadcastPublishFailures counts dropped events by sink.
	BroadcastPublishFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipal_broadcast_publish_failures_total",
		Help: "Events that could not be handed to a broadcast sink",
	}, []string{"sink", "event"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipal_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// LiveRoomConnections is the gauge of websocket viewers per live session room.
	LiveRoomConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipal_live_room_connections",
		Help: "Number of open live session websocket connections",
	})

	// WebSocketEventsTotal counts inbound websocket frames by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipal_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipal_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// Transition results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)
