// Package metrics holds the process-wide Prometheus collectors. Labels are
// bounded enums only; nothing is labelled by room or player id.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "room_tick_duration_seconds",
		Help:    "Time spent in one room tick including broadcast",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
	})

	rooms = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rooms",
		Help: "Rooms by lifecycle state",
	}, []string{"state"}) // LOBBY, IN_PROGRESS, ENDED

	players = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "room_players",
		Help: "Players seated in rooms",
	})

	spectators = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "room_spectators",
		Help: "Spectators attached to rooms",
	})

	matchesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matches_started_total",
		Help: "Matches that left the lobby",
	})

	matchesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "matches_finished_total",
		Help: "Matches whose countdown expired",
	})

	syncMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sync_messages_total",
		Help: "State sync messages broadcast",
	}, []string{"kind"}) // full, delta

	policyRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "policy_rejections_total",
		Help: "Intents rejected with an error code",
	}, []string{"code"})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // rate_limit, origin, ws_limit

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_received_total",
		Help: "Inbound WebSocket messages",
	}, []string{"result"}) // ok, malformed, rate_limited

	wsMessagesOut = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_sent_total",
		Help: "Outbound WebSocket messages queued",
	})

	wsMessagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_dropped_total",
		Help: "Outbound messages dropped for slow peers",
	})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	eventLogOnce sync.Once
)

func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// SetRooms publishes the room count for each lifecycle state.
func SetRooms(byState map[string]int) {
	for _, s := range []string{"LOBBY", "IN_PROGRESS", "ENDED"} {
		rooms.WithLabelValues(s).Set(float64(byState[s]))
	}
}

func SetPlayers(n int) {
	players.Set(float64(n))
}

func SetSpectators(n int) {
	spectators.Set(float64(n))
}

func MatchStarted() {
	matchesStarted.Inc()
}

func MatchFinished() {
	matchesFinished.Inc()
}

// RecordSync counts a broadcast; kind is "full" or "delta".
func RecordSync(kind string) {
	syncMessages.WithLabelValues(kind).Inc()
}

// RecordRejection counts a policy error code sent to a client.
func RecordRejection(code string) {
	policyRejections.WithLabelValues(code).Inc()
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_limit".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

func UpdateWSConnections(n int) {
	wsConnectionsActive.Set(float64(n))
}

// RecordInbound counts a received frame; result is "ok", "malformed" or
// "rate_limited".
func RecordInbound(result string) {
	wsMessagesIn.WithLabelValues(result).Inc()
}

func RecordOutbound() {
	wsMessagesOut.Inc()
}

func RecordDropped() {
	wsMessagesDropped.Inc()
}

func RecordRequest(method, route string, d time.Duration) {
	requestLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// RegisterEventLog exposes journal counters. Only the first call registers.
func RegisterEventLog(total, dropped func() uint64) {
	eventLogOnce.Do(func() {
		promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "event_log_total",
			Help: "Total events journaled",
		}, func() float64 { return float64(total()) })
		promauto.NewCounterFunc(prometheus.CounterOpts{
			Name: "event_log_dropped_total",
			Help: "Events dropped by rate limiting or a full buffer",
		}, func() float64 { return float64(dropped()) })
	})
}

// Middleware records request latency by chi route pattern.
func Middleware(route func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			RecordRequest(r.Method, route(r), time.Since(start))
		})
	}
}
