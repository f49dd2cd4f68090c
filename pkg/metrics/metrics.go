package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the realtime service
type Metrics struct {
	// HTTP Request Metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// WebSocket Metrics
	websocketConnections prometheus.Gauge
	websocketEventsTotal *prometheus.CounterVec
	websocketErrorsTotal *prometheus.CounterVec

	// Room / Fan-out Metrics
	roomMembers            *prometheus.GaugeVec
	eventsFannedOutTotal   *prometheus.CounterVec
	deliveriesDroppedTotal prometheus.Counter

	// Signaling Metrics
	signalsRelayedTotal *prometheus.CounterVec

	// Call Metrics
	callsTotal    *prometheus.CounterVec
	callsActive   prometheus.Gauge
	callsDuration prometheus.Histogram

	// Message Metrics
	messagesSentTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(serviceName string) *Metrics {
	labels := prometheus.Labels{"service": serviceName}

	return &Metrics{
		httpRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "http_requests_total",
				Help:        "Total number of HTTP requests",
				ConstLabels: labels,
			},
			[]string{"method", "endpoint", "status"},
		),
		httpRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:        "http_request_duration_seconds",
				Help:        "HTTP request latency in seconds",
				ConstLabels: labels,
				Buckets:     prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "http_requests_in_flight",
				Help:        "Number of HTTP requests currently being processed",
				ConstLabels: labels,
			},
		),

		websocketConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "websocket_connections",
				Help:        "Number of registered WebSocket connections",
				ConstLabels: labels,
			},
		),
		websocketEventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_events_total",
				Help:        "Total number of inbound WebSocket events by name",
				ConstLabels: labels,
			},
			[]string{"event"},
		),
		websocketErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "websocket_errors_total",
				Help:        "Total number of WebSocket errors by kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),

		roomMembers: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "room_members",
				Help:        "Current room membership count by room kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		eventsFannedOutTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "events_fanned_out_total",
				Help:        "Total number of events fanned out to room members by event name",
				ConstLabels: labels,
			},
			[]string{"event"},
		),
		deliveriesDroppedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name:        "deliveries_dropped_total",
				Help:        "Total number of best-effort deliveries dropped (gone or slow receivers)",
				ConstLabels: labels,
			},
		),

		signalsRelayedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "signals_relayed_total",
				Help:        "Total number of WebRTC signaling payloads relayed by mode",
				ConstLabels: labels,
			},
			[]string{"mode"}, // targeted, broadcast, dropped
		),

		callsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "calls_total",
				Help:        "Total number of calls by kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
		callsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name:        "calls_active",
				Help:        "Number of currently active calls",
				ConstLabels: labels,
			},
		),
		callsDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:        "calls_duration_seconds",
				Help:        "Completed call durations in seconds",
				ConstLabels: labels,
				Buckets:     []float64{10, 30, 60, 300, 900, 1800, 3600, 7200},
			},
		),

		messagesSentTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "messages_sent_total",
				Help:        "Total number of chat messages persisted by room kind",
				ConstLabels: labels,
			},
			[]string{"kind"},
		),
	}
}

// RecordHTTPRequest records an HTTP request with its duration
func (m *Metrics) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments the in-flight request gauge
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements the in-flight request gauge
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.httpRequestsInFlight.Dec()
}

// ConnectionOpened increments the WebSocket connection gauge
func (m *Metrics) ConnectionOpened() {
	m.websocketConnections.Inc()
}

// ConnectionClosed decrements the WebSocket connection gauge
func (m *Metrics) ConnectionClosed() {
	m.websocketConnections.Dec()
}

// RecordInboundEvent counts an inbound WebSocket event
func (m *Metrics) RecordInboundEvent(event string) {
	m.websocketEventsTotal.WithLabelValues(event).Inc()
}

// RecordWebSocketError counts a WebSocket error by kind
func (m *Metrics) RecordWebSocketError(kind string) {
	m.websocketErrorsTotal.WithLabelValues(kind).Inc()
}

// RoomJoined adjusts membership gauge for a room kind
func (m *Metrics) RoomJoined(kind string) {
	m.roomMembers.WithLabelValues(kind).Inc()
}

// RoomLeft adjusts membership gauge for a room kind
func (m *Metrics) RoomLeft(kind string) {
	m.roomMembers.WithLabelValues(kind).Dec()
}

// RecordFanOut counts an event fanned out to room members
func (m *Metrics) RecordFanOut(event string, receivers int) {
	m.eventsFannedOutTotal.WithLabelValues(event).Add(float64(receivers))
}

// RecordDroppedDelivery counts a best-effort delivery that was dropped
func (m *Metrics) RecordDroppedDelivery() {
	m.deliveriesDroppedTotal.Inc()
}

// RecordSignalRelayed counts a relayed signaling payload by mode
func (m *Metrics) RecordSignalRelayed(mode string) {
	m.signalsRelayedTotal.WithLabelValues(mode).Inc()
}

// CallStarted records a new call
func (m *Metrics) CallStarted(kind string) {
	m.callsTotal.WithLabelValues(kind).Inc()
	m.callsActive.Inc()
}

// CallEnded records a completed call with its duration in seconds
func (m *Metrics) CallEnded(durationSeconds int) {
	m.callsActive.Dec()
	m.callsDuration.Observe(float64(durationSeconds))
}

// RecordMessageSent counts a persisted chat message
func (m *Metrics) RecordMessageSent(kind string) {
	m.messagesSentTotal.WithLabelValues(kind).Inc()
}
