package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "digitext_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Relay metrics
	WebhookEventsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_webhook_events_received_total",
			Help: "Inbound provider webhook messages",
		},
		[]string{"platform"},
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_broadcasts_sent_total",
			Help: "Events broadcast to connected clients",
		},
		[]string{"topic"},
	)

	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "digitext_connected_clients",
			Help: "Currently connected websocket clients",
		},
	)

	DroppedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_dropped_events_total",
			Help: "Inbound events dropped before state mutation",
		},
		[]string{"reason"}, // "malformed", "unroutable", "duplicate"
	)

	ContactsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_contacts_created_total",
			Help: "Contacts created from inbound messages",
		},
		[]string{"platform"},
	)

	MessagesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_messages_stored_total",
			Help: "Messages appended to conversation state",
		},
		[]string{"platform"},
	)

	// Outbound Graph API metrics
	GraphAPICalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_graph_api_calls_total",
			Help: "Outbound Graph API calls",
		},
		[]string{"operation", "status"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digitext_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
