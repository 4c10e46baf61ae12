package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConversationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_conversations_created_total",
			Help: "Total number of conversations created",
		},
	)

	RepliesAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_replies_appended_total",
			Help: "Total number of replies durably appended",
		},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_total",
			Help: "New-reply push notifications by outcome",
		},
		[]string{"result"},
	)

	WorkerProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_processed_total",
			Help: "Total number of jobs processed by workers",
		},
		[]string{"pool"},
	)

	WorkerActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_active_goroutines",
			Help: "Number of active worker goroutines per pool",
		},
		[]string{"pool"},
	)

	RelayQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_relay_queue_depth",
			Help: "Current RabbitMQ depth of the push relay queue",
		},
	)

	RelayDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_relay_delivered_total",
			Help: "Relayed push events by outcome",
		},
		[]string{"result"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_connections",
			Help: "Open websocket connections",
		},
	)
)

var initOnce sync.Once

// Init registers metrics with Prometheus
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			ConversationsCreated,
			RepliesAppended,
			Notifications,
			WorkerProcessed,
			WorkerActive,
			RelayQueueDepth,
			RelayDelivered,
			WSConnections,
		)
	})
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
