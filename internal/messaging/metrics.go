// internal/messaging/metrics.go

package messaging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "messaging_active_connections",
			Help: "Number of live websocket connections",
		},
	)

	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_messages_total",
			Help: "Total number of messages sent",
		},
		[]string{"type"},
	)

	messageInitialStatus = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_message_initial_status_total",
			Help: "Initial status assigned to sent messages",
		},
		[]string{"status"},
	)

	eventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_events_delivered_total",
			Help: "Events delivered to live connections or handed to push",
		},
		[]string{"channel"},
	)

	commandErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_command_errors_total",
			Help: "Command failures by error code",
		},
		[]string{"code"},
	)

	invitationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messaging_date_invitations_total",
			Help: "Date invitations by outcome",
		},
		[]string{"status"},
	)
)

func recordMessage(messageType string, status MessageStatus) {
	messagesTotal.WithLabelValues(messageType).Inc()
	messageInitialStatus.WithLabelValues(string(status)).Inc()
}

func recordDelivery(channel string) {
	eventsDelivered.WithLabelValues(channel).Inc()
}

func recordCommandError(code string) {
	commandErrors.WithLabelValues(code).Inc()
}

func recordInvitation(status string) {
	invitationsTotal.WithLabelValues(status).Inc()
}
