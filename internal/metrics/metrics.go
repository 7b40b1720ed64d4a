package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DonationDuration tracks donation processing latency.
	DonationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "donation_process_duration_seconds",
			Help:    "Duration of donation processing in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		},
		[]string{"status"}, // success, exhausted, rejected, error
	)

	// WebhookEvents counts provider webhook deliveries by kind and outcome.
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Provider webhook events by kind and outcome",
		},
		[]string{"kind", "outcome"}, // processed, skipped, unauthorized, error
	)

	// SubscriptionTransitions counts applied lifecycle transitions.
	SubscriptionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subscription_transitions_total",
			Help: "Applied subscription status transitions",
		},
		[]string{"from", "to"},
	)
)

// RecordDonation records one donation attempt.
func RecordDonation(status string, duration time.Duration) {
	DonationDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordWebhookEvent records one webhook delivery.
func RecordWebhookEvent(kind, outcome string) {
	WebhookEvents.WithLabelValues(kind, outcome).Inc()
}

// RecordTransition records one applied lifecycle transition.
func RecordTransition(from, to string) {
	SubscriptionTransitions.WithLabelValues(from, to).Inc()
}
