package monitoring

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	registrationsFinalized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registrations_finalized_total",
			Help: "Form submissions created, by status",
		},
		[]string{"event_id", "status"},
	)

	collectorOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_dialog_outcomes_total",
			Help: "Manual payment dialog advance outcomes",
		},
		[]string{"step", "outcome"},
	)

	counterIncrementFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "registration_counter_failures_total",
			Help: "Failed registrations_count increments after a durable submission",
		},
	)

	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_emails_total",
			Help: "Outbound notification emails, by type and result",
		},
		[]string{"type", "result"},
	)

	donationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "donations_created_total",
			Help: "Donations created, by status",
		},
		[]string{"status"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registration_sessions_active",
			Help: "Live registration sessions held in Redis",
		},
	)

	redirectCountdowns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "redirect_countdowns_active",
			Help: "Pending confirmation redirect countdowns",
		},
	)
)

// TrackRegistrationFinalized counts one durable form submission.
func TrackRegistrationFinalized(eventID, status string) {
	registrationsFinalized.WithLabelValues(eventID, status).Inc()
}

// TrackCollectorOutcome counts a manual payment dialog advance attempt.
func TrackCollectorOutcome(step, outcome string) {
	collectorOutcomes.WithLabelValues(step, outcome).Inc()
}

// TrackCounterIncrementFailure counts a stale registrations_count.
func TrackCounterIncrementFailure() {
	counterIncrementFailures.Inc()
}

// TrackEmail counts an outbound email attempt.
func TrackEmail(emailType string, sent bool) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	emailsSent.WithLabelValues(emailType, result).Inc()
}

// TrackDonation counts a donation record.
func TrackDonation(status string) {
	donationsCreated.WithLabelValues(status).Inc()
}

// SetRedirectCountdowns publishes the countdown registry size.
func SetRedirectCountdowns(n int) {
	redirectCountdowns.Set(float64(n))
}

// Monitor samples gauge metrics from Redis in the background.
type Monitor struct {
	redis *redis.Client
}

func NewMonitor(redisClient *redis.Client) *Monitor {
	return &Monitor{redis: redisClient}
}

// Run samples until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectSessionMetrics(ctx)
		}
	}
}

func (m *Monitor) collectSessionMetrics(ctx context.Context) {
	var count int64
	iter := m.redis.Scan(ctx, 0, "registration_session:*", 200).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return
	}
	activeSessions.Set(float64(count))
}
