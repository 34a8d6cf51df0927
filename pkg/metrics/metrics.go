package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact submissions by final outcome (count)",
		},
		[]string{"outcome"},
	)

	EmailSendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_email_sends_total",
			Help: "Notification sends by kind (admin, customer) and result (count)",
		},
		[]string{"kind", "result"},
	)

	EmailSendDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contact_email_send_duration_ms",
			Help:    "Duration of a single notification send in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"kind"},
	)

	AdminNotificationFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_admin_notification_failures_total",
			Help: "Accepted submissions whose admin notification was not delivered (count)",
		},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "contact_rate_limited_total",
			Help: "Submissions rejected by the rate limiter (count)",
		},
	)

	CaptchaChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_captcha_checks_total",
			Help: "CAPTCHA checks by result (count)",
		},
		[]string{"result"},
	)

	TokenAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contact_token_attempts_total",
			Help: "OAuth2 token acquisition attempts by result (count)",
		},
		[]string{"result"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contact_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

var registerOnce sync.Once

// RegisterContactMetrics registers every collector with reg. Later calls are no-ops.
func RegisterContactMetrics(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		reg.MustRegister(
			SubmissionsTotal,
			EmailSendsTotal,
			EmailSendDuration,
			AdminNotificationFailuresTotal,
			RateLimitedTotal,
			CaptchaChecksTotal,
			TokenAttemptsTotal,
			CircuitBreakerState,
		)
	})
}
