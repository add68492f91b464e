package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for verification flow operations.
type Metrics struct {
	SessionsStarted      *prometheus.CounterVec
	OTPSends             *prometheus.CounterVec
	VerificationFailures prometheus.Counter
	GatewayErrors        prometheus.Counter
	SessionsCompleted    *prometheus.CounterVec
	SessionsAbandoned    prometheus.Counter
	VerifyDurationMs     prometheus.Histogram
}

// New registers and returns verification metrics collectors.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hawell_verification_sessions_started_total",
			Help: "Total number of verification sessions started",
		}, []string{"flow"}),
		OTPSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hawell_otp_sends_total",
			Help: "Total number of OTP challenges sent",
		}, []string{"flow", "medium"}),
		VerificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hawell_verification_failures_total",
			Help: "Total number of explicitly rejected verification codes",
		}),
		GatewayErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hawell_otp_gateway_errors_total",
			Help: "Total number of OTP gateway transport or provider failures",
		}),
		SessionsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "hawell_verification_sessions_completed_total",
			Help: "Total number of verification sessions completed",
		}, []string{"flow"}),
		SessionsAbandoned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "hawell_verification_sessions_abandoned_total",
			Help: "Total number of sessions abandoned after exceeding the attempt cap",
		}),
		VerifyDurationMs: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "hawell_verify_otp_duration_ms",
			Help:    "Latency of verify-otp operations in milliseconds",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
}

func (m *Metrics) IncrementSessionsStarted(flow string) {
	m.SessionsStarted.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncrementOTPSends(flow, medium string) {
	m.OTPSends.WithLabelValues(flow, medium).Inc()
}

func (m *Metrics) IncrementVerificationFailures() {
	m.VerificationFailures.Inc()
}

func (m *Metrics) IncrementGatewayErrors() {
	m.GatewayErrors.Inc()
}

func (m *Metrics) IncrementSessionsCompleted(flow string) {
	m.SessionsCompleted.WithLabelValues(flow).Inc()
}

func (m *Metrics) IncrementSessionsAbandoned() {
	m.SessionsAbandoned.Inc()
}

func (m *Metrics) ObserveVerifyDuration(durationMs float64) {
	m.VerifyDurationMs.Observe(durationMs)
}
