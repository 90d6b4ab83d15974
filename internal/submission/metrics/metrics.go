package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SubmissionsTotal          *prometheus.CounterVec
	CaptchaVerificationsTotal *prometheus.CounterVec
	RateLimitedTotal          *prometheus.CounterVec
	DispatchFailuresTotal     prometheus.Counter
	DispatchLatencySeconds    prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haulready_submissions_total",
			Help: "Total number of form submissions processed",
		}, []string{"kind", "outcome"}),
		CaptchaVerificationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haulready_captcha_verifications_total",
			Help: "Total number of CAPTCHA verification attempts",
		}, []string{"result"}),
		RateLimitedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "haulready_rate_limited_total",
			Help: "Total number of submissions rejected by the rate limiter",
		}, []string{"kind"}),
		DispatchFailuresTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "haulready_dispatch_failures_total",
			Help: "Total number of failed notification dispatch attempts",
		}),
		DispatchLatencySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "haulready_dispatch_latency_seconds",
			Help: "Latency of notification dispatch calls in seconds",
		}),
	}
}

// The increment helpers tolerate a nil receiver so callers can run without
// metrics wired, as tests do.

func (m *Metrics) IncrementSubmissions(kind, outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) IncrementCaptchaVerifications(result string) {
	if m == nil {
		return
	}
	m.CaptchaVerificationsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementRateLimited(kind string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementDispatchFailures() {
	if m == nil {
		return
	}
	m.DispatchFailuresTotal.Inc()
}

func (m *Metrics) ObserveDispatchLatency(seconds float64) {
	if m == nil {
		return
	}
	m.DispatchLatencySeconds.Observe(seconds)
}
