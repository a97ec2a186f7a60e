package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	ratelimit "github.com/Dzaakk/redis-rate-limiter/limiter"
)

// Prometheus implements limiter.Recorder with Prometheus collectors.
type Prometheus struct {
	decisions     *prometheus.CounterVec
	errors        *prometheus.CounterVec
	reloads       *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
}

// NewPrometheus registers the collectors with reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimit_decisions_total",
				Help: "Total number of rate limit decisions",
			},
			[]string{"algorithm", "policy", "result"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimit_errors_total",
				Help: "Total number of checks that failed on the store",
			},
			[]string{"algorithm", "policy"},
		),
		reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratelimit_script_reloads_total",
				Help: "Total number of routines resubmitted after a NOSCRIPT reply",
			},
			[]string{"routine"},
		),
		checkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratelimit_check_duration_seconds",
				Help:    "Duration of rate limit checks in seconds",
				Buckets: prometheus.ExponentialBuckets(0.00005, 2, 14), // 50µs to ~400ms
			},
			[]string{"algorithm"},
		),
	}
}

func (p *Prometheus) ObserveDecision(alg ratelimit.Algorithm, id string, allowed bool, elapsed time.Duration) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	p.decisions.WithLabelValues(string(alg), id, result).Inc()
	if elapsed > 0 {
		p.checkDuration.WithLabelValues(string(alg)).Observe(elapsed.Seconds())
	}
}

func (p *Prometheus) ObserveError(alg ratelimit.Algorithm, id string) {
	p.errors.WithLabelValues(string(alg), id).Inc()
}

func (p *Prometheus) ObserveReload(routine string) {
	p.reloads.WithLabelValues(routine).Inc()
}
