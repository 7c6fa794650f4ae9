package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	completionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agendabot_llm_completion_duration_seconds",
			Help:    "Latency of chat completion calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider", "status"},
	)

	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agendabot_llm_retries_total",
			Help: "Completion calls retried after a transient failure",
		},
		[]string{"provider"},
	)
)

func init() {
	prometheus.MustRegister(completionDuration, retriesTotal)
}

func observeCompletion(provider string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	completionDuration.WithLabelValues(provider, status).Observe(time.Since(started).Seconds())
}
