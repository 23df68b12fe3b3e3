package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	InboundTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoreply_inbound_total",
		Help: "Message events by disposition",
	}, []string{"disposition"})

	OutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoreply_outcomes_total",
		Help: "Reply coordination outcomes",
	}, []string{"outcome"})

	PendingCandidates = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "autoreply_pending_candidates",
		Help: "Candidates waiting for their delayed evaluation",
	})

	CompletionSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "autoreply_completion_seconds",
		Help:    "Completion service latency",
		Buckets: prometheus.DefBuckets,
	})

	SendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoreply_send_errors_total",
		Help: "Failed outbound sends",
	})
)

// MustRegister registers the reply metrics
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		InboundTotal,
		OutcomesTotal,
		PendingCandidates,
		CompletionSeconds,
		SendErrors,
	)
}
