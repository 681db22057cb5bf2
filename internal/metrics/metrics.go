package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Replies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoreply_replies_total",
		Help: "Replies sent, by wire format and the rule that produced them.",
	}, []string{"format", "outcome"})

	ExtractionFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoreply_extraction_failures_total",
		Help: "Inbound bodies that could not be turned into a message.",
	})
	SignatureFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoreply_signature_failures_total",
		Help: "Requests rejected because their signature did not match.",
	})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoreply_cache_lookups_total",
		Help: "Reply cache lookups by result (hit, miss, error).",
	}, []string{"result"})

	RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "autoreply_rate_limited_total",
		Help: "Requests rejected by the per-client rate limiter.",
	})

	HandleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "autoreply_handle_duration_seconds",
		Help:    "Time to turn an inbound message into a reply.",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	})
)

var registerOnce sync.Once

// Register adds the collectors to the default registry. Calling it more
// than once is a no-op.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			Replies,
			ExtractionFailures, SignatureFailures,
			CacheLookups, RateLimited,
			HandleDuration,
		)
	})
}
