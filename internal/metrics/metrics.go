package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the registered metrics for scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics holds all Prometheus metrics
type Metrics struct {
	ArtifactsProcessed   prometheus.Counter
	ParseFailures        prometheus.Counter
	UnsubscribeAttempts  prometheus.Counter
	UnsubscribeSuccesses prometheus.Counter
	WhoisFailures        prometheus.Counter
	BrandsIdentified     prometheus.Counter
	ProcessingTime       prometheus.Histogram
}

// NewMetrics creates new Prometheus metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ArtifactsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spam_intake_artifacts_processed",
			Help: "Total number of email artifacts fully processed",
		}),
		ParseFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spam_intake_parse_failures",
			Help: "Total number of artifacts abandoned as malformed",
		}),
		UnsubscribeAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spam_intake_unsubscribe_attempts",
			Help: "Total number of opt-out requests issued",
		}),
		UnsubscribeSuccesses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spam_intake_unsubscribe_successes",
			Help: "Total number of opt-out requests answered with a 2xx status",
		}),
		WhoisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spam_intake_whois_failures",
			Help: "Total number of failed domain registration lookups",
		}),
		BrandsIdentified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "spam_intake_brands_identified",
			Help: "Total number of brand impersonation matches",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "spam_intake_processing_duration_seconds",
			Help:    "Time spent processing one artifact",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
