package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess   = "success"
	OutcomeCancelled = "cancelled"
	OutcomeTimeout   = "timeout"
	OutcomeError     = "error"
)

// Metrics holds the scrape collectors on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	ScrapesTotal   *prometheus.CounterVec
	ScrapeDuration *prometheus.HistogramVec
	CapturedBytes  *prometheus.CounterVec
}

// New registers the scrape collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ScrapesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidscrape_scrapes_total",
				Help: "Total number of scrapes by outcome.",
			},
			[]string{"site", "outcome"},
		),
		ScrapeDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vidscrape_scrape_duration_seconds",
				Help:    "Wall time of a scrape, recording included.",
				Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200, 14400},
			},
			[]string{"site"},
		),
		CapturedBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vidscrape_captured_bytes_total",
				Help: "Bytes of media written to disk.",
			},
			[]string{"site"},
		),
	}
}

// ObserveScrape records one finished scrape.
func (m *Metrics) ObserveScrape(site string, err error, elapsed time.Duration, capturedBytes int64) {
	m.ScrapesTotal.WithLabelValues(site, Outcome(err)).Inc()
	m.ScrapeDuration.WithLabelValues(site).Observe(elapsed.Seconds())
	if capturedBytes > 0 {
		m.CapturedBytes.WithLabelValues(site).Add(float64(capturedBytes))
	}
}

// Outcome classifies a scrape error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

// WriteTextfile writes the current values in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.Registry)
}
