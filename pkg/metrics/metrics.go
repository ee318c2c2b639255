package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Photo outcomes recorded in pexelscraper_photos_total
const (
	ResultDownloaded        = "downloaded"
	ResultSkipped           = "skipped"
	ResultFailed            = "failed"
	ResultMissingResolution = "missing_resolution"
)

// Recorder collects the counters for one run on its own registry
type Recorder struct {
	registry *prometheus.Registry

	Photos           *prometheus.CounterVec
	SearchRequests   *prometheus.CounterVec
	BytesDownloaded  prometheus.Counter
	DownloadAttempts prometheus.Counter
	DownloadDuration prometheus.Histogram
}

// New creates a Recorder with every series registered
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		Photos: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pexelscraper_photos_total",
				Help: "Photos processed, by outcome.",
			},
			[]string{"result"},
		),
		SearchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pexelscraper_search_requests_total",
				Help: "Search API requests, by status.",
			},
			[]string{"status"}, // ok, error
		),
		BytesDownloaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pexelscraper_bytes_downloaded_total",
				Help: "Bytes written to disk for downloaded photos.",
			},
		),
		DownloadAttempts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pexelscraper_download_attempts_total",
				Help: "HTTP attempts made while downloading photos, retries included.",
			},
		),
		DownloadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pexelscraper_download_duration_seconds",
				Help:    "Time spent downloading one photo, retries included.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
	}
}

// ObservePhoto counts one photo outcome
func (r *Recorder) ObservePhoto(result string) {
	r.Photos.WithLabelValues(result).Inc()
}

// ObserveSearch counts one search request
func (r *Recorder) ObserveSearch(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.SearchRequests.WithLabelValues(status).Inc()
}

// ObserveDownload records the cost of one download
func (r *Recorder) ObserveDownload(bytes int64, attempts int, duration time.Duration) {
	if bytes > 0 {
		r.BytesDownloaded.Add(float64(bytes))
	}
	if attempts > 0 {
		r.DownloadAttempts.Add(float64(attempts))
	}
	r.DownloadDuration.Observe(duration.Seconds())
}

// Registry exposes the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all series in the text exposition format, suitable
// for the node_exporter textfile collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
