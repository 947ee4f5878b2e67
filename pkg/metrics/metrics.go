package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	FilesIndexedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bloop_files_indexed_total",
			Help: "Total number of files written to the full-text index",
		},
	)

	FilesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bloop_files_skipped_total",
			Help: "Total number of files skipped because their hash was unchanged",
		},
	)

	FilesFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bloop_files_failed_total",
			Help: "Total number of files that failed to index and were skipped",
		},
	)

	DocumentsSweptTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bloop_documents_swept_total",
			Help: "Total number of stale documents deleted by the end-of-pass sweep",
		},
	)

	PassDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bloop_pass_duration_seconds",
			Help:    "Duration of one indexing pass over a repository",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	// Chunk cache metrics
	ChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bloop_chunks_total",
			Help: "Total number of chunk cache operations by kind",
		},
		[]string{"op"},
	)

	ChunkCommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bloop_chunk_commit_duration_seconds",
			Help:    "Duration of one chunk cache commit",
			Buckets: prometheus.DefBuckets,
		},
	)

	EmbeddingsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bloop_embeddings_total",
			Help: "Total number of embedder invocations",
		},
	)
)

func init() {
	prometheus.MustRegister(FilesIndexedTotal)
	prometheus.MustRegister(FilesSkippedTotal)
	prometheus.MustRegister(FilesFailedTotal)
	prometheus.MustRegister(DocumentsSweptTotal)
	prometheus.MustRegister(PassDuration)
	prometheus.MustRegister(ChunksTotal)
	prometheus.MustRegister(ChunkCommitDuration)
	prometheus.MustRegister(EmbeddingsTotal)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for histogram observation
type Timer struct {
	start time.Time
}

// NewTimer starts a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time in the given histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
