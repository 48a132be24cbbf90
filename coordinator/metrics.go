package coordinator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sevigo/semchunk/schema"
)

// Metrics counts coordinator outcomes. A nil *Metrics records nothing.
type Metrics struct {
	files        *prometheus.CounterVec
	chunks       *prometheus.CounterVec
	duplicates   prometheus.Counter
	degradations *prometheus.CounterVec
	duration     prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg uses the default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semchunk_files_total",
			Help: "Files processed, by outcome.",
		}, []string{"outcome"}),
		chunks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semchunk_chunks_total",
			Help: "Chunks emitted after deduplication, by producing tier.",
		}, []string{"source"}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "semchunk_duplicates_total",
			Help: "Chunks dropped as duplicates.",
		}),
		degradations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "semchunk_degradations_total",
			Help: "Emitted chunks produced by a degradation method.",
		}, []string{"method"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "semchunk_file_duration_seconds",
			Help:    "Time spent chunking one file.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

func (m *Metrics) observeFailure(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(kind).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) observeSuccess(kept []schema.CodeChunk, duplicates int, d time.Duration) {
	if m == nil {
		return
	}
	m.files.WithLabelValues("ok").Inc()
	m.duration.Observe(d.Seconds())
	m.duplicates.Add(float64(duplicates))
	for _, c := range kept {
		m.chunks.WithLabelValues(string(c.Source)).Inc()
		if c.Metadata.Degradation != "" {
			m.degradations.WithLabelValues(c.Metadata.Degradation).Inc()
		}
	}
}
