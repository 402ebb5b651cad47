package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var documentsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "documents_ingested_total",
	Help: "Number of ingestion runs labelled by outcome",
}, []string{"outcome"})

var chunksIndexed = promauto.NewCounter(prometheus.CounterOpts{
	Name: "chunks_indexed_total",
	Help: "Number of chunks written to the vector index",
})

var ingestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "ingest_duration_seconds",
	Help:    "Time spent processing one document end to end.",
	Buckets: []float64{.5, 1, 2, 5, 10, 30, 60, 120},
})

var messagesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "messages_created_total",
	Help: "Number of user messages answered labelled by mode",
}, []string{"mode"})

var generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "generation_duration_seconds",
	Help:    "Latency of answer generation.",
	Buckets: []float64{.25, .5, 1, 2, 5, 10, 30, 60},
}, []string{"outcome"})

func ObserveIngest(outcome string, chunks int, elapsed time.Duration) {
	documentsIngested.WithLabelValues(outcome).Inc()
	if chunks > 0 {
		chunksIndexed.Add(float64(chunks))
	}
	ingestDuration.Observe(elapsed.Seconds())
}

func IncrementMessagesCreated(mode string) {
	messagesCreated.WithLabelValues(mode).Inc()
}

func ObserveGeneration(outcome string, elapsed time.Duration) {
	generationDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}
