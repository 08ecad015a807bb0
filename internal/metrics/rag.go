package metrics

import "github.com/prometheus/client_golang/prometheus"

// RAG pipeline Prometheus metrics.
var (
	QuestionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions by terminal outcome",
		},
		[]string{"outcome", "language"}, // answered / no_evidence / low_confidence / model_refused / failed / canceled
	)

	QuestionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_failures_total",
			Help:      "Failed questions by failure kind",
		},
		[]string{"kind"},
	)

	AnswerConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_confidence",
			Help:      "Confidence score of retrieved evidence",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	EvidenceCount = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evidence_count",
			Help:      "Evidence items kept after the similarity floor",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 10, 15, 20},
		},
	)

	QuestionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "question_duration_seconds",
			Help:      "End-to-end question handling duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	IngestedChunksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingested_chunks_total",
			Help:      "Total chunks written to the index",
		},
	)

	IngestionFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestion_failures_total",
			Help:      "Failed document ingestions by failure kind",
		},
		[]string{"kind"},
	)
)

// RegisterRAGMetrics registers the pipeline group. Safe to call more than once.
func RegisterRAGMetrics() {
	mustRegisterOnce(&ragOnce,
		QuestionsTotal,
		QuestionFailuresTotal,
		AnswerConfidence,
		EvidenceCount,
		QuestionDuration,
		IngestedChunksTotal,
		IngestionFailuresTotal,
	)
}
