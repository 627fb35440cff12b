package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	analysisStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_started_total",
		Help: "Total analyses started",
	})
	analysisCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "analysis_completed_total",
		Help: "Total analyses completed",
	})
	analysisTaskFailedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "analysis_task_failed_total",
		Help: "Analysis tasks whose model call failed",
	}, []string{"task"})
	analysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "analysis_duration_ms",
		Help:    "Analysis duration in milliseconds",
		Buckets: []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
	})
	llmRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_requests_total",
		Help: "Model provider calls by outcome",
	}, []string{"outcome"})
	chatQuestionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_questions_total",
		Help: "Chat questions by outcome",
	}, []string{"outcome"})
	extractionFailedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "extraction_failed_total",
		Help: "Uploads whose text could not be extracted",
	})
)

func init() {
	registry.MustRegister(
		analysisStartedTotal,
		analysisCompletedTotal,
		analysisTaskFailedTotal,
		analysisDuration,
		llmRequestsTotal,
		chatQuestionsTotal,
		extractionFailedTotal,
	)
}

// IncAnalysisStarted increments the started counter.
func IncAnalysisStarted() {
	analysisStartedTotal.Inc()
}

// IncAnalysisCompleted increments the completed counter.
func IncAnalysisCompleted() {
	analysisCompletedTotal.Inc()
}

// IncAnalysisTaskFailed counts a failed analysis task.
func IncAnalysisTaskFailed(task string) {
	analysisTaskFailedTotal.WithLabelValues(task).Inc()
}

// ObserveAnalysisDurationMs records an analysis duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	analysisDuration.Observe(value)
}

// IncLLMRequest counts a provider call; outcome is "ok" or "error".
func IncLLMRequest(outcome string) {
	llmRequestsTotal.WithLabelValues(outcome).Inc()
}

// IncChatQuestion counts a chat question; outcome is "ok", "no_analysis" or "error".
func IncChatQuestion(outcome string) {
	chatQuestionsTotal.WithLabelValues(outcome).Inc()
}

// IncExtractionFailed counts an upload that produced no text.
func IncExtractionFailed() {
	extractionFailedTotal.Inc()
}

// Registry exposes the process registry, mainly for tests.
func Registry() *prometheus.Registry {
	return registry
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
