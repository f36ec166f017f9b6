// Package metrics provides Prometheus metrics for the HeartGuard pipeline:
// training runs, prediction throughput and latency, score distribution and
// model freshness. Metrics are exposed on the serving endpoint's /metrics
// path.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	TrainingRuns     prometheus.Counter   // Completed training runs
	TrainingFailures prometheus.Counter   // Failed training runs
	TrainingDuration prometheus.Histogram // Wall-clock training duration in seconds

	Predictions        prometheus.Counter   // Predictions served
	PredictionFailures prometheus.Counter   // Prediction requests that errored
	PredictionLatency  prometheus.Histogram // End-to-end prediction latency in seconds
	PredictionScores   prometheus.Histogram // Distribution of predicted probabilities

	ModelAge      prometheus.Gauge // Age of the loaded model in seconds
	ModelROCAUC   prometheus.Gauge // ROC-AUC of the loaded model's snapshot
	ModelAccuracy prometheus.Gauge // Accuracy of the loaded model's snapshot
}

// New creates and registers all metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics against a custom registry, keeping tests
// isolated from the global one.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		TrainingRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_runs_total",
			Help: "Total number of completed training runs",
		}),
		TrainingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "training_failures_total",
			Help: "Total number of failed training runs",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "training_duration_seconds",
			Help:    "Wall-clock duration of training runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of prediction requests that errored",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		PredictionScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_scores",
			Help:    "Distribution of predicted positive-class probabilities",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		ModelAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_age_seconds",
			Help: "Age of the currently loaded model in seconds",
		}),
		ModelROCAUC: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_roc_auc",
			Help: "ROC-AUC recorded for the currently loaded model",
		}),
		ModelAccuracy: factory.NewGauge(prometheus.GaugeOpts{
			Name: "model_accuracy",
			Help: "Accuracy recorded for the currently loaded model",
		}),
	}
}

// ObserveModel records the loaded model's snapshot gauges.
func (m *Metrics) ObserveModel(ageSeconds, accuracy, rocAUC float64) {
	if m == nil {
		return
	}
	m.ModelAge.Set(ageSeconds)
	m.ModelAccuracy.Set(accuracy)
	m.ModelROCAUC.Set(rocAUC)
}

// ObserveTrainingSuccess records one completed training run and its
// wall-clock duration.
func (m *Metrics) ObserveTrainingSuccess(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TrainingRuns.Inc()
	m.TrainingDuration.Observe(elapsed.Seconds())
}

// ObserveTrainingFailure records one failed training run.
func (m *Metrics) ObserveTrainingFailure() {
	if m == nil {
		return
	}
	m.TrainingFailures.Inc()
}
