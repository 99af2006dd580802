package prometheus

import (
	"errors"
	"strconv"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"diamond-price-service/internal/core/domain"
)

const namespace = "diamond_price"

// Collector implements the serving and training metrics ports on a private
// Prometheus registry.
type Collector struct {
	registry *prom.Registry

	predictions       *prom.CounterVec
	predictionLatency prom.Histogram
	modelLoads        *prom.CounterVec
	activeMetric      prom.Gauge
	requests          *prom.CounterVec
	requestLatency    *prom.HistogramVec

	trainingMetric   prom.Gauge
	trainingPromoted prom.Gauge
	trainingDuration prom.Gauge
	trainingLastRun  prom.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prom.NewRegistry(),
		predictions: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by result.",
		}, []string{"result"}),
		predictionLatency: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent producing a prediction, including lazy model loads.",
			Buckets:   prom.ExponentialBuckets(0.0001, 4, 8),
		}),
		modelLoads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "model_loads_total",
			Help:      "Model load attempts by result.",
		}, []string{"result"}),
		activeMetric: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "active_model_validation_mae",
			Help:      "Validation MAE recorded for the model currently served.",
		}),
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestLatency: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prom.DefBuckets,
		}, []string{"method", "route"}),
		trainingMetric: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "training_candidate_mae",
			Help:      "Cross-validated MAE of the last training candidate.",
		}),
		trainingPromoted: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "training_promoted",
			Help:      "1 if the last training run promoted its candidate, 0 otherwise.",
		}),
		trainingDuration: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "training_duration_seconds",
			Help:      "Wall time of the last training run.",
		}),
		trainingLastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "training_last_run_timestamp_seconds",
			Help:      "Unix time the last training run finished.",
		}),
	}

	c.registry.MustRegister(
		c.predictions, c.predictionLatency, c.modelLoads, c.activeMetric,
		c.requests, c.requestLatency,
		c.trainingMetric, c.trainingPromoted, c.trainingDuration, c.trainingLastRun,
	)
	return c
}

// Gatherer exposes the registry to promhttp.
func (c *Collector) Gatherer() prom.Gatherer {
	return c.registry
}

// WriteTextfile dumps every metric in the text exposition format, for the
// node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, c.registry)
}

func (c *Collector) ObservePrediction(elapsed time.Duration, err error) {
	c.predictions.WithLabelValues(result(err)).Inc()
	c.predictionLatency.Observe(elapsed.Seconds())
}

func (c *Collector) ObserveModelLoad(m *domain.RegistryMetadata, err error) {
	c.modelLoads.WithLabelValues(result(err)).Inc()
	if err == nil && m != nil {
		c.activeMetric.Set(m.ValidationMetric)
	}
}

func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.requestLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (c *Collector) ObserveTraining(candidateMetric float64, promoted bool, elapsed time.Duration) {
	c.trainingMetric.Set(candidateMetric)
	if promoted {
		c.trainingPromoted.Set(1)
	} else {
		c.trainingPromoted.Set(0)
	}
	c.trainingDuration.Set(elapsed.Seconds())
	c.trainingLastRun.SetToCurrentTime()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNoActiveModel):
		return "unavailable"
	case errors.Is(err, domain.ErrRegistryCorrupted):
		return "corrupted"
	default:
		return "error"
	}
}
