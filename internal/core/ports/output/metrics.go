package ports

import (
	"time"

	"diamond-price-service/internal/core/domain"
)

// ServingMetrics records inference service activity.
type ServingMetrics interface {
	ObservePrediction(elapsed time.Duration, err error)
	ObserveModelLoad(m *domain.RegistryMetadata, err error)
	ObserveRequest(method, route string, status int, elapsed time.Duration)
}

// TrainingMetrics records the outcome of a training run.
type TrainingMetrics interface {
	ObserveTraining(candidateMetric float64, promoted bool, elapsed time.Duration)
}
