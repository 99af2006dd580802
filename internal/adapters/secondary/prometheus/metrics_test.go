package prometheus

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diamond-price-service/internal/core/domain"
)

func TestCollector_Predictions(t *testing.T) {
	c := NewCollector()

	c.ObservePrediction(time.Millisecond, nil)
	c.ObservePrediction(time.Millisecond, nil)
	c.ObservePrediction(time.Millisecond, &domain.ValidationError{Fields: map[string]string{"carat": "field required"}})
	c.ObservePrediction(time.Millisecond, domain.ErrNoActiveModel)
	c.ObservePrediction(time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, promtest.ToFloat64(c.predictions.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.predictions.WithLabelValues("invalid")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.predictions.WithLabelValues("unavailable")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.predictions.WithLabelValues("error")))
}

func TestCollector_ModelLoads(t *testing.T) {
	c := NewCollector()

	c.ObserveModelLoad(&domain.RegistryMetadata{ActiveModelPath: "a.model", ValidationMetric: 150}, nil)
	c.ObserveModelLoad(nil, domain.ErrRegistryCorrupted)

	assert.Equal(t, 150.0, promtest.ToFloat64(c.activeMetric))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.modelLoads.WithLabelValues("ok")))
	assert.Equal(t, 1.0, promtest.ToFloat64(c.modelLoads.WithLabelValues("corrupted")))
}

func TestCollector_Requests(t *testing.T) {
	c := NewCollector()

	c.ObserveRequest("POST", "/diamond_price", 422, time.Millisecond)

	assert.Equal(t, 1.0, promtest.ToFloat64(c.requests.WithLabelValues("POST", "/diamond_price", "422")))
	assert.Equal(t, 1, promtest.CollectAndCount(c.requestLatency))
}

func TestCollector_TrainingTextfile(t *testing.T) {
	c := NewCollector()
	c.ObserveTraining(150.5, true, 2*time.Second)

	path := filepath.Join(t.TempDir(), "trainer.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "diamond_price_training_candidate_mae 150.5")
	assert.Contains(t, string(data), "diamond_price_training_promoted 1")
}
