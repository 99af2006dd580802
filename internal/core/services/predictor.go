package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/features"
	ports "diamond-price-service/internal/core/ports/output"
	"diamond-price-service/internal/core/regression"
)

type ModelState string

const (
	ModelStateUnloaded ModelState = "UNLOADED"
	ModelStateLoaded   ModelState = "LOADED"
)

// LoadedModel is an immutable handle on a deserialized model and the registry
// metadata it was loaded from.
type LoadedModel struct {
	Model    *regression.Model
	Metadata domain.RegistryMetadata
	LoadedAt time.Time
}

// PredictorService serves predictions from the active registry model.
// The handle is swapped atomically; a handle is published only once the
// artifact behind it is fully loaded.
type PredictorService struct {
	registry ports.ModelRegistry
	metrics  ports.ServingMetrics

	active atomic.Pointer[LoadedModel]
	loadMu sync.Mutex
}

func NewPredictorService(registry ports.ModelRegistry, metrics ports.ServingMetrics) *PredictorService {
	return &PredictorService{registry: registry, metrics: metrics}
}

func (s *PredictorService) State() ModelState {
	if s.active.Load() == nil {
		return ModelStateUnloaded
	}
	return ModelStateLoaded
}

// Active returns the current handle, or nil when no model is loaded.
func (s *PredictorService) Active() *LoadedModel {
	return s.active.Load()
}

// Refresh reloads metadata and artifact and replaces the cached handle.
// On failure the previous handle stays in place.
func (s *PredictorService) Refresh(ctx context.Context) (*LoadedModel, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.load(ctx)
}

func (s *PredictorService) ensureLoaded(ctx context.Context) (*LoadedModel, error) {
	if lm := s.active.Load(); lm != nil {
		return lm, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if lm := s.active.Load(); lm != nil {
		return lm, nil
	}
	log.Info("no model cached, loading on first request")
	return s.load(ctx)
}

// load must be called with loadMu held.
func (s *PredictorService) load(ctx context.Context) (*LoadedModel, error) {
	meta, err := s.registry.ReadMetadata(ctx)
	if err != nil {
		s.observeLoad(nil, err)
		return nil, err
	}

	model, err := s.registry.LoadArtifact(ctx, meta.ActiveModelPath)
	if err != nil {
		s.observeLoad(meta, err)
		return nil, err
	}

	lm := &LoadedModel{
		Model:    model,
		Metadata: *meta,
		LoadedAt: time.Now().UTC(),
	}
	s.active.Store(lm)
	s.observeLoad(meta, nil)

	log.WithFields(log.Fields{
		"artifact": meta.ActiveModelPath,
		"mae":      meta.ValidationMetric,
	}).Info("model loaded")
	return lm, nil
}

// Predict validates d, loads the model on first use and returns the predicted
// price rounded to 3 decimals. Invalid payloads never touch the cache.
func (s *PredictorService) Predict(ctx context.Context, d domain.Diamond) (price float64, err error) {
	start := time.Now()
	defer func() { s.observePrediction(time.Since(start), err) }()

	x, err := features.Encode(d)
	if err != nil {
		return 0, err
	}

	lm, err := s.ensureLoaded(ctx)
	if err != nil {
		return 0, err
	}

	p, err := lm.Model.Predict(x)
	if err != nil {
		return 0, err
	}
	return regression.Round(p, 3), nil
}

func (s *PredictorService) observeLoad(m *domain.RegistryMetadata, err error) {
	if s.metrics != nil {
		s.metrics.ObserveModelLoad(m, err)
	}
}

func (s *PredictorService) observePrediction(elapsed time.Duration, err error) {
	if s.metrics != nil {
		s.metrics.ObservePrediction(elapsed, err)
	}
}
