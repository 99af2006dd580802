package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/regression"
)

// MockDiamondSource is a mock of DiamondSource.
type MockDiamondSource struct {
	mock.Mock
}

func (m *MockDiamondSource) LoadDiamonds(ctx context.Context) ([]domain.DiamondRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DiamondRow), args.Error(1)
}

// MockModelRegistry is a mock of ModelRegistry.
type MockModelRegistry struct {
	mock.Mock
}

func (m *MockModelRegistry) ReadMetadata(ctx context.Context) (*domain.RegistryMetadata, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RegistryMetadata), args.Error(1)
}

func (m *MockModelRegistry) WriteMetadata(ctx context.Context, meta *domain.RegistryMetadata) error {
	args := m.Called(ctx, meta)
	return args.Error(0)
}

func (m *MockModelRegistry) SaveArtifact(ctx context.Context, model *regression.Model) (string, error) {
	args := m.Called(ctx, model)
	return args.String(0), args.Error(1)
}

func (m *MockModelRegistry) LoadArtifact(ctx context.Context, path string) (*regression.Model, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*regression.Model), args.Error(1)
}

// MockServingMetrics is a mock of ServingMetrics.
type MockServingMetrics struct {
	mock.Mock
}

func (m *MockServingMetrics) ObservePrediction(elapsed time.Duration, err error) {
	m.Called(elapsed, err)
}

func (m *MockServingMetrics) ObserveModelLoad(meta *domain.RegistryMetadata, err error) {
	m.Called(meta, err)
}

func (m *MockServingMetrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.Called(method, route, status, elapsed)
}
