package ports

import (
	"context"

	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/regression"
)

// DiamondSource reads the labeled training dataset. Implementations are
// read-only and wrap failures in domain.ErrDataSource.
type DiamondSource interface {
	LoadDiamonds(ctx context.Context) ([]domain.DiamondRow, error)
}

// ModelRegistry stores model artifacts and the metadata naming the active one.
//
// ReadMetadata returns domain.ErrNoActiveModel when nothing was promoted yet
// and domain.ErrRegistryCorrupted when the metadata cannot be trusted.
// LoadArtifact returns domain.ErrRegistryCorrupted for missing or
// undecodable artifacts. Writes are atomic: readers see either the old or the
// new file, never a partial one.
type ModelRegistry interface {
	ReadMetadata(ctx context.Context) (*domain.RegistryMetadata, error)
	WriteMetadata(ctx context.Context, m *domain.RegistryMetadata) error
	SaveArtifact(ctx context.Context, model *regression.Model) (string, error)
	LoadArtifact(ctx context.Context, path string) (*regression.Model, error)
}

// RegistryWatcher signals changes to the registry metadata.
type RegistryWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}
