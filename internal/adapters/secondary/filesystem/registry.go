package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"diamond-price-service/internal/config"
	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/features"
	ports "diamond-price-service/internal/core/ports/output"
	"diamond-price-service/internal/core/regression"
)

const artifactExt = ".model"

type registry struct {
	fs           afero.Fs
	dir          string
	metadataFile string
	now          func() time.Time
}

// NewRegistry returns a model registry rooted at cfg.Dir on fs.
func NewRegistry(fs afero.Fs, cfg *config.RegistryConfig) ports.ModelRegistry {
	name := cfg.MetadataFile
	if name == "" {
		name = "modelsettings.json"
	}
	return &registry{
		fs:           fs,
		dir:          cfg.Dir,
		metadataFile: name,
		now:          time.Now,
	}
}

// metadataDoc mirrors domain.RegistryMetadata with pointers so missing
// required fields can be told apart from zero values.
type metadataDoc struct {
	ActiveModelPath  *string            `json:"active_model_path"`
	ValidationMetric *float64           `json:"validation_metric"`
	ModelName        string             `json:"model_name,omitempty"`
	ModelParams      map[string]float64 `json:"model_params,omitempty"`
	PromotedAt       time.Time          `json:"promoted_at"`
}

func (r *registry) metadataPath() string {
	return filepath.Join(r.dir, r.metadataFile)
}

func (r *registry) ReadMetadata(ctx context.Context) (*domain.RegistryMetadata, error) {
	data, err := afero.ReadFile(r.fs, r.metadataPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNoActiveModel
		}
		return nil, fmt.Errorf("%w: read metadata: %v", domain.ErrRegistryCorrupted, err)
	}

	var doc metadataDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", domain.ErrRegistryCorrupted, err)
	}
	if doc.ActiveModelPath == nil || *doc.ActiveModelPath == "" {
		return nil, fmt.Errorf("%w: metadata has no active_model_path", domain.ErrRegistryCorrupted)
	}
	if doc.ValidationMetric == nil {
		return nil, fmt.Errorf("%w: metadata has no validation_metric", domain.ErrRegistryCorrupted)
	}

	m := &domain.RegistryMetadata{
		ActiveModelPath:  *doc.ActiveModelPath,
		ValidationMetric: *doc.ValidationMetric,
		ModelName:        doc.ModelName,
		ModelParams:      doc.ModelParams,
		PromotedAt:       doc.PromotedAt,
	}
	if !m.Valid() {
		return nil, fmt.Errorf("%w: invalid validation_metric %v", domain.ErrRegistryCorrupted, m.ValidationMetric)
	}
	return m, nil
}

func (r *registry) WriteMetadata(ctx context.Context, m *domain.RegistryMetadata) error {
	if !m.Valid() {
		return fmt.Errorf("write metadata: refusing invalid metadata %+v", m)
	}
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := r.writeAtomic(r.metadataFile, data); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (r *registry) SaveArtifact(ctx context.Context, model *regression.Model) (string, error) {
	data, err := model.Marshal()
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}

	name := fmt.Sprintf("diamond_%s_%s%s",
		r.now().UTC().Format(time.DateOnly),
		strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
		artifactExt,
	)
	if err := r.writeAtomic(name, data); err != nil {
		return "", fmt.Errorf("save artifact: %w", err)
	}
	return name, nil
}

func (r *registry) LoadArtifact(ctx context.Context, name string) (*regression.Model, error) {
	clean := path.Clean(filepath.ToSlash(name))
	if name == "" || path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return nil, fmt.Errorf("%w: artifact path %q escapes the registry", domain.ErrRegistryCorrupted, name)
	}

	data, err := afero.ReadFile(r.fs, filepath.Join(r.dir, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("%w: read artifact %s: %v", domain.ErrRegistryCorrupted, name, err)
	}

	model, err := regression.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: artifact %s: %v", domain.ErrRegistryCorrupted, name, err)
	}
	if err := model.CheckSchema(features.SchemaVersion, features.Columns()); err != nil {
		return nil, fmt.Errorf("%w: artifact %s: %v", domain.ErrRegistryCorrupted, name, err)
	}
	return model, nil
}

// writeAtomic writes data to a temp file next to the target, syncs it and
// renames it over the target.
func (r *registry) writeAtomic(name string, data []byte) (err error) {
	if err := r.fs.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}

	tmp, err := afero.TempFile(r.fs, r.dir, "."+name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = r.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = r.fs.Rename(tmpName, filepath.Join(r.dir, name)); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
