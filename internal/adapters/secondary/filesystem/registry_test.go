package filesystem

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diamond-price-service/internal/config"
	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/features"
	"diamond-price-service/internal/core/regression"
)

func newTestRegistry(fs afero.Fs) *registry {
	r := NewRegistry(fs, &config.RegistryConfig{Dir: "model_registry"}).(*registry)
	r.now = func() time.Time { return time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC) }
	return r
}

func testModel() *regression.Model {
	coef := make([]float64, features.Width)
	coef[0] = 100
	coef[1] = 4000
	return &regression.Model{
		Kind:          regression.Kind,
		SchemaVersion: features.SchemaVersion,
		Columns:       features.Columns(),
		Coefficients:  coef,
		RidgeLambda:   0.001,
		TrainedRows:   10,
		TrainedAt:     time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
}

func TestReadMetadata_Missing(t *testing.T) {
	r := newTestRegistry(afero.NewMemMapFs())

	_, err := r.ReadMetadata(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveModel)
}

func TestReadMetadata_Corrupted(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", `{"active_model_path": `},
		{"missing path", `{"validation_metric": 150}`},
		{"empty path", `{"active_model_path": "", "validation_metric": 150}`},
		{"missing metric", `{"active_model_path": "diamond.model"}`},
		{"metric wrong type", `{"active_model_path": "diamond.model", "validation_metric": "150"}`},
		{"negative metric", `{"active_model_path": "diamond.model", "validation_metric": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "model_registry/modelsettings.json", []byte(tt.content), 0o644))
			r := newTestRegistry(fs)

			_, err := r.ReadMetadata(context.Background())
			assert.ErrorIs(t, err, domain.ErrRegistryCorrupted)
		})
	}
}

func TestWriteMetadata_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := newTestRegistry(fs)

	in := &domain.RegistryMetadata{
		ActiveModelPath:  "diamond_2026-10-17_abcdef12.model",
		ValidationMetric: 150,
		ModelName:        regression.Kind,
		ModelParams:      map[string]float64{"ridge_lambda": 0.001},
		PromotedAt:       time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.WriteMetadata(context.Background(), in))

	out, err := r.ReadMetadata(context.Background())
	require.NoError(t, err)
	assert.Equal(t, in.ActiveModelPath, out.ActiveModelPath)
	assert.Equal(t, in.ValidationMetric, out.ValidationMetric)
	assert.Equal(t, in.ModelParams, out.ModelParams)
	assert.True(t, in.PromotedAt.Equal(out.PromotedAt))

	entries, err := afero.ReadDir(fs, "model_registry")
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "modelsettings.json", entries[0].Name())
}

func TestWriteMetadata_RejectsInvalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := newTestRegistry(fs)

	err := r.WriteMetadata(context.Background(), &domain.RegistryMetadata{ValidationMetric: 1})
	assert.Error(t, err)

	exists, _ := afero.Exists(fs, "model_registry/modelsettings.json")
	assert.False(t, exists)
}

func TestSaveAndLoadArtifact(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := newTestRegistry(fs)
	ctx := context.Background()

	first, err := r.SaveArtifact(ctx, testModel())
	require.NoError(t, err)
	second, err := r.SaveArtifact(ctx, testModel())
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^diamond_2026-10-17_[0-9a-f]{8}\.model$`, first)

	loaded, err := r.LoadArtifact(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, testModel().Coefficients, loaded.Coefficients)
}

func TestLoadArtifact_Corrupted(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := newTestRegistry(fs)
	ctx := context.Background()

	_, err := r.LoadArtifact(ctx, "missing.model")
	assert.ErrorIs(t, err, domain.ErrRegistryCorrupted)

	require.NoError(t, afero.WriteFile(fs, "model_registry/garbage.model", []byte("pickle"), 0o644))
	_, err = r.LoadArtifact(ctx, "garbage.model")
	assert.ErrorIs(t, err, domain.ErrRegistryCorrupted)

	stale := testModel()
	stale.SchemaVersion = features.SchemaVersion + 1
	data, err := stale.Marshal()
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, "model_registry/stale.model", data, 0o644))
	_, err = r.LoadArtifact(ctx, "stale.model")
	assert.ErrorIs(t, err, domain.ErrRegistryCorrupted)

	_, err = r.LoadArtifact(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrRegistryCorrupted)
}

func TestRegistry_OnDisk(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(afero.NewOsFs(), &config.RegistryConfig{Dir: dir})
	ctx := context.Background()

	name, err := r.SaveArtifact(ctx, testModel())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, name))

	require.NoError(t, r.WriteMetadata(ctx, &domain.RegistryMetadata{ActiveModelPath: name, ValidationMetric: 200}))
	require.NoError(t, r.WriteMetadata(ctx, &domain.RegistryMetadata{ActiveModelPath: name, ValidationMetric: 150}))

	m, err := r.ReadMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 150.0, m.ValidationMetric)
}

func TestReadMetadata_NeverSeesPartialWrite(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(afero.NewOsFs(), &config.RegistryConfig{Dir: dir})
	ctx := context.Background()
	require.NoError(t, r.WriteMetadata(ctx, &domain.RegistryMetadata{ActiveModelPath: "a.model", ValidationMetric: 1}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = r.WriteMetadata(ctx, &domain.RegistryMetadata{ActiveModelPath: "a.model", ValidationMetric: float64(i)})
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		_, err := r.ReadMetadata(ctx)
		require.NoError(t, err)
	}
}

func TestWatcher_NotifiesOnMetadataPublish(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.RegistryConfig{Dir: dir}
	r := NewRegistry(afero.NewOsFs(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- NewWatcher(afero.NewOsFs(), cfg).Watch(ctx, func() { calls.Add(1) })
	}()

	assert.Eventually(t, func() bool {
		_ = r.WriteMetadata(ctx, &domain.RegistryMetadata{ActiveModelPath: "a.model", ValidationMetric: 1})
		return calls.Load() > 0
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	assert.NoError(t, <-errCh)
}

func TestWatcher_CreatesRegistryDir(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := &config.RegistryConfig{Dir: "/does/not/exist"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// fsnotify cannot see the in-memory dir, but the dir is made through fs.
	_ = NewWatcher(fs, cfg).Watch(ctx, func() {})
	exists, err := afero.DirExists(fs, "/does/not/exist")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCoalesce_CollapsesBurstIntoOneExtraCall(t *testing.T) {
	started := make(chan struct{}, 10)
	gate := make(chan struct{})
	var calls atomic.Int32

	notify, stop := coalesce(context.Background(), func() {
		calls.Add(1)
		started <- struct{}{}
		<-gate
	})
	defer stop()

	notify()
	<-started

	for i := 0; i < 5; i++ {
		notify()
	}
	close(gate)

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return calls.Load() > 2 }, 100*time.Millisecond, 10*time.Millisecond)
}
