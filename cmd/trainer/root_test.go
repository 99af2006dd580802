package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diamond-price-service/internal/adapters/secondary/filesystem"
	"diamond-price-service/internal/config"
	"diamond-price-service/internal/core/domain"
	"diamond-price-service/internal/core/services"
)

func TestShowMetadata(t *testing.T) {
	registry := filesystem.NewRegistry(afero.NewMemMapFs(), &config.RegistryConfig{
		Dir:          "model_registry",
		MetadataFile: "modelsettings.json",
	})
	ctx := context.Background()

	require.NoError(t, registry.WriteMetadata(ctx, &domain.RegistryMetadata{
		ActiveModelPath:  "diamond_20261017_0a1b2c3d.model",
		ValidationMetric: 512.5,
		ModelName:        "LinearRegression",
	}))

	var out bytes.Buffer
	require.NoError(t, showMetadata(ctx, registry, &out))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "diamond_20261017_0a1b2c3d.model", got["active_model_path"])
	assert.Equal(t, 512.5, got["validation_metric"])
}

func TestShowMetadata_EmptyRegistry(t *testing.T) {
	registry := filesystem.NewRegistry(afero.NewMemMapFs(), &config.RegistryConfig{
		Dir:          "model_registry",
		MetadataFile: "modelsettings.json",
	})

	err := showMetadata(context.Background(), registry, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrNoActiveModel)
}

func TestPrintReport(t *testing.T) {
	prev := 200.0
	tests := []struct {
		name   string
		report services.TrainingReport
		dryRun bool
		want   []string
	}{
		{
			name:   "first promotion",
			report: services.TrainingReport{Rows: 10, Dropped: 2, CandidateMetric: 150, Promoted: true, ArtifactPath: "a.model"},
			want:   []string{"rows: 10 (dropped 2)", "candidate mae: 150.000", "active mae: none", "promoted: a.model"},
		},
		{
			name:   "worse candidate",
			report: services.TrainingReport{Rows: 10, CandidateMetric: 250, PreviousMetric: &prev},
			want:   []string{"active mae: 200.000", "not promoted"},
		},
		{
			name:   "dry run",
			report: services.TrainingReport{Rows: 10, CandidateMetric: 150, PreviousMetric: &prev},
			dryRun: true,
			want:   []string{"dry run: registry unchanged"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			printReport(&out, &tt.report, tt.dryRun)
			for _, line := range tt.want {
				assert.Contains(t, out.String(), line)
			}
		})
	}
}

func TestLoadConfig_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("TRAINING_FOLDS", "5")
	t.Setenv("REGISTRY_DIR", "/from/env")

	cmd := runCmd
	require.NoError(t, rootCmd.PersistentFlags().Parse([]string{"--folds", "3", "--seed", "7"}))
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	t.Cleanup(func() {
		rootCmd.PersistentFlags().Lookup("folds").Changed = false
		rootCmd.PersistentFlags().Lookup("seed").Changed = false
	})

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Training.Folds)
	assert.Equal(t, int64(7), cfg.Training.Seed)
	assert.Equal(t, "/from/env", cfg.Registry.Dir)
}
