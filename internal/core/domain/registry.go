package domain

import (
	"math"
	"time"
)

// RegistryMetadata points at the active model artifact.
// ValidationMetric is the MAE the artifact scored when it was promoted.
type RegistryMetadata struct {
	ActiveModelPath  string             `json:"active_model_path"`
	ValidationMetric float64            `json:"validation_metric"`
	ModelName        string             `json:"model_name,omitempty"`
	ModelParams      map[string]float64 `json:"model_params,omitempty"`
	PromotedAt       time.Time          `json:"promoted_at"`
}

func (m *RegistryMetadata) Valid() bool {
	if m == nil || m.ActiveModelPath == "" {
		return false
	}
	return !math.IsNaN(m.ValidationMetric) && !math.IsInf(m.ValidationMetric, 0) && m.ValidationMetric >= 0
}

// Outperformed reports whether a candidate with the given MAE should replace
// the model described by m. A nil m means nothing is deployed yet.
func (m *RegistryMetadata) Outperformed(candidateMetric float64) bool {
	if m == nil {
		return true
	}
	return candidateMetric < m.ValidationMetric
}
