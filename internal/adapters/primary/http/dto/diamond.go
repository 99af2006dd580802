package dto

import (
	"time"

	"diamond-price-service/internal/core/domain"
)

// ============================================================================
// Prediction DTOs
// ============================================================================

type DiamondPriceRequest struct {
	Carat   *float64 `json:"carat"`
	Cut     string   `json:"cut"`
	Color   string   `json:"color"`
	Clarity string   `json:"clarity"`
}

func (r *DiamondPriceRequest) ToDomain() domain.Diamond {
	return domain.Diamond{
		Carat:   r.Carat,
		Cut:     r.Cut,
		Color:   r.Color,
		Clarity: r.Clarity,
	}
}

type DiamondPriceResponse struct {
	Prediction float64 `json:"prediction"`
}

// ============================================================================
// Model DTOs
// ============================================================================

type MessageResponse struct {
	Message string `json:"message"`
}

type UpdateModelResponse struct {
	Message          string  `json:"message"`
	ActiveModelPath  string  `json:"active_model_path"`
	ValidationMetric float64 `json:"validation_metric"`
}

type ActiveModelResponse struct {
	State            string             `json:"state"`
	ActiveModelPath  string             `json:"active_model_path"`
	ValidationMetric float64            `json:"validation_metric"`
	ModelName        string             `json:"model_name,omitempty"`
	ModelParams      map[string]float64 `json:"model_params,omitempty"`
	PromotedAt       *time.Time         `json:"promoted_at,omitempty"`
	LoadedAt         time.Time          `json:"loaded_at"`
}

func ToUpdateModelResponse(meta domain.RegistryMetadata) UpdateModelResponse {
	return UpdateModelResponse{
		Message:          "model reloaded",
		ActiveModelPath:  meta.ActiveModelPath,
		ValidationMetric: meta.ValidationMetric,
	}
}

func ToActiveModelResponse(meta domain.RegistryMetadata, state string, loadedAt time.Time) ActiveModelResponse {
	resp := ActiveModelResponse{
		State:            state,
		ActiveModelPath:  meta.ActiveModelPath,
		ValidationMetric: meta.ValidationMetric,
		ModelName:        meta.ModelName,
		ModelParams:      meta.ModelParams,
		LoadedAt:         loadedAt,
	}
	if !meta.PromotedAt.IsZero() {
		promotedAt := meta.PromotedAt
		resp.PromotedAt = &promotedAt
	}
	return resp
}
