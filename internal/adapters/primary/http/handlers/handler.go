package handlers

import (
	"diamond-price-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	predictorSvc *services.PredictorService
}

func New(predictorSvc *services.PredictorService) *Handler {
	return &Handler{
		predictorSvc: predictorSvc,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	// Liveness
	r.GET("/", h.Root)

	// Predictions
	r.POST("/diamond_price", h.PredictPrice)

	// Active model
	r.POST("/update_model", h.UpdateModel)
	r.GET("/model", h.GetActiveModel)
}
