package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"diamond-price-service/internal/adapters/primary/http/dto"
	"diamond-price-service/internal/core/domain"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.MessageResponse{Message: "diamond price service is running"})
}

func (h *Handler) PredictPrice(c *gin.Context) {
	var req dto.DiamondPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	price, err := h.predictorSvc.Predict(c.Request.Context(), req.ToDomain())
	if err != nil {
		if !errors.Is(err, domain.ErrValidation) {
			log.WithError(err).Error("predict diamond price failed")
		}
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.DiamondPriceResponse{Prediction: price})
}

func (h *Handler) UpdateModel(c *gin.Context) {
	lm, err := h.predictorSvc.Refresh(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("update model failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToUpdateModelResponse(lm.Metadata))
}

func (h *Handler) GetActiveModel(c *gin.Context) {
	lm := h.predictorSvc.Active()
	if lm == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": domain.ErrNoActiveModel.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.ToActiveModelResponse(lm.Metadata, string(h.predictorSvc.State()), lm.LoadedAt))
}

// bindError separates bodies that are not JSON at all (400) from JSON whose
// field types are wrong (422).
func bindError(c *gin.Context, err error) {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		mapDomainError(c, &domain.ValidationError{
			Fields: map[string]string{field: "must be of type " + typeErr.Type.String()},
		})
		return
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON body"})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
