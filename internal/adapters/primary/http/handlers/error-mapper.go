package handlers

import (
	"errors"
	"net/http"

	"diamond-price-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	var verr *domain.ValidationError

	switch {
	// Validation errors
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": domain.ErrValidation.Error(), "fields": verr.Fields})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})

	// Service unavailable errors
	case errors.Is(err, domain.ErrNoActiveModel):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

	// Registry errors
	case errors.Is(err, domain.ErrRegistryCorrupted):
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
