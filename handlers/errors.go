package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	"bitbucket.org/essenzadr/perfumeria_backend/workflow"
	"github.com/gin-gonic/gin"
)

// respondError translates domain errors into HTTP statuses. Planning-phase
// failures are client-visible conflicts; unexpected errors stay opaque.
func respondError(c *gin.Context, err error) {
	var insufficient *workflow.InsufficientInventoryError
	var exceeds *workflow.PaymentExceedsTotalError
	var exceedsSale *workflow.PaymentExceedsSaleTotalError

	switch {
	case errors.As(err, &insufficient):
		c.JSON(http.StatusConflict, gin.H{"error": insufficient.Error()})
	case errors.As(err, &exceeds):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": exceeds.Error()})
	case errors.As(err, &exceedsSale):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": exceedsSale.Error()})
	case errors.Is(err, models.ErrProductNotFound),
		errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrProductExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrNegativeAdjustment):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrAdjustmentNeedsConfirm):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrInvalidEnum):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// respondBindError reports malformed or incomplete request bodies, with
// per-field detail when the failure came from binding validation.
func respondBindError(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
