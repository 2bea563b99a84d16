package handlers

import (
	"net/http"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/workflow"
	"github.com/gin-gonic/gin"
)

// GetAvailableInventory returns the open FIFO lots for a product identity.
func GetAvailableInventory(c *gin.Context) {
	brand := c.Query("brand")
	name := c.Query("name")
	size := c.Query("size")
	if brand == "" || name == "" || size == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "brand, name and size are required"})
		return
	}

	db := config.GetDB()
	lots, err := models.GetAvailableLots(db.WithContext(c.Request.Context()), brand, name, size)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := models.GetAvailableQuantity(c.Request.Context(), brand, name, size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots, "total_available": total})
}

func AdjustInventory(c *gin.Context) {
	var input workflow.NewAdjustment
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	lot, err := workflow.AdjustLotInventory(c.Request.Context(), config.GetLogger(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}
