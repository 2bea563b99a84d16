package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/workflow"
	"github.com/gin-gonic/gin"
)

func CreateShipment(c *gin.Context) {
	var input models.NewShipment
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	shipment, err := models.CreateShipment(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shipment)
}

func GetShipment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment id"})
		return
	}
	shipment, err := models.GetShipment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

func ListShipments(c *gin.Context) {
	shipments, err := models.ListShipments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipments)
}

func UpdateShipmentStatus(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment id"})
		return
	}
	var input struct {
		Status models.ShipmentStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	shipment, err := models.UpdateShipmentStatus(c.Request.Context(), id, input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shipment)
}

// ReconcileShipment compares stored aggregates with the full recompute from
// allocation records and repairs drift when ?fix=true.
func ReconcileShipment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid shipment id"})
		return
	}
	fix := c.Query("fix") == "true"
	logger := config.GetLogger()

	db := config.GetDB()
	tx := db.WithContext(c.Request.Context()).Begin()
	if tx.Error != nil {
		respondError(c, tx.Error)
		return
	}

	var check *workflow.ShipmentAggregateCheck
	if fix {
		check, err = workflow.RecomputeShipmentAggregates(tx, logger, id)
	} else {
		check, err = workflow.CheckShipmentAggregates(tx, id)
	}
	if err != nil {
		tx.Rollback()
		respondError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, check)
}
