package handlers

import (
	"net/http"
	"strconv"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/workflow"
	"github.com/gin-gonic/gin"
)

func CreateSale(c *gin.Context) {
	var input workflow.NewSale
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	sale, err := workflow.CreateSale(c.Request.Context(), config.GetLogger(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

func GetSale(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return
	}
	sale, err := models.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func ListSales(c *gin.Context) {
	sales, err := models.ListSales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sales)
}

func UpdateSalePayment(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return
	}
	var input workflow.PaymentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	sale, err := workflow.UpdateSalePayment(c.Request.Context(), config.GetLogger(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

// VoidSale reverses a sale: restores every lot it drew from, re-settles the
// touched shipments, and deletes the sale.
func VoidSale(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return
	}
	if err := workflow.VoidSale(c.Request.Context(), config.GetLogger(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voided": id})
}

func PaySaleInFull(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sale id"})
		return
	}
	sale, err := workflow.UpdateSalePayment(c.Request.Context(), config.GetLogger(), id, &workflow.PaymentInput{PayAll: true})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}
