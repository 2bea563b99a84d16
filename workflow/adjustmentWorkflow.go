package workflow

import (
	"context"
	"errors"
	"strings"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrNegativeAdjustment hard-rejects an adjustment that would drive a lot's
	// remaining inventory below zero.
	ErrNegativeAdjustment = errors.New("adjustment would drive remaining inventory negative")
	// ErrAdjustmentNeedsConfirm gates an adjustment that would push remaining
	// inventory above the lot's original quantity behind explicit confirmation.
	ErrAdjustmentNeedsConfirm = errors.New("adjustment exceeds lot original quantity; confirmation required")
)

type NewAdjustment struct {
	ShipmentItemId int             `json:"shipment_item_id" binding:"required"`
	QtyDelta       decimal.Decimal `json:"qty_delta" binding:"required"`
	Reason         string          `json:"reason" binding:"required"`
	Confirm        bool            `json:"confirm"`
}

// ValidateAdjustment applies the adjustment gates to a lot's current state.
func ValidateAdjustment(remaining, originalQty, delta decimal.Decimal, confirm bool) error {
	if delta.IsZero() {
		return errors.New("adjustment delta cannot be zero")
	}
	newRemaining := remaining.Add(delta)
	if newRemaining.IsNegative() {
		return ErrNegativeAdjustment
	}
	if newRemaining.GreaterThan(originalQty) && !confirm {
		return ErrAdjustmentNeedsConfirm
	}
	return nil
}

// AdjustLotInventory is the only write path for remaining_inventory outside
// the allocation applier. It locks the lot row, validates the gates, writes
// the audit record, and applies the delta.
func AdjustLotInventory(ctx context.Context, logger *logrus.Logger, input *NewAdjustment) (*models.ShipmentItem, error) {
	if strings.TrimSpace(input.Reason) == "" {
		return nil, errors.New("adjustment reason is required")
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	committed := false
	defer func() {
		if !committed {
			tx.Rollback()
		}
	}()

	var lot models.ShipmentItem
	if err := tx.Clauses(forUpdate()).First(&lot, input.ShipmentItemId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		config.LogError(logger, "adjustmentWorkflow.go", "AdjustLotInventory", "FetchLot", input.ShipmentItemId, err)
		return nil, err
	}

	if err := ValidateAdjustment(lot.RemainingInventory, lot.Qty, input.QtyDelta, input.Confirm); err != nil {
		return nil, err
	}

	audit := models.InventoryAdjustment{
		ShipmentItemId: lot.ID,
		QtyDelta:       input.QtyDelta,
		Reason:         strings.TrimSpace(input.Reason),
		Confirmed:      input.Confirm,
	}
	if err := tx.Create(&audit).Error; err != nil {
		config.LogError(logger, "adjustmentWorkflow.go", "AdjustLotInventory", "CreateAudit", audit, err)
		return nil, err
	}

	lot.RemainingInventory = lot.RemainingInventory.Add(input.QtyDelta)
	err := tx.Model(&models.ShipmentItem{}).Where("id = ?", lot.ID).
		UpdateColumn("remaining_inventory", lot.RemainingInventory).Error
	if err != nil {
		config.LogError(logger, "adjustmentWorkflow.go", "AdjustLotInventory", "UpdateLot", lot.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	committed = true
	return &lot, nil
}
