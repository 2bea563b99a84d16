package workflow

import (
	"errors"

	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"gorm.io/gorm"
)

// ErrAllocationConflict signals that a lot's remaining inventory changed
// between planning and applying. The caller re-plans against a fresh read;
// it must never be retried blindly with the stale plan.
var ErrAllocationConflict = errors.New("lot inventory changed between planning and applying")

// ApplyAllocationPlan persists the allocation records for one sale line and
// decrements each touched lot. The decrement is a conditional update guarded
// by remaining_inventory >= taken, so a stale plan fails instead of driving a
// lot negative. Runs inside the caller's transaction; the caller owns
// rollback/retry.
func ApplyAllocationPlan(tx *gorm.DB, saleItemId int, correlationId string, plan *AllocationPlan) error {
	if plan == nil || len(plan.Entries) == 0 {
		return errors.New("allocation plan is empty")
	}
	for _, entry := range plan.Entries {
		record := models.SaleItemAllocation{
			SaleItemId:     saleItemId,
			ShipmentItemId: entry.ShipmentItemId,
			Qty:            entry.Qty,
			UnitCost:       entry.UnitCost,
			CorrelationId:  correlationId,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}

		res := tx.Exec(`
			UPDATE shipment_items
			SET remaining_inventory = remaining_inventory - ?
			WHERE id = ? AND remaining_inventory >= ?
		`, entry.Qty, entry.ShipmentItemId, entry.Qty)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAllocationConflict
		}
	}
	return nil
}

// RestoreAllocation reverses one persisted allocation: refills the lot and
// deletes the provenance row. Used by the explicit adjustment/correction
// path only; normal sale failures roll the whole transaction back instead.
func RestoreAllocation(tx *gorm.DB, allocationId int) error {
	var record models.SaleItemAllocation
	if err := tx.First(&record, allocationId).Error; err != nil {
		return err
	}
	res := tx.Exec(`
		UPDATE shipment_items
		SET remaining_inventory = remaining_inventory + ?
		WHERE id = ? AND remaining_inventory + ? <= qty
	`, record.Qty, record.ShipmentItemId, record.Qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errors.New("restore would exceed lot original quantity")
	}
	return tx.Delete(&models.SaleItemAllocation{}, record.ID).Error
}
