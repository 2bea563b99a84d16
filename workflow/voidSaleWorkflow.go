package workflow

import (
	"context"
	"sort"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	"github.com/sirupsen/logrus"
)

// VoidSale reverses a recorded sale: every allocation is restored to its lot,
// the touched shipments are re-settled from the remaining allocation records,
// and the sale with its lines is deleted. Runs in one transaction, so a
// failure part-way leaves the sale fully intact.
func VoidSale(ctx context.Context, logger *logrus.Logger, saleId int) error {
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	committed := false
	var lockedKeys []string
	defer func() {
		if !committed {
			for _, key := range lockedKeys {
				ReleaseAllocationLock(tx, key)
			}
			tx.Rollback()
		}
	}()

	sale, err := models.GetSaleForUpdate(tx, saleId)
	if err != nil {
		config.LogError(logger, "voidSaleWorkflow.go", "VoidSale", "GetSaleForUpdate", saleId, err)
		return err
	}

	// Serialize against concurrent allocation on the same product identities.
	// Products resolve on the transaction so the whole void reads one snapshot.
	keySet := make(map[string]bool)
	for _, item := range sale.Items {
		var product models.Product
		if err := tx.First(&product, item.ProductId).Error; err != nil {
			config.LogError(logger, "voidSaleWorkflow.go", "VoidSale", "FetchProduct", item.ProductId, err)
			return err
		}
		keySet[utils.ProductIdentityKey(product.Brand, product.Name, product.Size)] = true
	}
	keys := make([]string, 0, len(keySet))
	for key := range keySet {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := AcquireAllocationLock(tx, key); err != nil {
			config.LogError(logger, "voidSaleWorkflow.go", "VoidSale", "AcquireAllocationLock", key, err)
			return err
		}
		lockedKeys = append(lockedKeys, key)
	}

	touchedShipments := make(map[int]bool)
	for _, item := range sale.Items {
		var allocations []models.SaleItemAllocation
		if err := tx.Where("sale_item_id = ?", item.ID).Order("id").Find(&allocations).Error; err != nil {
			config.LogError(logger, "voidSaleWorkflow.go", "VoidSale", "LoadAllocations", item.ID, err)
			return err
		}
		for _, allocation := range allocations {
			var lot models.ShipmentItem
			if err := tx.Select("shipment_id").First(&lot, allocation.ShipmentItemId).Error; err != nil {
				return err
			}
			touchedShipments[lot.ShipmentId] = true
			if err := RestoreAllocation(tx, allocation.ID); err != nil {
				config.LogError(logger, "voidSaleWorkflow.go", "VoidSale", "RestoreAllocation", allocation.ID, err)
				return err
			}
		}
	}

	if err := tx.Where("sale_id = ?", saleId).Delete(&models.SaleItem{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&models.Sale{}, saleId).Error; err != nil {
		return err
	}

	// Re-settle from what is left; the recompute path is exact by definition.
	shipmentIds := make([]int, 0, len(touchedShipments))
	for id := range touchedShipments {
		shipmentIds = append(shipmentIds, id)
	}
	sort.Ints(shipmentIds)
	for _, shipmentId := range shipmentIds {
		if _, err := RecomputeShipmentAggregates(tx, logger, shipmentId); err != nil {
			return err
		}
	}

	for _, key := range lockedKeys {
		ReleaseAllocationLock(tx, key)
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "voidSaleWorkflow.go", "VoidSale", "Commit", saleId, err)
		return err
	}
	committed = true
	return nil
}
