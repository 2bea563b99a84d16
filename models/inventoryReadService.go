package models

import (
	"context"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AvailableLot is one FIFO layer: an open shipment lot for a product identity.
type AvailableLot struct {
	ShipmentItemId     int             `json:"shipment_item_id"`
	ShipmentId         int             `json:"shipment_id"`
	ProductId          int             `json:"product_id"`
	ArrivalOrderKey    int64           `json:"arrival_order_key"`
	RemainingInventory decimal.Decimal `json:"remaining_inventory"`
	UnitCost           decimal.Decimal `json:"unit_cost"`
}

// GetAvailableLots returns the open lots for a product identity ordered
// oldest-first: by owning shipment creation time, then shipment id, then lot id.
// The secondary keys keep allocation deterministic when creation times collide.
// Must be called on the transaction that will apply the allocation so the read
// reflects current ledger state.
func GetAvailableLots(tx *gorm.DB, brand, name, size string) ([]AvailableLot, error) {
	var lots []AvailableLot
	err := tx.Raw(`
		SELECT
			si.id                 AS shipment_item_id,
			si.shipment_id        AS shipment_id,
			si.product_id         AS product_id,
			UNIX_TIMESTAMP(s.created_at) AS arrival_order_key,
			si.remaining_inventory,
			si.unit_cost
		FROM shipment_items si
		JOIN shipments s ON s.id = si.shipment_id
		JOIN products p  ON p.id = si.product_id
		WHERE p.brand = ? AND p.name = ? AND p.size = ?
		  AND si.remaining_inventory > 0
		ORDER BY s.created_at, s.id, si.id
	`, brand, name, size).Scan(&lots).Error
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// GetAvailableQuantity sums remaining inventory across all lots for an identity.
func GetAvailableQuantity(ctx context.Context, brand, name, size string) (decimal.Decimal, error) {
	db := config.GetDB()
	type row struct{ Total decimal.Decimal }
	var r row
	err := db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(si.remaining_inventory), 0) AS total
		FROM shipment_items si
		JOIN products p ON p.id = si.product_id
		WHERE p.brand = ? AND p.name = ? AND p.size = ?
	`, brand, name, size).Scan(&r).Error
	if err != nil {
		return decimal.Zero, err
	}
	return r.Total, nil
}
