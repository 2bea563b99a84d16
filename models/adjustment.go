package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryAdjustment is the audit row for an explicit manual change to a
// lot's remaining inventory, outside the allocation path.
type InventoryAdjustment struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ShipmentItemId int             `gorm:"index;not null" json:"shipment_item_id"`
	QtyDelta       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty_delta"`
	Reason         string          `gorm:"size:255;not null" json:"reason"`
	Confirmed      bool            `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
