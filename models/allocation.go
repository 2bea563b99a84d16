package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleItemAllocation is an immutable provenance fact: "sale line X took Qty
// units from lot Y at UnitCost C". UnitCost is copied from the lot at planning
// time and never re-read (do not recompute from the lot's current cost).
type SaleItemAllocation struct {
	ID             int             `gorm:"primary_key" json:"id"`
	SaleItemId     int             `gorm:"index;not null" json:"sale_item_id"`
	ShipmentItemId int             `gorm:"index;not null" json:"shipment_item_id"`
	Qty            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitCost       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	CorrelationId  string          `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
