package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Shipment is an inbound batch of stock. TotalCost is fixed at creation;
// TotalRevenue and NetProfit are derived and mutated only by settlement.
type Shipment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	Status          ShipmentStatus  `gorm:"type:enum('preparing','shipped','delivered','settled');not null;default:'preparing'" json:"status"`
	Currency        Currency        `gorm:"type:enum('USD','DOP');not null;default:'USD'" json:"currency"`
	ShippingCost    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"shipping_cost"`
	AdditionalCosts decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"additional_costs"`
	TotalCost       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_cost"`
	TotalRevenue    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_revenue"`
	NetProfit       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"net_profit"`
	ArrivedAt       *time.Time      `json:"arrived_at"`
	Items           []*ShipmentItem `json:"items"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// ShipmentItem is one lot: a quantity of one product received in one shipment,
// carrying its own unit cost. Qty and UnitCost are immutable after creation;
// RemainingInventory is decremented only by allocation or explicit adjustment.
// Invariant: 0 <= RemainingInventory <= Qty.
type ShipmentItem struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	ShipmentId         int             `gorm:"index;not null" json:"shipment_id"`
	ProductId          int             `gorm:"index;not null" json:"product_id"`
	Qty                decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitCost           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	RemainingInventory decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"remaining_inventory"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewShipmentItem struct {
	ProductId int             `json:"product_id" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitCost  decimal.Decimal `json:"unit_cost" binding:"required"`
}

type NewShipment struct {
	Status          ShipmentStatus     `json:"status"`
	ShippingCost    decimal.Decimal    `json:"shipping_cost"`
	AdditionalCosts decimal.Decimal    `json:"additional_costs"`
	ArrivedAt       *time.Time         `json:"arrived_at"`
	Items           []*NewShipmentItem `json:"items" binding:"required"`
}

func (input *NewShipment) validate(ctx context.Context) error {
	if len(input.Items) == 0 {
		return errors.New("shipment requires at least one item")
	}
	if input.Status != "" && !input.Status.Valid() {
		return ErrInvalidEnum
	}
	if input.ShippingCost.IsNegative() || input.AdditionalCosts.IsNegative() {
		return errors.New("shipment costs cannot be negative")
	}
	db := config.GetDB()
	for _, item := range input.Items {
		if item.Qty.IsZero() || item.Qty.IsNegative() {
			return errors.New("item qty must be positive")
		}
		if item.UnitCost.IsNegative() {
			return errors.New("item unit cost cannot be negative")
		}
		var count int64
		if err := db.WithContext(ctx).Model(&Product{}).Where("id = ?", item.ProductId).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrProductNotFound
		}
	}
	return nil
}

// CreateShipment persists the shipment and its lots. TotalCost is computed here
// once (sum of lot unit_cost x qty plus shipping and additional costs) and is
// never recomputed afterwards.
func CreateShipment(ctx context.Context, input *NewShipment) (*Shipment, error) {
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	status := input.Status
	if status == "" {
		status = ShipmentStatusPreparing
	}

	totalCost := input.ShippingCost.Add(input.AdditionalCosts)
	items := make([]*ShipmentItem, 0, len(input.Items))
	for _, item := range input.Items {
		totalCost = totalCost.Add(item.UnitCost.Mul(item.Qty))
		items = append(items, &ShipmentItem{
			ProductId:          item.ProductId,
			Qty:                item.Qty,
			UnitCost:           item.UnitCost,
			RemainingInventory: item.Qty,
		})
	}

	shipment := Shipment{
		Status:          status,
		Currency:        CurrencyUSD,
		ShippingCost:    input.ShippingCost,
		AdditionalCosts: input.AdditionalCosts,
		TotalCost:       totalCost,
		ArrivedAt:       input.ArrivedAt,
		Items:           items,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&shipment).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

func GetShipment(ctx context.Context, id int) (*Shipment, error) {
	db := config.GetDB()
	var shipment Shipment
	if err := db.WithContext(ctx).Preload("Items").First(&shipment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &shipment, nil
}

func ListShipments(ctx context.Context) ([]*Shipment, error) {
	db := config.GetDB()
	var shipments []*Shipment
	if err := db.WithContext(ctx).Preload("Items").Order("created_at").Find(&shipments).Error; err != nil {
		return nil, err
	}
	return shipments, nil
}

func UpdateShipmentStatus(ctx context.Context, id int, status ShipmentStatus) (*Shipment, error) {
	if !status.Valid() {
		return nil, ErrInvalidEnum
	}
	db := config.GetDB()
	var shipment Shipment
	if err := db.WithContext(ctx).First(&shipment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&shipment).UpdateColumn("status", status).Error; err != nil {
		return nil, err
	}
	shipment.Status = status
	return &shipment, nil
}
