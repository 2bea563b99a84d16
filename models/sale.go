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

// Sale is one transaction with a customer. ExchangeRateUsed is frozen at
// creation; historical recomputes must never re-fetch a live rate.
// Invariant: OutstandingBalance = TotalAmount - AmountPaid.
type Sale struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	CustomerId         int             `gorm:"index;not null" json:"customer_id"`
	SaleDate           time.Time       `gorm:"not null;index" json:"sale_date"`
	Currency           Currency        `gorm:"type:enum('USD','DOP');not null;default:'USD'" json:"currency"`
	ExchangeRateUsed   decimal.Decimal `gorm:"type:decimal(20,4);default:1" json:"exchange_rate_used"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	AmountPaid         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"outstanding_balance"`
	PaymentStatus      PaymentStatus   `gorm:"type:enum('paid','partial','layaway');not null;default:'layaway'" json:"payment_status"`
	Notes              string          `gorm:"type:text" json:"notes"`
	Items              []*SaleItem     `json:"items"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// SaleItem is one product line within a sale. AmountPaid tracks per-line
// payments independently of the sale header; in steady state the line amounts
// sum to the header's AmountPaid.
type SaleItem struct {
	ID         int             `gorm:"primary_key" json:"id"`
	SaleId     int             `gorm:"index;not null" json:"sale_id"`
	ProductId  int             `gorm:"index;not null" json:"product_id"`
	Qty        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"qty"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	LineTotal  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"line_total"`
	AmountPaid decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_paid"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// DerivePaymentStatus derives the status from paid vs total:
// paid when the balance is zero, layaway when nothing is paid, partial otherwise.
func DerivePaymentStatus(totalAmount, amountPaid decimal.Decimal) PaymentStatus {
	if amountPaid.GreaterThanOrEqual(totalAmount) && !totalAmount.IsZero() {
		return PaymentStatusPaid
	}
	if amountPaid.IsZero() {
		return PaymentStatusLayaway
	}
	return PaymentStatusPartial
}

func GetSale(ctx context.Context, id int) (*Sale, error) {
	db := config.GetDB()
	var sale Sale
	if err := db.WithContext(ctx).Preload("Items").First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &sale, nil
}

// GetSaleForUpdate loads the sale and its lines inside the supplied transaction
// with a row lock on the header.
func GetSaleForUpdate(tx *gorm.DB, id int) (*Sale, error) {
	var sale Sale
	if err := tx.Clauses(lockingClause()).First(&sale, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if err := tx.Where("sale_id = ?", id).Order("id").Find(&sale.Items).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func ListSales(ctx context.Context) ([]*Sale, error) {
	db := config.GetDB()
	var sales []*Sale
	if err := db.WithContext(ctx).Preload("Items").Order("sale_date DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}
