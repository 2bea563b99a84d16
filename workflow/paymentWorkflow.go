package workflow

import (
	"context"
	"errors"
	"fmt"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// PaymentExceedsTotalError rejects a payment that would push a line (or the
// sale) past its total. Nothing is written when this is returned.
type PaymentExceedsTotalError struct {
	SaleItemId int
	Attempted  decimal.Decimal
	LineTotal  decimal.Decimal
}

func (e *PaymentExceedsTotalError) Error() string {
	return fmt.Sprintf("payment exceeds total for sale_item_id=%d attempted=%s line_total=%s",
		e.SaleItemId, e.Attempted, e.LineTotal)
}

// PaymentExceedsSaleTotalError rejects an up-front payment larger than the
// whole sale's total, before any line exists to attribute it to.
type PaymentExceedsSaleTotalError struct {
	Attempted decimal.Decimal
	SaleTotal decimal.Decimal
}

func (e *PaymentExceedsSaleTotalError) Error() string {
	return fmt.Sprintf("payment exceeds sale total attempted=%s sale_total=%s",
		e.Attempted, e.SaleTotal)
}

type LinePayment struct {
	SaleItemId int             `json:"sale_item_id" binding:"required"`
	Amount     decimal.Decimal `json:"amount" binding:"required"`
}

type PaymentInput struct {
	Payments []*LinePayment `json:"payments"`
	PayAll   bool           `json:"pay_all"`
}

// ApportionByRevenueShare splits amount across lines proportionally to their
// totals. The last line takes the remainder so the shares always sum exactly
// to the input amount.
func ApportionByRevenueShare(amount decimal.Decimal, lineTotals []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(lineTotals))
	if len(lineTotals) == 0 || amount.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}
	total := decimal.Zero
	for _, lt := range lineTotals {
		total = total.Add(lt)
	}
	if total.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}
	allocated := decimal.Zero
	for i, lt := range lineTotals {
		if i == len(lineTotals)-1 {
			shares[i] = amount.Sub(allocated)
			break
		}
		share := amount.Mul(lt).Div(total).Round(4)
		shares[i] = share
		allocated = allocated.Add(share)
	}
	return shares
}

// ApplyLinePayments mutates the lines in place: seeds per-line amounts from
// the sale-level paid figure when no line carries one yet (legacy sales), then
// adds each requested payment, rejecting any line that would exceed its total.
func ApplyLinePayments(lines []*models.SaleItem, salePaid decimal.Decimal, payments []*LinePayment) error {
	// Proportional fallback: legacy sales track payment only on the header.
	allZero := true
	for _, line := range lines {
		if !line.AmountPaid.IsZero() {
			allZero = false
			break
		}
	}
	if allZero && salePaid.IsPositive() {
		lineTotals := make([]decimal.Decimal, len(lines))
		for i, line := range lines {
			lineTotals[i] = line.LineTotal
		}
		shares := ApportionByRevenueShare(salePaid, lineTotals)
		for i, line := range lines {
			line.AmountPaid = shares[i]
		}
	}

	byId := make(map[int]*models.SaleItem, len(lines))
	for _, line := range lines {
		byId[line.ID] = line
	}
	for _, payment := range payments {
		if !payment.Amount.IsPositive() {
			return errors.New("payment amount must be positive")
		}
		line, ok := byId[payment.SaleItemId]
		if !ok {
			return fmt.Errorf("sale_item_id=%d does not belong to this sale", payment.SaleItemId)
		}
		newPaid := line.AmountPaid.Add(payment.Amount)
		if newPaid.GreaterThan(line.LineTotal) {
			return &PaymentExceedsTotalError{
				SaleItemId: line.ID,
				Attempted:  newPaid,
				LineTotal:  line.LineTotal,
			}
		}
		line.AmountPaid = newPaid
	}
	return nil
}

// PayAllLines sets every line's paid amount to its full total, equivalent to
// a batch of maximal per-line payments.
func PayAllLines(lines []*models.SaleItem) {
	for _, line := range lines {
		line.AmountPaid = line.LineTotal
	}
}

// RecomputeSaleHeader derives the header payment figures from the lines.
// Invariant restored here: amount_paid = sum of line amounts,
// outstanding_balance = total_amount - amount_paid.
func RecomputeSaleHeader(sale *models.Sale) {
	paid := decimal.Zero
	for _, line := range sale.Items {
		paid = paid.Add(line.AmountPaid)
	}
	sale.AmountPaid = paid
	sale.OutstandingBalance = sale.TotalAmount.Sub(paid)
	sale.PaymentStatus = models.DerivePaymentStatus(sale.TotalAmount, paid)
}

// UpdateSalePayment applies per-line additional payments (or the pay-all
// shortcut) and re-derives the sale-level amount, balance, and status.
// Validation happens before any write; a rejected payment leaves the sale
// untouched.
func UpdateSalePayment(ctx context.Context, logger *logrus.Logger, saleId int, input *PaymentInput) (*models.Sale, error) {
	if !input.PayAll && len(input.Payments) == 0 {
		return nil, errors.New("payment update requires payments or pay_all")
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

	sale, err := models.GetSaleForUpdate(tx, saleId)
	if err != nil {
		config.LogError(logger, "paymentWorkflow.go", "UpdateSalePayment", "GetSaleForUpdate", saleId, err)
		return nil, err
	}

	if input.PayAll {
		PayAllLines(sale.Items)
	} else {
		if err := ApplyLinePayments(sale.Items, sale.AmountPaid, input.Payments); err != nil {
			return nil, err
		}
	}
	RecomputeSaleHeader(sale)

	for _, line := range sale.Items {
		err := tx.Model(&models.SaleItem{}).Where("id = ?", line.ID).
			UpdateColumn("amount_paid", line.AmountPaid).Error
		if err != nil {
			config.LogError(logger, "paymentWorkflow.go", "UpdateSalePayment", "UpdateSaleItem", line.ID, err)
			return nil, err
		}
	}
	err = tx.Model(&models.Sale{}).Where("id = ?", sale.ID).Updates(map[string]interface{}{
		"amount_paid":         sale.AmountPaid,
		"outstanding_balance": sale.OutstandingBalance,
		"payment_status":      sale.PaymentStatus,
	}).Error
	if err != nil {
		config.LogError(logger, "paymentWorkflow.go", "UpdateSalePayment", "UpdateSaleHeader", sale.ID, err)
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	committed = true
	return sale, nil
}
