package workflow

import (
	"context"
	"errors"
	"sort"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type NewSaleLine struct {
	Brand     string          `json:"brand" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Size      string          `json:"size" binding:"required"`
	Qty       decimal.Decimal `json:"qty" binding:"required"`
	UnitPrice decimal.Decimal `json:"unit_price" binding:"required"`
}

type NewSale struct {
	CustomerName string          `json:"customer_name" binding:"required"`
	SaleDate     time.Time       `json:"sale_date"`
	Currency     models.Currency `json:"currency" binding:"required"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	Notes        string          `json:"notes"`
	Lines        []*NewSaleLine  `json:"lines" binding:"required"`
}

func (input *NewSale) validate() error {
	if len(input.Lines) == 0 {
		return errors.New("sale requires at least one line")
	}
	if !input.Currency.Valid() {
		return models.ErrInvalidEnum
	}
	if input.AmountPaid.IsNegative() {
		return errors.New("amount paid cannot be negative")
	}
	for _, line := range input.Lines {
		if !line.Qty.IsPositive() {
			return errors.New("line qty must be positive")
		}
		if line.UnitPrice.IsNegative() {
			return errors.New("line unit price cannot be negative")
		}
	}
	return nil
}

// identityKeys returns the distinct product identity keys of the sale,
// sorted so locks are always taken in the same order.
func (input *NewSale) identityKeys() []string {
	seen := make(map[string]bool)
	keys := make([]string, 0, len(input.Lines))
	for _, line := range input.Lines {
		key := utils.ProductIdentityKey(line.Brand, line.Name, line.Size)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// CreateSale runs the whole "create a sale" unit of work:
// resolve-or-create the customer, plan every line's FIFO allocation before
// applying any of them, persist the sale header and lines, apply the plans,
// and settle the touched shipments. Everything after planning happens inside
// one database transaction, so a failure at any step leaves no partial sale,
// no consumed lots, and no half-updated shipment aggregates.
func CreateSale(ctx context.Context, logger *logrus.Logger, input *NewSale) (*models.Sale, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	saleDate := input.SaleDate
	if saleDate.IsZero() {
		saleDate = time.Now().UTC()
	}

	// Freeze the exchange rate before any write. A DOP sale keeps this value
	// forever; recomputes never consult the live rate again.
	exchangeRate := decimal.NewFromInt(1)
	if input.Currency == models.CurrencyDOP {
		rate, err := models.GetUsdToDopRate(ctx)
		if err != nil {
			config.LogError(logger, "saleWorkflow.go", "CreateSale", "GetUsdToDopRate", nil, err)
			return nil, err
		}
		exchangeRate = rate
	}

	identityKeys := input.identityKeys()

	// Cross-instance redis locks are a best-effort optimization; the MySQL
	// advisory locks below are what correctness relies on.
	for _, key := range identityKeys {
		release, err := utils.ProductLock(ctx, key, "saleWorkflow.go", "CreateSale")
		if err == nil {
			defer release()
		}
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	committed := false
	defer func() {
		if !committed {
			for _, key := range identityKeys {
				ReleaseAllocationLock(tx, key)
			}
			tx.Rollback()
		}
	}()

	// Serialize plan+apply per product identity. GET_LOCK is connection-scoped,
	// so it must run on this transaction's connection.
	for _, key := range identityKeys {
		if err := AcquireAllocationLock(tx, key); err != nil {
			config.LogError(logger, "saleWorkflow.go", "CreateSale", "AcquireAllocationLock", key, err)
			return nil, err
		}
	}

	customer, err := models.FindOrCreateCustomer(tx, input.CustomerName)
	if err != nil {
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "FindOrCreateCustomer", input.CustomerName, err)
		return nil, err
	}

	// Plan every line before applying any of them. A single short line aborts
	// the entire sale with nothing touched.
	type plannedLine struct {
		input   *NewSaleLine
		product *models.Product
		plan    *AllocationPlan
	}
	planned := make([]*plannedLine, 0, len(input.Lines))
	for _, line := range input.Lines {
		product, err := models.GetProductByIdentity(tx, line.Brand, line.Name, line.Size)
		if err != nil {
			config.LogError(logger, "saleWorkflow.go", "CreateSale", "GetProductByIdentity", line, err)
			return nil, err
		}
		lots, err := models.GetAvailableLots(tx, line.Brand, line.Name, line.Size)
		if err != nil {
			config.LogError(logger, "saleWorkflow.go", "CreateSale", "GetAvailableLots", line, err)
			return nil, err
		}
		plan, err := PlanAllocation(line.Brand, line.Name, line.Size, lots, line.Qty)
		if err != nil {
			return nil, err
		}
		planned = append(planned, &plannedLine{input: line, product: product, plan: plan})
	}

	totalAmount := decimal.Zero
	lineTotals := make([]decimal.Decimal, 0, len(planned))
	for _, pl := range planned {
		lineTotal := pl.input.Qty.Mul(pl.input.UnitPrice)
		lineTotals = append(lineTotals, lineTotal)
		totalAmount = totalAmount.Add(lineTotal)
	}
	if input.AmountPaid.GreaterThan(totalAmount) {
		return nil, &PaymentExceedsSaleTotalError{Attempted: input.AmountPaid, SaleTotal: totalAmount}
	}

	sale := models.Sale{
		CustomerId:         customer.ID,
		SaleDate:           saleDate,
		Currency:           input.Currency,
		ExchangeRateUsed:   exchangeRate,
		TotalAmount:        totalAmount,
		AmountPaid:         input.AmountPaid,
		OutstandingBalance: totalAmount.Sub(input.AmountPaid),
		PaymentStatus:      models.DerivePaymentStatus(totalAmount, input.AmountPaid),
		Notes:              input.Notes,
	}
	if err := tx.Create(&sale).Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "CreateSaleHeader", sale, err)
		return nil, err
	}

	// Seed per-line payments from the sale-level amount by revenue share.
	linePaid := ApportionByRevenueShare(input.AmountPaid, lineTotals)

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if correlationId == "" {
		correlationId = uuid.NewString()
	}

	settled := make([]SettledLine, 0, len(planned))
	for i, pl := range planned {
		item := models.SaleItem{
			SaleId:     sale.ID,
			ProductId:  pl.product.ID,
			Qty:        pl.input.Qty,
			UnitPrice:  pl.input.UnitPrice,
			LineTotal:  lineTotals[i],
			AmountPaid: linePaid[i],
		}
		if err := tx.Create(&item).Error; err != nil {
			config.LogError(logger, "saleWorkflow.go", "CreateSale", "CreateSaleItem", item, err)
			return nil, err
		}

		plan, err := applyWithReplan(tx, logger, &item, pl.input, pl.plan, correlationId)
		if err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, &item)
		settled = append(settled, SettledLine{UnitPrice: item.UnitPrice, Plan: plan})
	}

	deltas, err := ComputeShipmentDeltas(sale.Currency, sale.ExchangeRateUsed, settled)
	if err != nil {
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "ComputeShipmentDeltas", sale.ID, err)
		return nil, err
	}
	if err := ApplyShipmentDeltas(tx, logger, deltas); err != nil {
		return nil, err
	}

	for _, key := range identityKeys {
		ReleaseAllocationLock(tx, key)
	}
	if err := tx.Commit().Error; err != nil {
		config.LogError(logger, "saleWorkflow.go", "CreateSale", "Commit", sale.ID, err)
		return nil, err
	}
	committed = true
	return &sale, nil
}

// applyWithReplan applies a line's plan, and on an inventory conflict rolls
// back to a savepoint, re-reads the lots, and plans once more against fresh
// state. Under the per-identity advisory lock a conflict is rare; a second
// conflict aborts the sale.
func applyWithReplan(tx *gorm.DB, logger *logrus.Logger, item *models.SaleItem, line *NewSaleLine, plan *AllocationPlan, correlationId string) (*AllocationPlan, error) {
	savepoint := "sp_alloc"
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return nil, err
	}
	err := ApplyAllocationPlan(tx, item.ID, correlationId, plan)
	if err == nil {
		return plan, nil
	}
	if !errors.Is(err, ErrAllocationConflict) {
		config.LogError(logger, "saleWorkflow.go", "applyWithReplan", "ApplyAllocationPlan", item.ID, err)
		return nil, err
	}

	if err := tx.RollbackTo(savepoint).Error; err != nil {
		return nil, err
	}
	lots, err := models.GetAvailableLots(tx, line.Brand, line.Name, line.Size)
	if err != nil {
		return nil, err
	}
	fresh, err := PlanAllocation(line.Brand, line.Name, line.Size, lots, line.Qty)
	if err != nil {
		return nil, err
	}
	if err := ApplyAllocationPlan(tx, item.ID, correlationId, fresh); err != nil {
		config.LogError(logger, "saleWorkflow.go", "applyWithReplan", "ApplyAllocationPlan retry", item.ID, err)
		return nil, err
	}
	return fresh, nil
}
