package workflow

import (
	"errors"
	"sort"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SettledLine pairs a sale line's unit price with its applied allocation plan.
type SettledLine struct {
	UnitPrice decimal.Decimal
	Plan      *AllocationPlan
}

// ShipmentDelta is the settlement contribution of one sale to one shipment,
// denominated in the shipment's currency (USD).
type ShipmentDelta struct {
	ShipmentId int
	Revenue    decimal.Decimal
	Cost       decimal.Decimal
}

// revenueScale is the scale of the decimal(20,4) aggregate columns. Every
// per-allocation revenue term is rounded to it before summing, on both the
// incremental path and the SQL recompute, so the two always agree exactly.
const revenueScale = 4

// ComputeShipmentDeltas groups a sale's allocations by owning shipment and
// converts revenue to USD. DOP amounts divide by the sale's frozen exchange
// rate; the live rate is never consulted here. Results are ordered by
// shipment id so the write path is deterministic.
func ComputeShipmentDeltas(currency models.Currency, exchangeRateUsed decimal.Decimal, lines []SettledLine) ([]ShipmentDelta, error) {
	if currency == models.CurrencyDOP && !exchangeRateUsed.IsPositive() {
		return nil, errors.New("DOP settlement requires a positive frozen exchange rate")
	}

	byShipment := make(map[int]*ShipmentDelta)
	for _, line := range lines {
		if line.Plan == nil {
			continue
		}
		for _, entry := range line.Plan.Entries {
			delta, ok := byShipment[entry.ShipmentId]
			if !ok {
				delta = &ShipmentDelta{
					ShipmentId: entry.ShipmentId,
					Revenue:    decimal.Zero,
					Cost:       decimal.Zero,
				}
				byShipment[entry.ShipmentId] = delta
			}
			revenue := entry.Qty.Mul(line.UnitPrice)
			if currency == models.CurrencyDOP {
				revenue = revenue.Div(exchangeRateUsed)
			}
			delta.Revenue = delta.Revenue.Add(revenue.Round(revenueScale))
			delta.Cost = delta.Cost.Add(entry.Qty.Mul(entry.UnitCost).Round(revenueScale))
		}
	}

	deltas := make([]ShipmentDelta, 0, len(byShipment))
	for _, delta := range byShipment {
		deltas = append(deltas, *delta)
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ShipmentId < deltas[j].ShipmentId })
	return deltas, nil
}

// ApplyShipmentDeltas accumulates revenue onto each touched shipment.
// NetProfit is recomputed from the new revenue and the fixed TotalCost,
// never incremented, so the stored value cannot drift from its definition.
func ApplyShipmentDeltas(tx *gorm.DB, logger *logrus.Logger, deltas []ShipmentDelta) error {
	for _, delta := range deltas {
		var shipment models.Shipment
		if err := tx.Clauses(forUpdate()).First(&shipment, delta.ShipmentId).Error; err != nil {
			config.LogError(logger, "settlement.go", "ApplyShipmentDeltas", "FetchShipment", delta.ShipmentId, err)
			return err
		}
		newRevenue := shipment.TotalRevenue.Add(delta.Revenue)
		newProfit := newRevenue.Sub(shipment.TotalCost)
		err := tx.Model(&shipment).Updates(map[string]interface{}{
			"total_revenue": newRevenue,
			"net_profit":    newProfit,
		}).Error
		if err != nil {
			config.LogError(logger, "settlement.go", "ApplyShipmentDeltas", "UpdateShipment", delta, err)
			return err
		}
	}
	return nil
}

// ShipmentAggregateCheck compares a shipment's stored aggregates with a full
// recompute from the allocation records.
type ShipmentAggregateCheck struct {
	ShipmentId      int             `json:"shipment_id"`
	StoredRevenue   decimal.Decimal `json:"stored_revenue"`
	StoredProfit    decimal.Decimal `json:"stored_profit"`
	ComputedRevenue decimal.Decimal `json:"computed_revenue"`
	ComputedProfit  decimal.Decimal `json:"computed_profit"`
	InSync          bool            `json:"in_sync"`
}

// recomputeShipmentRevenue derives total revenue for a shipment from scratch:
// every allocation against the shipment's lots, valued at its sale line's
// unit price, converted at the owning sale's frozen exchange rate. Each term
// is rounded at revenueScale before summing; MySQL would otherwise carry the
// division out to scale 8 and never match the stored decimal(20,4) value.
func recomputeShipmentRevenue(tx *gorm.DB, shipmentId int) (decimal.Decimal, error) {
	type row struct{ Revenue decimal.Decimal }
	var r row
	err := tx.Raw(`
		SELECT COALESCE(SUM(ROUND(
			CASE WHEN s.currency = 'DOP'
			     THEN a.qty * li.unit_price / s.exchange_rate_used
			     ELSE a.qty * li.unit_price
			END
		, 4)), 0) AS revenue
		FROM sale_item_allocations a
		JOIN shipment_items lot ON lot.id = a.shipment_item_id
		JOIN sale_items li      ON li.id = a.sale_item_id
		JOIN sales s            ON s.id = li.sale_id
		WHERE lot.shipment_id = ?
	`, shipmentId).Scan(&r).Error
	if err != nil {
		return decimal.Zero, err
	}
	return r.Revenue, nil
}

// CheckShipmentAggregates reports stored vs recomputed aggregates without writing.
func CheckShipmentAggregates(tx *gorm.DB, shipmentId int) (*ShipmentAggregateCheck, error) {
	var shipment models.Shipment
	if err := tx.First(&shipment, shipmentId).Error; err != nil {
		return nil, err
	}
	revenue, err := recomputeShipmentRevenue(tx, shipmentId)
	if err != nil {
		return nil, err
	}
	profit := revenue.Sub(shipment.TotalCost)
	return &ShipmentAggregateCheck{
		ShipmentId:      shipmentId,
		StoredRevenue:   shipment.TotalRevenue,
		StoredProfit:    shipment.NetProfit,
		ComputedRevenue: revenue,
		ComputedProfit:  profit,
		InSync:          shipment.TotalRevenue.Equal(revenue) && shipment.NetProfit.Equal(profit),
	}, nil
}

// RecomputeShipmentAggregates rewrites the stored aggregates from the full
// recompute. The incremental path must agree with this; when consistency is
// in doubt this one wins.
func RecomputeShipmentAggregates(tx *gorm.DB, logger *logrus.Logger, shipmentId int) (*ShipmentAggregateCheck, error) {
	check, err := CheckShipmentAggregates(tx, shipmentId)
	if err != nil {
		config.LogError(logger, "settlement.go", "RecomputeShipmentAggregates", "CheckShipmentAggregates", shipmentId, err)
		return nil, err
	}
	if check.InSync {
		return check, nil
	}
	err = tx.Model(&models.Shipment{}).Where("id = ?", shipmentId).Updates(map[string]interface{}{
		"total_revenue": check.ComputedRevenue,
		"net_profit":    check.ComputedProfit,
	}).Error
	if err != nil {
		config.LogError(logger, "settlement.go", "RecomputeShipmentAggregates", "UpdateShipment", check, err)
		return nil, err
	}
	return check, nil
}
