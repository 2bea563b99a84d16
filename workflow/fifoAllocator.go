package workflow

import (
	"fmt"

	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"github.com/shopspring/decimal"
)

// PlannedAllocation is one planned draw against a lot; UnitCost is captured
// here and carried through to the persisted allocation record unchanged.
type PlannedAllocation struct {
	ShipmentItemId int
	ShipmentId     int
	Qty            decimal.Decimal
	UnitCost       decimal.Decimal
}

// AllocationPlan is the read-only FIFO decision for one sale line.
// Entries sum exactly to the requested quantity; TotalCost is the
// FIFO-weighted cost, not an average.
type AllocationPlan struct {
	Entries   []PlannedAllocation
	TotalQty  decimal.Decimal
	TotalCost decimal.Decimal
}

// InsufficientInventoryError reports that the requested quantity exceeds the
// total available across all lots. Planning is side-effect-free, so this is
// always safe to surface directly.
type InsufficientInventoryError struct {
	Brand     string
	Name      string
	Size      string
	Needed    decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for brand=%s name=%s size=%s needed=%s available=%s",
		e.Brand, e.Name, e.Size, e.Needed, e.Available)
}

// PlanAllocation walks the lots oldest-first and takes
// min(remaining, still needed) from each until the quantity is covered.
// All-or-nothing: when total availability falls short no partial plan is
// returned. Zero open lots is a failure, not an empty success.
//
// The lots slice must already be FIFO-ordered (models.GetAvailableLots).
func PlanAllocation(brand, name, size string, lots []models.AvailableLot, qtyNeeded decimal.Decimal) (*AllocationPlan, error) {
	if !qtyNeeded.IsPositive() {
		return nil, fmt.Errorf("quantity needed must be positive, got %s", qtyNeeded)
	}

	plan := &AllocationPlan{
		TotalQty:  decimal.Zero,
		TotalCost: decimal.Zero,
	}

	remaining := qtyNeeded
	available := decimal.Zero
	for _, lot := range lots {
		available = available.Add(lot.RemainingInventory)
		if !remaining.IsPositive() {
			continue
		}
		take := decimal.Min(lot.RemainingInventory, remaining)
		if !take.IsPositive() {
			continue
		}
		plan.Entries = append(plan.Entries, PlannedAllocation{
			ShipmentItemId: lot.ShipmentItemId,
			ShipmentId:     lot.ShipmentId,
			Qty:            take,
			UnitCost:       lot.UnitCost,
		})
		plan.TotalQty = plan.TotalQty.Add(take)
		plan.TotalCost = plan.TotalCost.Add(take.Mul(lot.UnitCost))
		remaining = remaining.Sub(take)
	}

	if remaining.IsPositive() {
		return nil, &InsufficientInventoryError{
			Brand:     brand,
			Name:      name,
			Size:      size,
			Needed:    qtyNeeded,
			Available: available,
		}
	}
	return plan, nil
}
