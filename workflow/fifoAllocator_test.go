package workflow

import (
	"errors"
	"testing"

	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. Planning is a pure walk over
// an already-ordered lot slice, so the FIFO and cost properties can be
// checked without MySQL. Apply-path conflicts are covered by the conditional
// UPDATE and belong in an environment that can run MySQL.

func lot(itemId, shipmentId int, remaining, unitCost int64) models.AvailableLot {
	return models.AvailableLot{
		ShipmentItemId:     itemId,
		ShipmentId:         shipmentId,
		RemainingInventory: decimal.NewFromInt(remaining),
		UnitCost:           decimal.NewFromInt(unitCost),
	}
}

func TestPlanAllocationDrainsOldestFirst(t *testing.T) {
	lots := []models.AvailableLot{
		lot(1, 1, 5, 10),
		lot(2, 2, 10, 20),
	}

	plan, err := PlanAllocation("Dior", "Sauvage", "100ml", lots, decimal.NewFromInt(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(plan.Entries))
	}
	if plan.Entries[0].ShipmentItemId != 1 || !plan.Entries[0].Qty.Equal(decimal.NewFromInt(5)) {
		t.Errorf("first entry should drain lot 1 fully, got lot %d qty %s",
			plan.Entries[0].ShipmentItemId, plan.Entries[0].Qty)
	}
	if plan.Entries[1].ShipmentItemId != 2 || !plan.Entries[1].Qty.Equal(decimal.NewFromInt(2)) {
		t.Errorf("second entry should take 2 from lot 2, got lot %d qty %s",
			plan.Entries[1].ShipmentItemId, plan.Entries[1].Qty)
	}
	// 5*10 + 2*20 = 90: weighted by actual lots, not averaged.
	if !plan.TotalCost.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected total cost 90, got %s", plan.TotalCost)
	}
	if !plan.TotalQty.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected total qty 7, got %s", plan.TotalQty)
	}
}

func TestPlanAllocationAllOrNothing(t *testing.T) {
	lots := []models.AvailableLot{
		lot(1, 1, 3, 10),
		lot(2, 2, 2, 12),
	}

	_, err := PlanAllocation("Dior", "Sauvage", "100ml", lots, decimal.NewFromInt(6))
	var insufficient *InsufficientInventoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(5)) {
		t.Errorf("expected available=5 in error, got %s", insufficient.Available)
	}
	if !insufficient.Needed.Equal(decimal.NewFromInt(6)) {
		t.Errorf("expected needed=6 in error, got %s", insufficient.Needed)
	}
}

func TestPlanAllocationNoOpenLots(t *testing.T) {
	_, err := PlanAllocation("Dior", "Sauvage", "100ml", nil, decimal.NewFromInt(1))
	var insufficient *InsufficientInventoryError
	if !errors.As(err, &insufficient) {
		t.Fatalf("zero open lots must be a failure, got %v", err)
	}
}

func TestPlanAllocationExactBoundary(t *testing.T) {
	lots := []models.AvailableLot{lot(1, 1, 4, 10)}

	plan, err := PlanAllocation("Dior", "Sauvage", "100ml", lots, decimal.NewFromInt(4))
	if err != nil {
		t.Fatalf("draining a lot to exactly zero must succeed: %v", err)
	}
	if len(plan.Entries) != 1 || !plan.Entries[0].Qty.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("expected single full-lot entry, got %+v", plan.Entries)
	}
}

func TestPlanAllocationRejectsNonPositiveQty(t *testing.T) {
	lots := []models.AvailableLot{lot(1, 1, 4, 10)}
	if _, err := PlanAllocation("Dior", "Sauvage", "100ml", lots, decimal.Zero); err == nil {
		t.Fatal("expected error for zero quantity")
	}
	if _, err := PlanAllocation("Dior", "Sauvage", "100ml", lots, decimal.NewFromInt(-2)); err == nil {
		t.Fatal("expected error for negative quantity")
	}
}

func TestPlanAllocationSequentialDraws(t *testing.T) {
	// Two shipments of the same perfume at different costs. Selling 15 takes
	// all 10 from the first lot and 5 from the second; a later sale of 1
	// starts from what is left of the second lot.
	lots := []models.AvailableLot{
		lot(1, 1, 10, 5),
		lot(2, 2, 10, 8),
	}

	first, err := PlanAllocation("Chanel", "No 5", "50ml", lots, decimal.NewFromInt(15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10*5 + 5*8 = 90
	if !first.TotalCost.Equal(decimal.NewFromInt(90)) {
		t.Errorf("expected first plan cost 90, got %s", first.TotalCost)
	}

	// Simulate the apply decrementing the lots.
	lots[0].RemainingInventory = decimal.Zero
	lots[1].RemainingInventory = decimal.NewFromInt(5)
	open := lots[1:]

	second, err := PlanAllocation("Chanel", "No 5", "50ml", open, decimal.NewFromInt(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Entries[0].ShipmentItemId != 2 || !second.TotalCost.Equal(decimal.NewFromInt(8)) {
		t.Errorf("second sale should cost 8 from lot 2, got lot %d cost %s",
			second.Entries[0].ShipmentItemId, second.TotalCost)
	}
}

func TestPlanAllocationDeterministicOnTies(t *testing.T) {
	// Same input order in, same plan out: the planner never reorders lots,
	// so the DB-level tie-break (shipment id, then lot id) is preserved.
	lots := []models.AvailableLot{
		lot(7, 3, 2, 11),
		lot(9, 3, 2, 13),
	}
	for i := 0; i < 5; i++ {
		plan, err := PlanAllocation("Versace", "Eros", "200ml", lots, decimal.NewFromInt(3))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if plan.Entries[0].ShipmentItemId != 7 || plan.Entries[1].ShipmentItemId != 9 {
			t.Fatalf("plan order changed on run %d: %+v", i, plan.Entries)
		}
	}
}

func TestPlanAllocationConservation(t *testing.T) {
	// After applying a plan, the total drawn equals the total decremented:
	// sum of entry quantities == sum over lots of (before - after).
	lots := []models.AvailableLot{
		lot(1, 1, 6, 10),
		lot(2, 2, 4, 12),
		lot(3, 3, 9, 15),
	}
	before := make(map[int]decimal.Decimal)
	for _, l := range lots {
		before[l.ShipmentItemId] = l.RemainingInventory
	}

	plan, err := PlanAllocation("Dior", "Sauvage", "100ml", lots, decimal.NewFromInt(12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	drawn := decimal.Zero
	for i := range lots {
		for _, entry := range plan.Entries {
			if entry.ShipmentItemId == lots[i].ShipmentItemId {
				lots[i].RemainingInventory = lots[i].RemainingInventory.Sub(entry.Qty)
				drawn = drawn.Add(entry.Qty)
			}
		}
		if lots[i].RemainingInventory.IsNegative() {
			t.Fatalf("lot %d driven negative", lots[i].ShipmentItemId)
		}
	}
	decremented := decimal.Zero
	for _, l := range lots {
		decremented = decremented.Add(before[l.ShipmentItemId].Sub(l.RemainingInventory))
	}
	if !drawn.Equal(decimal.NewFromInt(12)) || !drawn.Equal(decremented) {
		t.Fatalf("conservation violated: drawn=%s decremented=%s", drawn, decremented)
	}
}
