package workflow

import (
	"testing"

	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"github.com/shopspring/decimal"
)

func settledLine(unitPrice int64, entries ...PlannedAllocation) SettledLine {
	plan := &AllocationPlan{}
	for _, e := range entries {
		plan.Entries = append(plan.Entries, e)
		plan.TotalQty = plan.TotalQty.Add(e.Qty)
		plan.TotalCost = plan.TotalCost.Add(e.Qty.Mul(e.UnitCost))
	}
	return SettledLine{UnitPrice: decimal.NewFromInt(unitPrice), Plan: plan}
}

func TestComputeShipmentDeltasUSD(t *testing.T) {
	lines := []SettledLine{
		settledLine(120,
			PlannedAllocation{ShipmentItemId: 1, ShipmentId: 1, Qty: decimal.NewFromInt(5), UnitCost: decimal.NewFromInt(65)},
			PlannedAllocation{ShipmentItemId: 4, ShipmentId: 2, Qty: decimal.NewFromInt(2), UnitCost: decimal.NewFromInt(72)},
		),
	}

	deltas, err := ComputeShipmentDeltas(models.CurrencyUSD, decimal.NewFromInt(1), lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 shipment deltas, got %d", len(deltas))
	}
	// Shipment 1: revenue 5*120=600, cost 5*65=325.
	if !deltas[0].Revenue.Equal(decimal.NewFromInt(600)) || !deltas[0].Cost.Equal(decimal.NewFromInt(325)) {
		t.Errorf("shipment 1 delta wrong: revenue=%s cost=%s", deltas[0].Revenue, deltas[0].Cost)
	}
	// Shipment 2: revenue 2*120=240, cost 2*72=144.
	if !deltas[1].Revenue.Equal(decimal.NewFromInt(240)) || !deltas[1].Cost.Equal(decimal.NewFromInt(144)) {
		t.Errorf("shipment 2 delta wrong: revenue=%s cost=%s", deltas[1].Revenue, deltas[1].Cost)
	}
}

func TestComputeShipmentDeltasDOPUsesFrozenRate(t *testing.T) {
	// Sold in DOP at 6000/unit with the rate frozen at 60: each unit books
	// 100 USD of revenue regardless of what the live rate later becomes.
	lines := []SettledLine{
		settledLine(6000,
			PlannedAllocation{ShipmentItemId: 1, ShipmentId: 1, Qty: decimal.NewFromInt(3), UnitCost: decimal.NewFromInt(65)},
		),
	}

	deltas, err := ComputeShipmentDeltas(models.CurrencyDOP, decimal.NewFromInt(60), lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deltas[0].Revenue.Equal(decimal.NewFromInt(300)) {
		t.Errorf("expected 300 USD revenue at frozen rate 60, got %s", deltas[0].Revenue)
	}
	// Cost stays in USD, untouched by the rate.
	if !deltas[0].Cost.Equal(decimal.NewFromInt(195)) {
		t.Errorf("expected cost 195, got %s", deltas[0].Cost)
	}
}

func TestComputeShipmentDeltasDOPRequiresPositiveRate(t *testing.T) {
	lines := []SettledLine{
		settledLine(6000,
			PlannedAllocation{ShipmentItemId: 1, ShipmentId: 1, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(65)},
		),
	}
	if _, err := ComputeShipmentDeltas(models.CurrencyDOP, decimal.Zero, lines); err == nil {
		t.Fatal("expected error for zero frozen rate")
	}
}

func TestComputeShipmentDeltasOrderedByShipmentId(t *testing.T) {
	lines := []SettledLine{
		settledLine(50,
			PlannedAllocation{ShipmentItemId: 9, ShipmentId: 4, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(10)},
			PlannedAllocation{ShipmentItemId: 2, ShipmentId: 1, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(10)},
			PlannedAllocation{ShipmentItemId: 5, ShipmentId: 3, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(10)},
		),
	}
	deltas, err := ComputeShipmentDeltas(models.CurrencyUSD, decimal.NewFromInt(1), lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 1; i < len(deltas); i++ {
		if deltas[i].ShipmentId <= deltas[i-1].ShipmentId {
			t.Fatalf("deltas not ordered by shipment id: %+v", deltas)
		}
	}
}

func TestComputeShipmentDeltasMergesLinesPerShipment(t *testing.T) {
	// Two lines draw from the same shipment; the delta must carry the sum,
	// matching what a full recompute from allocation rows would produce.
	lines := []SettledLine{
		settledLine(100,
			PlannedAllocation{ShipmentItemId: 1, ShipmentId: 1, Qty: decimal.NewFromInt(2), UnitCost: decimal.NewFromInt(40)},
		),
		settledLine(80,
			PlannedAllocation{ShipmentItemId: 2, ShipmentId: 1, Qty: decimal.NewFromInt(3), UnitCost: decimal.NewFromInt(30)},
		),
	}
	deltas, err := ComputeShipmentDeltas(models.CurrencyUSD, decimal.NewFromInt(1), lines)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deltas) != 1 {
		t.Fatalf("expected single merged delta, got %d", len(deltas))
	}
	// Revenue 2*100 + 3*80 = 440; cost 2*40 + 3*30 = 170.
	if !deltas[0].Revenue.Equal(decimal.NewFromInt(440)) {
		t.Errorf("expected merged revenue 440, got %s", deltas[0].Revenue)
	}
	if !deltas[0].Cost.Equal(decimal.NewFromInt(170)) {
		t.Errorf("expected merged cost 170, got %s", deltas[0].Cost)
	}
}

// storageScaleRecompute mirrors the reconciliation SQL in Go: every
// allocation term valued at its line's unit price, converted at the frozen
// rate, rounded at the stored column's scale, then summed.
func storageScaleRecompute(currency models.Currency, rate decimal.Decimal, lines []SettledLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		for _, entry := range line.Plan.Entries {
			revenue := entry.Qty.Mul(line.UnitPrice)
			if currency == models.CurrencyDOP {
				revenue = revenue.Div(rate)
			}
			total = total.Add(revenue.Round(4))
		}
	}
	return total
}

func TestIncrementalSettlementMatchesRecompute(t *testing.T) {
	// 1 unit at 100 DOP with the rate frozen at 60 converts to a
	// non-terminating decimal. The incremental delta and the full recompute
	// must still land on the same stored value, or reconciliation would
	// report drift on every run.
	line := settledLine(100,
		PlannedAllocation{ShipmentItemId: 1, ShipmentId: 1, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(40)},
	)
	rate := decimal.NewFromInt(60)

	deltas, err := ComputeShipmentDeltas(models.CurrencyDOP, rate, []SettledLine{line})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := storageScaleRecompute(models.CurrencyDOP, rate, []SettledLine{line})
	if !deltas[0].Revenue.Equal(want) {
		t.Fatalf("incremental revenue %s != recomputed %s", deltas[0].Revenue, want)
	}
	if deltas[0].Revenue.Exponent() < -4 {
		t.Fatalf("delta revenue %s exceeds the stored column's scale", deltas[0].Revenue)
	}
}

func TestIncrementalSettlementMatchesRecomputeAcrossSales(t *testing.T) {
	// Each sale rounds per allocation entry, so accumulating sale after sale
	// stays equal to a single recompute over all entries. Rounding at the
	// aggregate instead would let the two paths diverge in the last digit.
	lines := []SettledLine{
		settledLine(100,
			PlannedAllocation{ShipmentItemId: 1, ShipmentId: 1, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(40)},
		),
		settledLine(100,
			PlannedAllocation{ShipmentItemId: 1, ShipmentId: 1, Qty: decimal.NewFromInt(1), UnitCost: decimal.NewFromInt(40)},
		),
		settledLine(250,
			PlannedAllocation{ShipmentItemId: 2, ShipmentId: 1, Qty: decimal.NewFromInt(3), UnitCost: decimal.NewFromInt(55)},
		),
	}
	rate := decimal.NewFromInt(60)

	// Apply each sale's delta one at a time, the way CreateSale settles.
	stored := decimal.Zero
	for _, line := range lines {
		deltas, err := ComputeShipmentDeltas(models.CurrencyDOP, rate, []SettledLine{line})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored = stored.Add(deltas[0].Revenue)
	}

	recomputed := storageScaleRecompute(models.CurrencyDOP, rate, lines)
	if !stored.Equal(recomputed) {
		t.Fatalf("accumulated revenue %s != recomputed %s", stored, recomputed)
	}
}
