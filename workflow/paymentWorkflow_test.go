package workflow

import (
	"errors"
	"testing"

	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"github.com/shopspring/decimal"
)

func saleLine(id int, lineTotal, amountPaid int64) *models.SaleItem {
	return &models.SaleItem{
		ID:         id,
		LineTotal:  decimal.NewFromInt(lineTotal),
		AmountPaid: decimal.NewFromInt(amountPaid),
	}
}

func TestApportionByRevenueShareSumsExactly(t *testing.T) {
	// 100 across totals 30/30/40 leaves a repeating share; the last line
	// absorbs the rounding remainder so the pieces sum back to 100.
	totals := []decimal.Decimal{
		decimal.NewFromInt(30),
		decimal.NewFromInt(30),
		decimal.NewFromInt(40),
	}
	shares := ApportionByRevenueShare(decimal.NewFromInt(100), totals)
	sum := decimal.Zero
	for _, s := range shares {
		sum = sum.Add(s)
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("shares must sum to the input amount, got %s", sum)
	}
	if !shares[0].Equal(decimal.NewFromInt(30)) || !shares[2].Equal(decimal.NewFromInt(40)) {
		t.Errorf("unexpected shares: %v", shares)
	}
}

func TestApportionByRevenueShareZeroCases(t *testing.T) {
	shares := ApportionByRevenueShare(decimal.Zero, []decimal.Decimal{decimal.NewFromInt(10)})
	if !shares[0].IsZero() {
		t.Errorf("zero amount must yield zero shares, got %v", shares)
	}
	shares = ApportionByRevenueShare(decimal.NewFromInt(10), []decimal.Decimal{decimal.Zero, decimal.Zero})
	for _, s := range shares {
		if !s.IsZero() {
			t.Errorf("zero totals must yield zero shares, got %v", shares)
		}
	}
}

func TestApplyLinePaymentsAddsToLine(t *testing.T) {
	lines := []*models.SaleItem{saleLine(1, 100, 20), saleLine(2, 50, 0)}
	err := ApplyLinePayments(lines, decimal.NewFromInt(20), []*LinePayment{
		{SaleItemId: 1, Amount: decimal.NewFromInt(30)},
		{SaleItemId: 2, Amount: decimal.NewFromInt(50)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lines[0].AmountPaid.Equal(decimal.NewFromInt(50)) {
		t.Errorf("line 1 paid should be 50, got %s", lines[0].AmountPaid)
	}
	if !lines[1].AmountPaid.Equal(decimal.NewFromInt(50)) {
		t.Errorf("line 2 paid should be 50, got %s", lines[1].AmountPaid)
	}
}

func TestApplyLinePaymentsRejectsOverpayment(t *testing.T) {
	lines := []*models.SaleItem{saleLine(1, 100, 90)}
	err := ApplyLinePayments(lines, decimal.NewFromInt(90), []*LinePayment{
		{SaleItemId: 1, Amount: decimal.NewFromInt(20)},
	})
	var exceeds *PaymentExceedsTotalError
	if !errors.As(err, &exceeds) {
		t.Fatalf("expected PaymentExceedsTotalError, got %v", err)
	}
	if exceeds.SaleItemId != 1 || !exceeds.Attempted.Equal(decimal.NewFromInt(110)) {
		t.Errorf("unexpected error detail: %+v", exceeds)
	}
}

func TestApplyLinePaymentsRejectsNonPositiveAndUnknownLine(t *testing.T) {
	lines := []*models.SaleItem{saleLine(1, 100, 0)}
	if err := ApplyLinePayments(lines, decimal.Zero, []*LinePayment{
		{SaleItemId: 1, Amount: decimal.Zero},
	}); err == nil {
		t.Fatal("expected error for zero payment amount")
	}
	if err := ApplyLinePayments(lines, decimal.Zero, []*LinePayment{
		{SaleItemId: 99, Amount: decimal.NewFromInt(10)},
	}); err == nil {
		t.Fatal("expected error for unknown sale item")
	}
}

func TestApplyLinePaymentsSeedsLegacySales(t *testing.T) {
	// A sale recorded before per-line tracking: header says 60 paid but every
	// line shows zero. The header amount is spread proportionally first, then
	// the new payment lands on top.
	lines := []*models.SaleItem{saleLine(1, 100, 0), saleLine(2, 100, 0)}
	err := ApplyLinePayments(lines, decimal.NewFromInt(60), []*LinePayment{
		{SaleItemId: 1, Amount: decimal.NewFromInt(10)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lines[0].AmountPaid.Equal(decimal.NewFromInt(40)) {
		t.Errorf("line 1 should carry 30 seeded + 10 paid, got %s", lines[0].AmountPaid)
	}
	if !lines[1].AmountPaid.Equal(decimal.NewFromInt(30)) {
		t.Errorf("line 2 should carry 30 seeded, got %s", lines[1].AmountPaid)
	}
}

func TestPayAllLinesMatchesMaximalPayments(t *testing.T) {
	full := []*models.SaleItem{saleLine(1, 100, 25), saleLine(2, 80, 0)}
	PayAllLines(full)

	manual := []*models.SaleItem{saleLine(1, 100, 25), saleLine(2, 80, 0)}
	err := ApplyLinePayments(manual, decimal.NewFromInt(25), []*LinePayment{
		{SaleItemId: 1, Amount: decimal.NewFromInt(75)},
		{SaleItemId: 2, Amount: decimal.NewFromInt(80)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range full {
		if !full[i].AmountPaid.Equal(manual[i].AmountPaid) {
			t.Errorf("line %d: pay-all %s != manual %s", i, full[i].AmountPaid, manual[i].AmountPaid)
		}
	}
}

func TestRecomputeSaleHeaderRestoresInvariant(t *testing.T) {
	sale := &models.Sale{
		TotalAmount: decimal.NewFromInt(180),
		Items:       []*models.SaleItem{saleLine(1, 100, 100), saleLine(2, 80, 30)},
	}
	RecomputeSaleHeader(sale)
	if !sale.AmountPaid.Equal(decimal.NewFromInt(130)) {
		t.Errorf("expected paid 130, got %s", sale.AmountPaid)
	}
	if !sale.OutstandingBalance.Equal(decimal.NewFromInt(50)) {
		t.Errorf("expected outstanding 50, got %s", sale.OutstandingBalance)
	}
	if !sale.AmountPaid.Add(sale.OutstandingBalance).Equal(sale.TotalAmount) {
		t.Error("paid + outstanding must equal total")
	}
	if sale.PaymentStatus != models.PaymentStatusPartial {
		t.Errorf("expected partial status, got %s", sale.PaymentStatus)
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	cases := []struct {
		total int64
		paid  int64
		want  models.PaymentStatus
	}{
		{100, 100, models.PaymentStatusPaid},
		{100, 0, models.PaymentStatusLayaway},
		{100, 40, models.PaymentStatusPartial},
		{0, 0, models.PaymentStatusLayaway},
	}
	for _, c := range cases {
		got := models.DerivePaymentStatus(decimal.NewFromInt(c.total), decimal.NewFromInt(c.paid))
		if got != c.want {
			t.Errorf("total=%d paid=%d: expected %s, got %s", c.total, c.paid, c.want, got)
		}
	}
}

func TestPaymentExceedsSaleTotalErrorMessage(t *testing.T) {
	// A sale-level overpayment names the sale total, not a line: the message
	// must never read as if a zero-id line were involved.
	err := &PaymentExceedsSaleTotalError{
		Attempted: decimal.NewFromInt(150),
		SaleTotal: decimal.NewFromInt(100),
	}
	want := "payment exceeds sale total attempted=150 sale_total=100"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}

	var lineErr *PaymentExceedsTotalError
	if errors.As(error(err), &lineErr) {
		t.Fatal("sale-level overpayment must not match the per-line error type")
	}
}
