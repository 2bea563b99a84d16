package models

import "testing"

func TestEnumValidation(t *testing.T) {
	for _, s := range []ShipmentStatus{ShipmentStatusPreparing, ShipmentStatusShipped, ShipmentStatusDelivered, ShipmentStatusSettled} {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if ShipmentStatus("lost").Valid() {
		t.Error("unknown shipment status accepted")
	}
	if !CurrencyUSD.Valid() || !CurrencyDOP.Valid() || Currency("EUR").Valid() {
		t.Error("currency validation wrong")
	}
	if !PaymentStatusPaid.Valid() || PaymentStatus("pending").Valid() {
		t.Error("payment status validation wrong")
	}
}
