package models

import "errors"

type ShipmentStatus string

const (
	ShipmentStatusPreparing ShipmentStatus = "preparing"
	ShipmentStatusShipped   ShipmentStatus = "shipped"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusSettled   ShipmentStatus = "settled"
)

func (s ShipmentStatus) Valid() bool {
	switch s {
	case ShipmentStatusPreparing, ShipmentStatusShipped, ShipmentStatusDelivered, ShipmentStatusSettled:
		return true
	}
	return false
}

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyDOP Currency = "DOP"
)

func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyDOP
}

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPartial PaymentStatus = "partial"
	PaymentStatusLayaway PaymentStatus = "layaway"
)

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentStatusPaid, PaymentStatusPartial, PaymentStatusLayaway:
		return true
	}
	return false
}

var ErrInvalidEnum = errors.New("invalid enum value")
