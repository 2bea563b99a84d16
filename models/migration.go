package models

import (
	"log"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&Product{},
		&Customer{},
		&Shipment{},
		&ShipmentItem{},
		&Sale{},
		&SaleItem{},
		&SaleItemAllocation{},
		&InventoryAdjustment{},
		&ExchangeRate{},
	)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
}
