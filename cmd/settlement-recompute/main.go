// settlement-recompute audits every shipment's stored revenue/profit
// aggregates against a full recompute from the allocation records, and
// optionally repairs drift.
//
// Usage:
//
//	go run ./cmd/settlement-recompute            # report only
//	go run ./cmd/settlement-recompute --fix      # rewrite drifted aggregates
package main

import (
	"flag"
	"log"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"bitbucket.org/essenzadr/perfumeria_backend/workflow"
)

func main() {
	fix := flag.Bool("fix", false, "rewrite aggregates that drifted from the recomputed value")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	logger := config.GetLogger()
	db := config.GetDB()

	var shipmentIds []int
	if err := db.Model(&models.Shipment{}).Order("id").Pluck("id", &shipmentIds).Error; err != nil {
		log.Fatalf("list shipments: %v", err)
	}

	drifted := 0
	for _, id := range shipmentIds {
		tx := db.Begin()
		var check *workflow.ShipmentAggregateCheck
		var err error
		if *fix {
			check, err = workflow.RecomputeShipmentAggregates(tx, logger, id)
		} else {
			check, err = workflow.CheckShipmentAggregates(tx, id)
		}
		if err != nil {
			tx.Rollback()
			log.Fatalf("shipment %d: %v", id, err)
		}
		if err := tx.Commit().Error; err != nil {
			log.Fatalf("shipment %d commit: %v", id, err)
		}
		if !check.InSync {
			drifted++
			log.Printf("shipment %d DRIFT stored_revenue=%s computed_revenue=%s stored_profit=%s computed_profit=%s fixed=%v",
				id, check.StoredRevenue, check.ComputedRevenue, check.StoredProfit, check.ComputedProfit, *fix)
		}
	}
	log.Printf("checked %d shipments, %d drifted", len(shipmentIds), drifted)
}
