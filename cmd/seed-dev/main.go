// seed-dev loads a small local dataset: a few perfumes, two shipments with
// different lot costs for the same products, and a starting exchange rate.
package main

import (
	"context"
	"log"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/models"
	"github.com/shopspring/decimal"
)

func main() {
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx := context.Background()

	products := []*models.NewProduct{
		{Brand: "Dior", Name: "Sauvage", Size: "100ml"},
		{Brand: "Chanel", Name: "Bleu de Chanel", Size: "100ml"},
		{Brand: "Versace", Name: "Eros", Size: "200ml"},
	}
	ids := make([]int, 0, len(products))
	for _, input := range products {
		product, err := models.CreateProduct(ctx, input)
		if err != nil {
			log.Fatalf("create product %s %s: %v", input.Brand, input.Name, err)
		}
		ids = append(ids, product.ID)
	}

	arrived := time.Now().UTC().AddDate(0, -1, 0)
	first, err := models.CreateShipment(ctx, &models.NewShipment{
		Status:       models.ShipmentStatusDelivered,
		ShippingCost: decimal.NewFromInt(120),
		ArrivedAt:    &arrived,
		Items: []*models.NewShipmentItem{
			{ProductId: ids[0], Qty: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(65)},
			{ProductId: ids[1], Qty: decimal.NewFromInt(6), UnitCost: decimal.NewFromInt(80)},
		},
	})
	if err != nil {
		log.Fatalf("create first shipment: %v", err)
	}

	arrivedLater := time.Now().UTC().AddDate(0, 0, -7)
	second, err := models.CreateShipment(ctx, &models.NewShipment{
		Status:       models.ShipmentStatusDelivered,
		ShippingCost: decimal.NewFromInt(90),
		ArrivedAt:    &arrivedLater,
		Items: []*models.NewShipmentItem{
			{ProductId: ids[0], Qty: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(72)},
			{ProductId: ids[2], Qty: decimal.NewFromInt(4), UnitCost: decimal.NewFromInt(55)},
		},
	})
	if err != nil {
		log.Fatalf("create second shipment: %v", err)
	}

	if _, err := models.SetUsdToDopRate(ctx, decimal.NewFromInt(60)); err != nil {
		log.Fatalf("set exchange rate: %v", err)
	}

	log.Printf("seeded %d products, shipments %d and %d", len(ids), first.ID, second.ID)
}
