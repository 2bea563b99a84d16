package models

import (
	"context"
	"errors"
	"os"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	"github.com/shopspring/decimal"
)

const usdToDopRedisKey = "rate:usd_dop"

// ExchangeRate is the manually maintained USD->DOP conversion rate.
// Sales freeze the rate in effect at creation time (Sale.ExchangeRateUsed);
// settlement and payment recomputes read the frozen value, never this table.
type ExchangeRate struct {
	ID        int             `gorm:"primary_key" json:"id"`
	UsdToDop  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"usd_to_dop"`
	CreatedAt time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}

// GetUsdToDopRate returns the current USD->DOP rate: redis cache first, then
// the latest stored rate, then the USD_DOP_RATE env fallback.
func GetUsdToDopRate(ctx context.Context) (decimal.Decimal, error) {
	if cached, ok, err := config.GetRedisValue(usdToDopRedisKey); err == nil && ok {
		if rate, perr := utils.ParseDecimal(cached); perr == nil && rate.IsPositive() {
			return rate, nil
		}
	}

	db := config.GetDB()
	var latest ExchangeRate
	err := db.WithContext(ctx).Order("created_at DESC, id DESC").First(&latest).Error
	if err == nil && latest.UsdToDop.IsPositive() {
		_ = config.SetRedisValue(usdToDopRedisKey, latest.UsdToDop.String(), 10*time.Minute)
		return latest.UsdToDop, nil
	}

	if env := os.Getenv("USD_DOP_RATE"); env != "" {
		if rate, perr := utils.ParseDecimal(env); perr == nil && rate.IsPositive() {
			return rate, nil
		}
	}
	return decimal.Zero, errors.New("usd to dop exchange rate not configured")
}

// SetUsdToDopRate stores a new rate and refreshes the cache.
func SetUsdToDopRate(ctx context.Context, rate decimal.Decimal) (*ExchangeRate, error) {
	if !rate.IsPositive() {
		return nil, errors.New("exchange rate must be positive")
	}
	record := ExchangeRate{UsdToDop: rate}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	_ = config.SetRedisValue(usdToDopRedisKey, rate.String(), 10*time.Minute)
	return &record, nil
}
