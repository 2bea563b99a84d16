package utils

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"github.com/bsm/redislock"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ProcessValidationErrors flattens binding validation failures into a
// field -> failed-tag map for the error response body.
func ProcessValidationErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	errorResponse := make(map[string]string)
	for _, ve := range validationErrors {
		errorResponse[ve.Field()] = ve.Tag()
	}
	return errorResponse
}

func NewTrue() *bool {
	b := true
	return &b
}

// ParseDecimal converts a string to a decimal.Decimal value.
func ParseDecimal(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, errors.New("empty decimal string")
	}
	dec, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, err
	}
	return dec, nil
}

// ProductIdentityKey builds the canonical lock/cache key for a product identity.
// Identity is the (brand, name, size) tuple, case-insensitive on brand and name.
func ProductIdentityKey(brand, name, size string) string {
	return fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(brand)),
		strings.ToLower(strings.TrimSpace(name)),
		strings.TrimSpace(size),
	)
}

// ProductLock obtains a cross-instance lock for one product identity and returns
// a release func. Best-effort optimization: reliability must not depend on Redis,
// allocation is also serialized via MySQL advisory locks inside the transaction.
func ProductLock(ctx context.Context, identityKey string, moduleName string, functionName string) (func(), error) {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		config.LogError(logger, moduleName, functionName, "Redis lock not initialized", identityKey, errors.New("redis lock is nil"))
		return nil, errors.New("service not ready (redis lock not initialized)")
	}
	lockKey := fmt.Sprintf("allocLock:%s", identityKey)
	lock, err := locker.Obtain(ctx, lockKey, 30*time.Second, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(200*time.Millisecond), 25),
	})
	if err == redislock.ErrNotObtained {
		config.LogError(logger, moduleName, functionName, "Could not obtain lock for product identity", identityKey, err)
		return nil, errors.New("could not obtain lock for product identity")
	} else if err != nil {
		config.LogError(logger, moduleName, functionName, "Error obtaining lock for product identity", identityKey, err)
		return nil, err
	}
	return func() { _ = lock.Release(ctx) }, nil
}
