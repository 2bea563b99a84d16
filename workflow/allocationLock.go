package workflow

import (
	"fmt"

	"gorm.io/gorm"
)

// AcquireAllocationLock serializes plan+apply per product identity across
// instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same
// *gorm.DB transaction that will plan and apply the allocation.
func AcquireAllocationLock(tx *gorm.DB, identityKey string) error {
	lockName := fmt.Sprintf("alloc:%s", identityKey)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		return fmt.Errorf("could not acquire allocation lock for identity=%s", identityKey)
	}
	return nil
}

func ReleaseAllocationLock(tx *gorm.DB, identityKey string) {
	lockName := fmt.Sprintf("alloc:%s", identityKey)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
