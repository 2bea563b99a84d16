package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"bitbucket.org/essenzadr/perfumeria_backend/utils"
	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a (brand, name, size) tuple has no catalog entry.
var ErrProductNotFound = errors.New("product not found")

// ErrProductExists is returned when a create collides with the
// idx_product_identity unique index.
var ErrProductExists = errors.New("product identity already exists")

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// Product is the perfume catalog entry. The surrogate ID exists, but inventory
// lookups are keyed by the natural (brand, name, size) identity.
type Product struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Brand     string    `gorm:"size:100;not null;uniqueIndex:idx_product_identity,priority:1" json:"brand" binding:"required"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_product_identity,priority:2" json:"name" binding:"required"`
	Size      string    `gorm:"size:20;not null;uniqueIndex:idx_product_identity,priority:3" json:"size" binding:"required"`
	Notes     string    `gorm:"type:text" json:"notes"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Brand string `json:"brand" binding:"required"`
	Name  string `json:"name" binding:"required"`
	Size  string `json:"size" binding:"required"`
	Notes string `json:"notes"`
}

func (input *NewProduct) validate(ctx context.Context, id int) error {
	db := config.GetDB()
	var count int64
	q := db.WithContext(ctx).Model(&Product{}).
		Where("brand = ? AND name = ? AND size = ?", input.Brand, input.Name, input.Size)
	if id > 0 {
		q = q.Where("id <> ?", id)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrProductExists
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}
	product := Product{
		Brand:    input.Brand,
		Name:     input.Name,
		Size:     input.Size,
		Notes:    input.Notes,
		IsActive: utils.NewTrue(),
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		// The pre-check races with concurrent creates; the unique index is
		// the real guard.
		if isDuplicateKeyErr(err) {
			return nil, ErrProductExists
		}
		return nil, err
	}
	return &product, nil
}

func GetProduct(ctx context.Context, id int) (*Product, error) {
	db := config.GetDB()
	var product Product
	if err := db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProductByIdentity resolves the natural key inside the supplied transaction.
func GetProductByIdentity(tx *gorm.DB, brand, name, size string) (*Product, error) {
	var product Product
	err := tx.Where("brand = ? AND name = ? AND size = ?", brand, name, size).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

func ListProducts(ctx context.Context) ([]*Product, error) {
	db := config.GetDB()
	var products []*Product
	if err := db.WithContext(ctx).Order("brand, name, size").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}
