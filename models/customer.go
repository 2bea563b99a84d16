package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"bitbucket.org/essenzadr/perfumeria_backend/config"
	"gorm.io/gorm"
)

type Customer struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null;index" json:"name" binding:"required"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Notes string `json:"notes"`
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.New("customer name is required")
	}
	customer := Customer{Name: name, Phone: input.Phone, Notes: input.Notes}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// FindOrCreateCustomer resolves a customer by name at sale time, creating the
// record when no match exists. Matching is case-insensitive on the trimmed name.
func FindOrCreateCustomer(tx *gorm.DB, name string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("customer name is required")
	}
	var customer Customer
	err := tx.Where("LOWER(name) = LOWER(?)", name).First(&customer).Error
	if err == nil {
		return &customer, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	customer = Customer{Name: name}
	if err := tx.Create(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func ListCustomers(ctx context.Context) ([]*Customer, error) {
	db := config.GetDB()
	var customers []*Customer
	if err := db.WithContext(ctx).Order("name").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}
