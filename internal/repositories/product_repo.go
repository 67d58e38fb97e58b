package repositories

import (
	"storefront/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	// FindAllByID returns every stocked product whose ID appears in ids, in
	// one batched lookup. Unknown IDs are simply absent from the result;
	// callers detect them by comparing counts.
	FindAllByID(ids []string) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	// UpdateQuantity decrements the stock of every listed product by the
	// requested quantity. Implementations must apply all decrements
	// atomically and must never drive stock below zero.
	UpdateQuantity(items []models.OrderItemRequest) error
	Delete(id string) error
}
