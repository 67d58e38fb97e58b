package repositories

import (
	"storefront/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetAll() ([]models.Order, error)
	GetByID(id string) (*models.Order, error)
	GetByCustomerID(customerID string) ([]models.Order, error)
	// Create persists the order together with all of its line items.
	// Implementations must persist the whole tree atomically.
	Create(order *models.Order) error
	// Orders are immutable once created; no update or delete path exists.
}
