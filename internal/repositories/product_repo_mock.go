package repositories

import (
	"fmt"
	"sync"

	"storefront/internal/models"

	"github.com/google/uuid"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetAll returns all products.
func (r *MockProductRepository) GetAll() ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, p)
	}
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrNotFound)
	}
	return &product, nil
}

// FindAllByID returns the products matching the given IDs. Duplicate IDs
// yield a single entry, mirroring a SQL IN lookup.
func (r *MockProductRepository) FindAllByID(ids []string) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(ids))
	products := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if product, ok := r.products[id]; ok {
			products = append(products, product)
		}
	}
	return products, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product.
func (r *MockProductRepository) Update(product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s not found for update", product.ID)
	}
	r.products[product.ID] = *product
	return nil
}

// UpdateQuantity decrements stock for every listed product. All decrements
// are checked before any is applied, so a failing entry leaves every
// product untouched.
func (r *MockProductRepository) UpdateQuantity(items []models.OrderItemRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Sum requested quantities per product so duplicate entries are
	// validated against the combined total.
	requested := make(map[string]int, len(items))
	for _, item := range items {
		requested[item.ProductID] += item.Quantity
	}

	for id, qty := range requested {
		product, ok := r.products[id]
		if !ok {
			return fmt.Errorf("product with ID %s not found for stock update", id)
		}
		if product.Stock < qty {
			return fmt.Errorf("product with ID %s has insufficient stock for update (requested: %d, available: %d)", id, qty, product.Stock)
		}
	}

	for id, qty := range requested {
		product := r.products[id]
		product.Stock -= qty
		r.products[id] = product
	}
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s not found for deletion", id)
	}
	delete(r.products, id)
	return nil
}
