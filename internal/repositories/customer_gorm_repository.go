package repositories

import (
	"errors"
	"fmt"
	"storefront/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMCustomerRepository is a GORM implementation of CustomerRepository.
type GORMCustomerRepository struct {
	db *gorm.DB
}

// NewGORMCustomerRepository creates a new instance of GORMCustomerRepository.
func NewGORMCustomerRepository(db *gorm.DB) *GORMCustomerRepository {
	return &GORMCustomerRepository{
		db: db,
	}
}

// Create creates a new customer in the database.
func (r *GORMCustomerRepository) Create(customer *models.Customer) error {
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	if err := r.db.Create(customer).Error; err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

// GetByEmail retrieves a customer by their email from the database.
func (r *GORMCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer with email %s: %w", email, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer by email %s: %w", email, err)
	}
	return &customer, nil
}

// GetByID retrieves a customer by their ID from the database.
func (r *GORMCustomerRepository) GetByID(id string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("customer with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get customer by ID %s: %w", id, err)
	}
	return &customer, nil
}
