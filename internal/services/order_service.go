package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"storefront/internal/models"
	"storefront/internal/repositories"

	"github.com/google/uuid"
)

// Failure conditions of order creation. Handlers translate these into
// HTTP responses with errors.Is / errors.As.
var (
	// ErrCustomerNotFound is returned when the given customer ID has no
	// matching record.
	ErrCustomerNotFound = errors.New("customer does not exist")
	// ErrProductNotFound is returned when at least one requested product ID
	// has no matching stocked product. The lookup is batched, so only the
	// aggregate shortfall is detected, not the specific missing ID.
	ErrProductNotFound = errors.New("one of the requested products does not exist")
	// ErrEmptyOrder is returned when the request contains no items.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrInternalConsistency signals a repository contract violation: a
	// product passed the batch count check but could not be located by ID.
	ErrInternalConsistency = errors.New("product lookup returned an inconsistent result set")
)

// InsufficientStockError is returned when a product's requested quantity
// exceeds its stocked quantity.
type InsufficientStockError struct {
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s (requested: %d, available: %d)", e.ProductName, e.Requested, e.Available)
}

// OrderEventPublisher publishes order lifecycle events to the message
// broker. *rabbitmq.Client satisfies this; tests substitute a recorder.
type OrderEventPublisher interface {
	PublishOrderCreated(orderData map[string]interface{}) error
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo    repositories.OrderRepository
	productRepo  repositories.ProductRepository
	customerRepo repositories.CustomerRepository
	events       OrderEventPublisher // nil disables event publishing
}

// NewOrderService creates a new OrderService.
func NewOrderService(orderRepo repositories.OrderRepository, productRepo repositories.ProductRepository, customerRepo repositories.CustomerRepository, events OrderEventPublisher) *OrderService {
	return &OrderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		events:       events,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders() ([]models.Order, error) {
	return s.orderRepo.GetAll()
}

// GetOrderByID retrieves a single order by its ID.
func (s *OrderService) GetOrderByID(id string) (*models.Order, error) {
	return s.orderRepo.GetByID(id)
}

// GetOrdersByCustomerID retrieves all orders placed by a customer.
func (s *OrderService) GetOrdersByCustomerID(customerID string) ([]models.Order, error) {
	return s.orderRepo.GetByCustomerID(customerID)
}

// CreateOrder validates the customer and the requested products, snapshots
// prices, persists the order with its line items, and decrements stock.
// No persistence side effect occurs if any validation fails.
func (s *OrderService) CreateOrder(customerID string, items []models.OrderItemRequest) (*models.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyOrder
	}

	customer, err := s.customerRepo.GetByID(customerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to look up customer %s: %w", customerID, err)
	}

	// Batch-fetch every distinct requested product in one lookup.
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	stocked, err := s.productRepo.FindAllByID(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to look up products: %w", err)
	}
	if len(stocked) < len(ids) {
		return nil, ErrProductNotFound
	}

	byID := make(map[string]*models.Product, len(stocked))
	for i := range stocked {
		byID[stocked[i].ID] = &stocked[i]
	}

	// Validate each requested entry in request order, decrementing the
	// fetched stock figure as we go. A duplicate product ID later in the
	// same request is therefore checked against the already-reduced stock,
	// not the original figure.
	orderItems := make([]models.OrderItem, 0, len(items))
	var totalAmount float64
	for _, item := range items {
		product, ok := byID[item.ProductID]
		if !ok {
			// Unreachable given the count check above; signals a broken
			// repository contract rather than bad input.
			return nil, ErrInternalConsistency
		}

		if product.Stock < item.Quantity {
			return nil, &InsufficientStockError{
				ProductName: product.Name,
				Requested:   item.Quantity,
				Available:   product.Stock,
			}
		}
		product.Stock -= item.Quantity

		orderItems = append(orderItems, models.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price, // Price snapshot at order-creation time
		})
		totalAmount += product.Price * float64(item.Quantity)
	}

	newOrder := &models.Order{
		ID:          uuid.New().String(),
		CustomerID:  customer.ID,
		Items:       orderItems,
		TotalAmount: totalAmount,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if err := s.orderRepo.Create(newOrder); err != nil {
		return nil, fmt.Errorf("failed to create order in repository: %w", err)
	}

	// Apply the durable decrement with the original requested quantities;
	// the in-memory figures above were only for validation.
	if err := s.productRepo.UpdateQuantity(items); err != nil {
		return nil, fmt.Errorf("failed to update product stock: %w", err)
	}

	// Publish an order.created event. Publishing is best-effort: the order
	// is already committed, so a broker failure only logs.
	if s.events != nil {
		event := map[string]interface{}{
			"orderID":    newOrder.ID,
			"customerID": newOrder.CustomerID,
			"total":      newOrder.TotalAmount,
			"items":      len(newOrder.Items),
		}
		if err := s.events.PublishOrderCreated(event); err != nil {
			log.Printf("Warning: Failed to publish order created event for order %s: %v", newOrder.ID, err)
		}
	}

	return newOrder, nil
}
