package services_test

import (
	"errors"
	"fmt"
	"testing"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetAll() ([]models.Order, error) {
	args := m.Called()
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByID(id string) (*models.Order, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) GetByCustomerID(customerID string) ([]models.Order, error) {
	args := m.Called(customerID)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) Create(order *models.Order) error {
	args := m.Called(order)
	return args.Error(0)
}

// MockCustomerRepository is a mock implementation of repositories.CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(customer *models.Customer) error {
	args := m.Called(customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) GetByEmail(email string) (*models.Customer, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

func (m *MockCustomerRepository) GetByID(id string) (*models.Customer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Customer), args.Error(1)
}

// MockEventPublisher records order.created events published by the service.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishOrderCreated(orderData map[string]interface{}) error {
	args := m.Called(orderData)
	return args.Error(0)
}

func newOrderServiceForTest() (*services.OrderService, *MockOrderRepository, *MockProductRepository, *MockCustomerRepository, *MockEventPublisher) {
	orderRepo := new(MockOrderRepository)
	productRepo := new(MockProductRepository)
	customerRepo := new(MockCustomerRepository)
	events := new(MockEventPublisher)
	service := services.NewOrderService(orderRepo, productRepo, customerRepo, events)
	return service, orderRepo, productRepo, customerRepo, events
}

func TestOrderService_CreateOrder_Success(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, events := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	product := models.Product{ID: "prod-1", Name: "Laptop", Price: 5.0, Stock: 10}
	items := []models.OrderItemRequest{{ProductID: "prod-1", Quantity: 3}}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1"}).Return([]models.Product{product}, nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	productRepo.On("UpdateQuantity", items).Return(nil).Once()
	events.On("PublishOrderCreated", mock.Anything).Return(nil).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "cust-1", order.CustomerID)
	assert.Len(t, order.Items, 1)
	assert.Equal(t, "prod-1", order.Items[0].ProductID)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 5.0, order.Items[0].Price) // Price snapshot at lookup time
	assert.Equal(t, 15.0, order.TotalAmount)

	orderRepo.AssertExpectations(t)
	productRepo.AssertExpectations(t)
	customerRepo.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestOrderService_CreateOrder_PriceSnapshotPerProduct(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, events := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	stocked := []models.Product{
		{ID: "prod-1", Name: "Laptop", Price: 1200.00, Stock: 10},
		{ID: "prod-2", Name: "Mouse", Price: 25.00, Stock: 50},
	}
	items := []models.OrderItemRequest{
		{ProductID: "prod-1", Quantity: 1},
		{ProductID: "prod-2", Quantity: 2},
	}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1", "prod-2"}).Return(stocked, nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	productRepo.On("UpdateQuantity", items).Return(nil).Once()
	events.On("PublishOrderCreated", mock.Anything).Return(nil).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.NoError(t, err)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 1200.00, order.Items[0].Price)
	assert.Equal(t, 25.00, order.Items[1].Price)
	assert.Equal(t, 1250.00, order.TotalAmount)
	productRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_CustomerNotFound(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	customerRepo.On("GetByID", "cust-9").
		Return(nil, fmt.Errorf("customer with ID cust-9: %w", repositories.ErrNotFound)).Once()

	order, err := service.CreateOrder("cust-9", []models.OrderItemRequest{{ProductID: "prod-1", Quantity: 1}})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, services.ErrCustomerNotFound)

	// No persistence side effect of any kind.
	productRepo.AssertNotCalled(t, "FindAllByID", mock.Anything)
	productRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
	customerRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_CustomerLookupFailure(t *testing.T) {
	service, _, _, customerRepo, _ := newOrderServiceForTest()

	customerRepo.On("GetByID", "cust-1").Return(nil, fmt.Errorf("connection refused")).Once()

	order, err := service.CreateOrder("cust-1", []models.OrderItemRequest{{ProductID: "prod-1", Quantity: 1}})

	assert.Nil(t, order)
	assert.Error(t, err)
	// A storage failure is not the same thing as a missing customer.
	assert.False(t, errors.Is(err, services.ErrCustomerNotFound))
	customerRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_ProductNotFound(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	items := []models.OrderItemRequest{
		{ProductID: "prod-1", Quantity: 1},
		{ProductID: "prod-missing", Quantity: 1},
	}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	// Only one of the two requested products exists.
	productRepo.On("FindAllByID", []string{"prod-1", "prod-missing"}).
		Return([]models.Product{{ID: "prod-1", Name: "Laptop", Price: 10.0, Stock: 5}}, nil).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.Nil(t, order)
	assert.ErrorIs(t, err, services.ErrProductNotFound)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
	productRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything)
	productRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_InsufficientStock(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	product := models.Product{ID: "prod-1", Name: "Laptop", Price: 5.0, Stock: 2}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1"}).Return([]models.Product{product}, nil).Once()

	order, err := service.CreateOrder("cust-1", []models.OrderItemRequest{{ProductID: "prod-1", Quantity: 5}})

	assert.Nil(t, order)
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Laptop", stockErr.ProductName)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
	productRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything)
}

func TestOrderService_CreateOrder_InsufficientStockLeavesValidSiblingsUntouched(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	stocked := []models.Product{
		{ID: "prod-1", Name: "Laptop", Price: 1200.00, Stock: 10},
		{ID: "prod-2", Name: "Mouse", Price: 25.00, Stock: 1},
	}
	items := []models.OrderItemRequest{
		{ProductID: "prod-1", Quantity: 2}, // valid on its own
		{ProductID: "prod-2", Quantity: 3}, // exceeds stock
	}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1", "prod-2"}).Return(stocked, nil).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.Nil(t, order)
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Mouse", stockErr.ProductName)

	// The valid sibling must not be decremented either.
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
	productRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything)
}

func TestOrderService_CreateOrder_DuplicateProductValidatedSequentially(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	product := models.Product{ID: "prod-1", Name: "Laptop", Price: 5.0, Stock: 5}
	// Each entry fits the original stock of 5, but the second entry is
	// checked against the figure already reduced by the first.
	items := []models.OrderItemRequest{
		{ProductID: "prod-1", Quantity: 3},
		{ProductID: "prod-1", Quantity: 3},
	}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1"}).Return([]models.Product{product}, nil).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.Nil(t, order)
	var stockErr *services.InsufficientStockError
	assert.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
	productRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything)
}

func TestOrderService_CreateOrder_DuplicateProductWithinStock(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, events := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	product := models.Product{ID: "prod-1", Name: "Laptop", Price: 5.0, Stock: 5}
	items := []models.OrderItemRequest{
		{ProductID: "prod-1", Quantity: 2},
		{ProductID: "prod-1", Quantity: 3},
	}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1"}).Return([]models.Product{product}, nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	// The durable decrement receives one entry per request pair, not a
	// merged total.
	productRepo.On("UpdateQuantity", items).Return(nil).Once()
	events.On("PublishOrderCreated", mock.Anything).Return(nil).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.NoError(t, err)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 3, order.Items[1].Quantity)
	assert.Equal(t, 25.0, order.TotalAmount)
	productRepo.AssertExpectations(t)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_InternalConsistency(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	// The lookup returns the right number of products but for the wrong ID,
	// breaking the repository contract: the count check passes yet the
	// requested product cannot be located.
	productRepo.On("FindAllByID", []string{"prod-1"}).
		Return([]models.Product{{ID: "prod-other", Name: "Imposter", Price: 1.0, Stock: 9}}, nil).Once()

	order, err := service.CreateOrder("cust-1", []models.OrderItemRequest{{ProductID: "prod-1", Quantity: 1}})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, services.ErrInternalConsistency)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
	productRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything)
	productRepo.AssertExpectations(t)
}

func TestOrderService_CreateOrder_EmptyItems(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	order, err := service.CreateOrder("cust-1", nil)

	assert.Nil(t, order)
	assert.ErrorIs(t, err, services.ErrEmptyOrder)
	customerRepo.AssertNotCalled(t, "GetByID", mock.Anything)
	productRepo.AssertNotCalled(t, "FindAllByID", mock.Anything)
	orderRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestOrderService_CreateOrder_OrderPersistFailure(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, _ := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	product := models.Product{ID: "prod-1", Name: "Laptop", Price: 5.0, Stock: 10}
	items := []models.OrderItemRequest{{ProductID: "prod-1", Quantity: 3}}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1"}).Return([]models.Product{product}, nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(fmt.Errorf("database error")).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.Nil(t, order)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database error")
	// Stock must not be decremented if the order itself did not persist.
	productRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything)
}

func TestOrderService_CreateOrder_PublishFailureDoesNotFailOrder(t *testing.T) {
	service, orderRepo, productRepo, customerRepo, events := newOrderServiceForTest()

	customer := &models.Customer{ID: "cust-1", Name: "Alice Doe", Email: "alice@example.com"}
	product := models.Product{ID: "prod-1", Name: "Laptop", Price: 5.0, Stock: 10}
	items := []models.OrderItemRequest{{ProductID: "prod-1", Quantity: 1}}

	customerRepo.On("GetByID", "cust-1").Return(customer, nil).Once()
	productRepo.On("FindAllByID", []string{"prod-1"}).Return([]models.Product{product}, nil).Once()
	orderRepo.On("Create", mock.AnythingOfType("*models.Order")).Return(nil).Once()
	productRepo.On("UpdateQuantity", items).Return(nil).Once()
	events.On("PublishOrderCreated", mock.Anything).Return(fmt.Errorf("broker unavailable")).Once()

	order, err := service.CreateOrder("cust-1", items)

	assert.NoError(t, err)
	assert.NotNil(t, order)
	events.AssertExpectations(t)
}

func TestOrderService_GetOrderByID(t *testing.T) {
	service, orderRepo, _, _, _ := newOrderServiceForTest()

	expected := &models.Order{ID: "order-1", CustomerID: "cust-1"}
	orderRepo.On("GetByID", "order-1").Return(expected, nil).Once()

	order, err := service.GetOrderByID("order-1")
	assert.NoError(t, err)
	assert.Equal(t, expected, order)

	orderRepo.On("GetByID", "order-9").
		Return(nil, fmt.Errorf("order with ID order-9: %w", repositories.ErrNotFound)).Once()
	order, err = service.GetOrderByID("order-9")
	assert.Nil(t, order)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	orderRepo.AssertExpectations(t)
}

func TestOrderService_GetOrdersByCustomerID(t *testing.T) {
	service, orderRepo, _, _, _ := newOrderServiceForTest()

	expected := []models.Order{{ID: "order-1", CustomerID: "cust-1"}}
	orderRepo.On("GetByCustomerID", "cust-1").Return(expected, nil).Once()

	orders, err := service.GetOrdersByCustomerID("cust-1")
	assert.NoError(t, err)
	assert.Equal(t, expected, orders)
	orderRepo.AssertExpectations(t)
}
