package handlers

import (
	"errors"
	"fmt"
	"log"

	"storefront/internal/models"
	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the order routes with the Fiber app.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", h.HandleCreateOrder)
}

// CreateOrderRequest represents the request body for order creation.
// The customer is taken from the JWT claims; the body carries the items.
type CreateOrderRequest struct {
	CustomerID string                    `json:"customer_id" validate:"omitempty,uuid"`
	Products   []models.OrderItemRequest `json:"products" validate:"required,min=1,dive"`
}

// HandleGetOrders retrieves the authenticated customer's orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	customerID, _ := c.Locals("customer_id").(string)
	if customerID == "" {
		// No auth context (e.g. route mounted without the JWT middleware);
		// fall back to listing everything.
		orders, err := h.service.GetAllOrders()
		if err != nil {
			log.Printf("Error getting all orders: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"message": "Could not retrieve orders",
				"error":   err.Error(),
			})
		}
		return c.JSON(orders)
	}

	orders, err := h.service.GetOrdersByCustomerID(customerID)
	if err != nil {
		log.Printf("Error getting orders for customer %s: %v", customerID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve orders",
			"error":   err.Error(),
		})
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrderByID(orderID)
	if err != nil {
		log.Printf("Error getting order by ID %s: %v", orderID, err)
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": fmt.Sprintf("Order with ID %s not found", orderID),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not retrieve order",
			"error":   err.Error(),
		})
	}
	return c.JSON(order)
}

// HandleCreateOrder creates a new order for the authenticated customer.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing request body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}

	// Prefer the authenticated customer over whatever the body claims.
	customerID, _ := c.Locals("customer_id").(string)
	if customerID == "" {
		customerID = req.CustomerID
	}
	if customerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "A customer is required for an order.",
		})
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors := err.(validator.ValidationErrors)
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errorMessages,
		})
	}

	createdOrder, err := h.service.CreateOrder(customerID, req.Products)
	if err != nil {
		log.Printf("Error creating order for customer %s: %v", customerID, err)

		var stockErr *services.InsufficientStockError
		switch {
		case errors.Is(err, services.ErrCustomerNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "Customer not found",
				"error":   err.Error(),
			})
		case errors.Is(err, services.ErrProductNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"message": "One of the requested products was not found",
				"error":   err.Error(),
			})
		case errors.As(err, &stockErr):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"message": "Order creation failed due to insufficient stock.",
				"product": stockErr.ProductName,
				"error":   err.Error(),
			})
		case errors.Is(err, services.ErrEmptyOrder):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"message": "At least one item is required for an order.",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Could not create order",
			"error":   err.Error(),
		})
	}

	// Return the created order with its new ID and a 201 Created status
	return c.Status(fiber.StatusCreated).JSON(createdOrder)
}
