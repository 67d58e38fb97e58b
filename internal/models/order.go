package models

import "time"

// OrderItemRequest is a requested (product, quantity) pair within an
// order-creation request. Quantities are validated against current stock.
type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

// OrderItem represents a single item within an order. The price is a
// snapshot taken at order-creation time and does not follow later
// product price changes.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey"`
	OrderID   string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // Price at the time of order
}

// Order represents a customer order.
type Order struct {
	ID          string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CustomerID  string      `json:"customer_id" gorm:"index;type:varchar(36)"`
	Items       []OrderItem `json:"items" gorm:"foreignKey:OrderID"`
	TotalAmount float64     `json:"total_amount"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
