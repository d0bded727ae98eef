package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Order types
	OrderTypeBuy  = "BUY"
	OrderTypeSell = "SELL"

	// Order statuses. An order moves OPEN -> PROCESSING -> CLOSED once the trade
	// settles, and CLOSED -> COMPLETED once the user has been alerted about it.
	OrderStatusOpen       = "OPEN"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusClosed     = "CLOSED"
	OrderStatusCompleted  = "COMPLETED"
	OrderStatusCancelled  = "CANCELLED"
)

// Order represents a trade order placed by a user.
type Order struct {
	ID          uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	UserID      string          `json:"user_id" gorm:"index:idx_orders_user_status;not null"`
	Symbol      string          `json:"symbol" gorm:"not null"`
	Type        string          `json:"type" gorm:"not null"`
	Quantity    decimal.Decimal `json:"quantity" gorm:"type:numeric"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric"`
	Status      string          `json:"status" gorm:"index:idx_orders_user_status;not null"`
	OpenedAt    time.Time       `json:"opened_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// TableName pins the table name regardless of naming strategy.
func (Order) TableName() string { return "orders" }

// NewOrder creates an OPEN order with a fresh ID.
func NewOrder(userID, symbol, orderType string, quantity, price decimal.Decimal) *Order {
	return &Order{
		ID:       uuid.New(),
		UserID:   userID,
		Symbol:   symbol,
		Type:     orderType,
		Quantity: quantity,
		Price:    price,
		Status:   OrderStatusOpen,
		OpenedAt: time.Now().UTC(),
	}
}

// IsClosed reports whether the order settled and still awaits an alert.
func (o *Order) IsClosed() bool {
	return o.Status == OrderStatusClosed
}

func (o *Order) String() string {
	return fmt.Sprintf("Order{id=%s user=%s %s %s %s@%s status=%s}",
		o.ID, o.UserID, o.Type, o.Symbol, o.Quantity, o.Price, o.Status)
}
