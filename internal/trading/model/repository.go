package model

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the order storage operations the web tier relies on
type Repository interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error
	// CompleteClosedOrders returns the user's CLOSED orders and marks them
	// COMPLETED in the same unit of work, so each one is handed out once.
	CompleteClosedOrders(ctx context.Context, userID string) ([]*Order, error)
}
