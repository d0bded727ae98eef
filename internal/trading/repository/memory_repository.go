package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Aidin1998/tradealerts/internal/trading/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MemoryRepository keeps orders in process memory. It backs the "memory"
// runtime mode and tests.
type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]*model.Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders: make(map[uuid.UUID]*model.Order),
	}
}

func (r *MemoryRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

func (r *MemoryRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *MemoryRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = status
	return nil
}

func (r *MemoryRepository) CompleteClosedOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	var closed []*model.Order
	for _, o := range r.orders {
		if o.UserID != userID || !o.IsClosed() {
			continue
		}
		o.Status = model.OrderStatusCompleted
		o.CompletedAt = &now
		cp := *o
		closed = append(closed, &cp)
	}

	sort.Slice(closed, func(i, j int) bool {
		return closed[i].OpenedAt.Before(closed[j].OpenedAt)
	})
	return closed, nil
}
