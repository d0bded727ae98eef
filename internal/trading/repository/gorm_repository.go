package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Aidin1998/tradealerts/internal/trading/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository implements the model.Repository interface using GORM
type GormRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGormRepository creates a new GORM-based repository
func NewGormRepository(db *gorm.DB, logger *zap.Logger) *GormRepository {
	return &GormRepository{
		db:     db,
		logger: logger,
	}
}

// AutoMigrate creates or updates the orders table
func (r *GormRepository) AutoMigrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&model.Order{}); err != nil {
		return fmt.Errorf("failed to migrate orders: %w", err)
	}
	return nil
}

// CreateOrder creates a new order in the database
func (r *GormRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		r.logger.Error("Failed to create order", zap.Error(err), zap.String("order_id", order.ID.String()))
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug("Order created successfully", zap.String("order_id", order.ID.String()))
	return nil
}

// GetOrderByID retrieves an order by its ID
func (r *GormRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// UpdateOrderStatus updates an order's status
func (r *GormRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status)

	if result.Error != nil {
		return fmt.Errorf("failed to update order status: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// CompleteClosedOrders loads the user's CLOSED orders and flips them to
// COMPLETED inside one transaction. An order is returned by at most one call.
func (r *GormRepository) CompleteClosedOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	var closed []*model.Order

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Where("user_id = ? AND status = ?", userID, model.OrderStatusClosed).
			Order("opened_at")
		// sqlite has no row locks and rejects FOR UPDATE
		if tx.Dialector.Name() != "sqlite" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.Find(&closed).Error; err != nil {
			return fmt.Errorf("failed to load closed orders: %w", err)
		}
		if len(closed) == 0 {
			return nil
		}

		// Each row is claimed with a guarded update. Without a row lock
		// (sqlite) another transaction may have completed it since the read,
		// and only rows this transaction flipped are returned.
		now := time.Now().UTC()
		claimed := closed[:0]
		for _, o := range closed {
			result := tx.Model(&model.Order{}).
				Where("id = ? AND status = ?", o.ID, model.OrderStatusClosed).
				Updates(map[string]interface{}{
					"status":       model.OrderStatusCompleted,
					"completed_at": now,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to complete order %s: %w", o.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				r.logger.Debug("Closed order already completed elsewhere", zap.String("order_id", o.ID.String()))
				continue
			}
			o.Status = model.OrderStatusCompleted
			o.CompletedAt = &now
			claimed = append(claimed, o)
		}
		closed = claimed
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to complete closed orders", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}

	return closed, nil
}
