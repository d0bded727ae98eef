package trading

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Aidin1998/tradealerts/internal/trading/model"
	"github.com/Aidin1998/tradealerts/internal/trading/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Runtime modes the order lookup can be served by
const (
	RuntimeModeDirect = "direct"
	RuntimeModeMemory = "memory"
)

var (
	ErrUnknownRuntimeMode = errors.New("unknown trade runtime mode")
	ErrInvalidUserID      = errors.New("invalid user id")
)

var closedOrdersDelivered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "tradealerts",
		Subsystem: "trading",
		Name:      "closed_orders_delivered_total",
		Help:      "Closed orders handed out for alerting, by runtime mode",
	},
	[]string{"mode"},
)

// Service serves the web tier's order lookups over an order repository
type Service struct {
	logger *zap.Logger
	repo   model.Repository
	mode   string
}

// NewService creates a new trading service
func NewService(logger *zap.Logger, repo model.Repository, mode string) *Service {
	return &Service{
		logger: logger.With(zap.String("trade_runtime_mode", mode)),
		repo:   repo,
		mode:   mode,
	}
}

// Mode returns the runtime mode this service was selected for
func (s *Service) Mode() string { return s.mode }

// Repository exposes the backing repository
func (s *Service) Repository() model.Repository { return s.repo }

// GetClosedOrders returns the user's newly closed orders and marks them completed
func (s *Service) GetClosedOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUserID
	}

	orders, err := s.repo.CompleteClosedOrders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get closed orders for %s: %w", userID, err)
	}

	if len(orders) > 0 {
		closedOrdersDelivered.WithLabelValues(s.mode).Add(float64(len(orders)))
		s.logger.Debug("Closed orders completed",
			zap.String("user_id", userID),
			zap.Int("count", len(orders)))
	}
	return orders, nil
}

// Seed stores orders created outside the trading flow, such as configured
// fixtures. It stops at the first failure and reports how many were stored.
func (s *Service) Seed(ctx context.Context, orders []*model.Order) (int, error) {
	for i, o := range orders {
		if err := s.repo.CreateOrder(ctx, o); err != nil {
			return i, fmt.Errorf("failed to seed order for %s: %w", o.UserID, err)
		}
	}
	s.logger.Info("Orders seeded", zap.Int("count", len(orders)))
	return len(orders), nil
}

// Deps carries what each runtime mode may need
type Deps struct {
	Logger *zap.Logger
	DB     *gorm.DB
}

// Select resolves the order lookup service for a runtime mode.
func Select(ctx context.Context, mode string, deps Deps) (*Service, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case RuntimeModeDirect:
		if deps.DB == nil {
			return nil, fmt.Errorf("runtime mode %q requires a database", RuntimeModeDirect)
		}
		repo := repository.NewGormRepository(deps.DB, logger)
		if err := repo.AutoMigrate(ctx); err != nil {
			return nil, err
		}
		return NewService(logger, repo, RuntimeModeDirect), nil
	case RuntimeModeMemory:
		return NewService(logger, repository.NewMemoryRepository(), RuntimeModeMemory), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRuntimeMode, mode)
	}
}
