// Package alerts implements the orders alert filter: a best-effort request
// enrichment that attaches a user's newly closed orders for display.
package alerts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/Aidin1998/tradealerts/internal/session"
	"github.com/Aidin1998/tradealerts/internal/trading/model"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// ClosedOrdersKey is the request attribute downstream rendering reads.
	// Its absence means there is nothing to show.
	ClosedOrdersKey = "closedOrders"

	ActionParam    = "action"
	UIDParam       = "uid"
	SessionUserKey = "uidBean"

	ActionLogin  = "login"
	ActionLogout = "logout"
)

// TradeServices is the business lookup the filter depends on
type TradeServices interface {
	GetClosedOrders(ctx context.Context, userID string) ([]*model.Order, error)
}

// Settings exposes the runtime flag gating enrichment. It is read on every request.
type Settings interface {
	DisplayOrderAlerts() bool
}

// SessionSource resolves the request's session. It returns nil, nil when
// the request carries none.
type SessionSource interface {
	FromRequest(r *http.Request) (*session.Session, error)
}

// FilterConfig is bound by Init and released by Destroy
type FilterConfig struct {
	Path string
}

// OrdersAlertFilter enriches requests with closed-order alerts and applies
// the configured synthetic load. It never fails a request.
type OrdersAlertFilter struct {
	logger   *zap.Logger
	trade    TradeServices
	settings Settings
	sessions SessionSource
	diag     Diagnostics

	enrichments metric.Int64Counter

	config atomic.Pointer[FilterConfig]
}

// NewOrdersAlertFilter creates the filter around an already resolved
// TradeServices implementation. Its otel instruments bind to the global
// meter provider.
func NewOrdersAlertFilter(
	logger *zap.Logger,
	trade TradeServices,
	settings Settings,
	sessions SessionSource,
	diag Diagnostics,
) *OrdersAlertFilter {
	f := &OrdersAlertFilter{
		logger:   logger.Named("orders-alert-filter"),
		trade:    trade,
		settings: settings,
		sessions: sessions,
		diag:     diag,
	}
	f.enrichments = newEnrichmentCounter(f.logger)
	diag.warn(f.logger)
	return f
}

// Init binds the filter configuration. Until it is called the filter passes
// every request straight through.
func (f *OrdersAlertFilter) Init(cfg FilterConfig) {
	f.config.Store(&cfg)
	f.logger.Debug("Orders alert filter initialized", zap.String("path", cfg.Path))
}

// Destroy releases the filter configuration
func (f *OrdersAlertFilter) Destroy() {
	f.config.Store(nil)
}

// Initialized reports whether Init has been called without a later Destroy
func (f *OrdersAlertFilter) Initialized() bool {
	return f.config.Load() != nil
}

// Handler adapts the filter to a gin middleware
func (f *OrdersAlertFilter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		f.Do(c, func(c *gin.Context) { c.Next() })
	}
}

// Do runs the filter for one request and then always calls next.
func (f *OrdersAlertFilter) Do(c *gin.Context, next gin.HandlerFunc) {
	if f.config.Load() == nil {
		next(c)
		return
	}

	if f.settings.DisplayOrderAlerts() {
		f.enrich(c)
	} else {
		f.record(c.Request.Context(), resultDisabled)
	}

	f.diag.driveMemory(f.logger)
	f.diag.driveLatency(c.Request.Context(), f.logger)

	next(c)
}

func (f *OrdersAlertFilter) enrich(c *gin.Context) {
	result, err := f.lookup(c)
	if err != nil {
		f.record(c.Request.Context(), resultError)
		f.logger.Error("Error checking for closed orders",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()))
		return
	}
	f.record(c.Request.Context(), result)
}

// lookup converts panics into errors so nothing escapes enrichment.
func (f *OrdersAlertFilter) lookup(c *gin.Context) (result string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()

	action, ok := param(c, ActionParam)
	action = strings.TrimSpace(action)
	if !ok || action == "" || action == ActionLogout {
		return resultSkipped, nil
	}

	userID, err := f.userID(c, action)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(userID) == "" {
		return resultSkipped, nil
	}

	ctx, span := tracer.Start(c.Request.Context(), "orders_alert.enrich",
		trace.WithAttributes(attribute.String("action", action)))
	defer span.End()

	closedOrders, err := f.trade.GetClosedOrders(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "closed orders lookup failed")
		return "", fmt.Errorf("closed orders lookup for %q: %w", userID, err)
	}
	span.SetAttributes(attribute.Int("closed_orders", len(closedOrders)))

	if ce := f.logger.Check(zap.DebugLevel, "Closed orders looked up"); ce != nil {
		ce.Write(
			zap.String("user_id", userID),
			zap.Int("count", len(closedOrders)),
			zap.Any("closed_orders", closedOrders))
	}

	if len(closedOrders) == 0 {
		return resultEmpty, nil
	}
	c.Set(ClosedOrdersKey, closedOrders)
	return resultAttached, nil
}

// userID comes from the uid parameter on login and from the session otherwise.
func (f *OrdersAlertFilter) userID(c *gin.Context, action string) (string, error) {
	if action == ActionLogin {
		uid, _ := param(c, UIDParam)
		return uid, nil
	}

	s, err := f.sessions.FromRequest(c.Request)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	uid, _ := s.Get(SessionUserKey)
	return uid, nil
}

// param reads a request parameter from the query string, then the form body.
func param(c *gin.Context, name string) (string, bool) {
	if v, ok := c.GetQuery(name); ok {
		return v, true
	}
	return c.GetPostForm(name)
}

// ClosedOrders returns the alerts attached to the request by the filter, if any
func ClosedOrders(c *gin.Context) ([]*model.Order, bool) {
	v, ok := c.Get(ClosedOrdersKey)
	if !ok {
		return nil, false
	}
	orders, ok := v.([]*model.Order)
	return orders, ok
}
