// Package config provides configuration loading, validation and the
// process-wide runtime settings for the trade alerts web tier.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/Aidin1998/tradealerts/internal/database"
	"github.com/Aidin1998/tradealerts/internal/session"
	"github.com/Aidin1998/tradealerts/internal/trading/model"
	"github.com/Aidin1998/tradealerts/pkg/logger"
	"github.com/Aidin1998/tradealerts/pkg/telemetry"
	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment" validate:"required,oneof=development staging production test"`

	Server      ServerConfig         `mapstructure:"server" yaml:"server"`
	Logging     logger.Config        `mapstructure:"logging" yaml:"logging"`
	Trade       TradeConfig          `mapstructure:"trade" yaml:"trade"`
	Diagnostics DiagnosticsConfig    `mapstructure:"diagnostics" yaml:"diagnostics"`
	Database    database.Config      `mapstructure:"database" yaml:"database"`
	Redis       database.RedisConfig `mapstructure:"redis" yaml:"redis"`
	Session     session.Config       `mapstructure:"session" yaml:"session"`
	Telemetry   telemetry.Config     `mapstructure:"telemetry" yaml:"telemetry"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host" yaml:"host"`
	Port              int           `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"required"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"required"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout" validate:"required"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required"`
	AllowedOrigins    []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// TradeConfig holds the trading web tier settings
type TradeConfig struct {
	// RuntimeMode selects where closed orders are looked up
	RuntimeMode string `mapstructure:"runtime_mode" yaml:"runtime_mode" validate:"required,oneof=direct memory"`
	// DisplayOrderAlerts is the initial value of the runtime flag; it can be
	// flipped later through a config file reload or the admin endpoint.
	DisplayOrderAlerts bool   `mapstructure:"display_order_alerts" yaml:"display_order_alerts"`
	AppPath            string `mapstructure:"app_path" yaml:"app_path" validate:"required,startswith=/"`
	// Seed is loaded into the order store once at startup
	Seed []OrderFixture `mapstructure:"seed" yaml:"seed" validate:"dive"`
}

// OrderFixture describes an order to create at startup. Status defaults to
// CLOSED so the user sees it as an alert on their next request.
type OrderFixture struct {
	UserID   string `mapstructure:"user_id" yaml:"user_id" validate:"required"`
	Symbol   string `mapstructure:"symbol" yaml:"symbol" validate:"required"`
	Type     string `mapstructure:"type" yaml:"type" validate:"required,oneof=BUY SELL"`
	Quantity string `mapstructure:"quantity" yaml:"quantity" validate:"required,numeric"`
	Price    string `mapstructure:"price" yaml:"price" validate:"required,numeric"`
	Status   string `mapstructure:"status" yaml:"status" validate:"omitempty,oneof=OPEN PROCESSING CLOSED COMPLETED CANCELLED"`
}

// Order builds a fresh order from the fixture
func (f OrderFixture) Order() (*model.Order, error) {
	quantity, err := decimal.NewFromString(f.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q: %w", f.Quantity, err)
	}
	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %q: %w", f.Price, err)
	}

	o := model.NewOrder(strings.TrimSpace(f.UserID), f.Symbol, f.Type, quantity, price)
	o.Status = model.OrderStatusClosed
	if f.Status != "" {
		o.Status = f.Status
	}
	return o, nil
}

// SeedOrders builds the configured fixtures
func (t TradeConfig) SeedOrders() ([]*model.Order, error) {
	orders := make([]*model.Order, 0, len(t.Seed))
	for i, f := range t.Seed {
		o, err := f.Order()
		if err != nil {
			return nil, fmt.Errorf("trade.seed[%d]: %w", i, err)
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// DiagnosticsConfig holds the synthetic load knobs. They are read once at
// startup and never reloaded.
type DiagnosticsConfig struct {
	DriveMemory  int `mapstructure:"drive_memory" yaml:"drive_memory" validate:"min=0"`
	DriveLatency int `mapstructure:"drive_latency" yaml:"drive_latency" validate:"min=0"`
}

// Addr returns the listen address
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
