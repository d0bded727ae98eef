// Package server exposes the trading web tier over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/Aidin1998/tradealerts/internal/alerts"
	"github.com/Aidin1998/tradealerts/internal/config"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "tradealerts"

// Server represents the HTTP server
type Server struct {
	logger  *zap.Logger
	cfg     *config.Config
	filter  *alerts.OrdersAlertFilter
	app     *AppHandler
	runtime *config.Runtime

	router     *gin.Engine
	httpServer *http.Server
}

// New creates the HTTP server and registers its routes
func New(
	logger *zap.Logger,
	cfg *config.Config,
	filter *alerts.OrdersAlertFilter,
	app *AppHandler,
	runtime *config.Runtime,
) *Server {
	s := &Server{
		logger:  logger.Named("server"),
		cfg:     cfg,
		filter:  filter,
		app:     app,
		runtime: runtime,
	}
	s.router = s.newRouter()
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}
	return s
}

// Router returns the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) newRouter() *gin.Engine {
	router := gin.New()

	router.Use(ginzap.Ginzap(s.logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(s.logger, true))
	router.Use(otelgin.Middleware(serviceName))
	router.Use(cors.New(corsConfig(s.cfg.Server.AllowedOrigins)))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.Any(s.cfg.Trade.AppPath, s.filter.Handler(), s.app.Handle)

	admin := router.Group("/admin")
	{
		admin.GET("/config", s.handleGetConfig)
		admin.PUT("/config", s.handleUpdateConfig)
	}
	router.NoRoute(notFound)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Start serves until Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

type configView struct {
	DisplayOrderAlerts bool `json:"display_order_alerts"`
}

type configUpdate struct {
	DisplayOrderAlerts *bool `json:"display_order_alerts" binding:"required"`
}

func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, configView{DisplayOrderAlerts: s.runtime.DisplayOrderAlerts()})
}

func (s *Server) handleUpdateConfig(c *gin.Context) {
	var req configUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	previous := s.runtime.SetDisplayOrderAlerts(*req.DisplayOrderAlerts)
	if previous != *req.DisplayOrderAlerts {
		s.logger.Info("Display order alerts changed by admin",
			zap.Bool("previous", previous),
			zap.Bool("current", *req.DisplayOrderAlerts),
			zap.String("client_ip", c.ClientIP()))
	}
	c.JSON(http.StatusOK, configView{DisplayOrderAlerts: *req.DisplayOrderAlerts})
}
