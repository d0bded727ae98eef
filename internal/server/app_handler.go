package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Aidin1998/tradealerts/internal/alerts"
	"github.com/Aidin1998/tradealerts/internal/session"
	"github.com/Aidin1998/tradealerts/internal/trading/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Sessions is the subset of session.Manager the app handler needs
type Sessions interface {
	FromRequest(r *http.Request) (*session.Session, error)
	Create(c *gin.Context, attrs map[string]string) (*session.Session, error)
	Destroy(c *gin.Context) error
}

// AppHandler renders the trading app response. It runs after the orders
// alert filter and shows whatever alerts the filter attached.
type AppHandler struct {
	logger   *zap.Logger
	sessions Sessions
}

func NewAppHandler(logger *zap.Logger, sessions Sessions) *AppHandler {
	return &AppHandler{logger: logger.Named("app"), sessions: sessions}
}

type appResponse struct {
	Action       string         `json:"action"`
	User         string         `json:"user,omitempty"`
	ClosedOrders []*model.Order `json:"closedOrders,omitempty"`
}

// Handle serves one app request
func (h *AppHandler) Handle(c *gin.Context) {
	action := strings.TrimSpace(requestParam(c, alerts.ActionParam))
	resp := appResponse{Action: action}

	switch action {
	case alerts.ActionLogin:
		uid := strings.TrimSpace(requestParam(c, alerts.UIDParam))
		if uid == "" {
			badRequest(c, alerts.UIDParam+" is required")
			return
		}
		if _, err := h.sessions.Create(c, map[string]string{alerts.SessionUserKey: uid}); err != nil {
			h.logger.Error("Login failed", zap.String("user_id", uid), zap.Error(err))
			unavailable(c, err)
			return
		}
		resp.User = uid

	case alerts.ActionLogout:
		user, err := h.sessionUser(c)
		if err != nil {
			unavailable(c, err)
			return
		}
		if err := h.sessions.Destroy(c); err != nil {
			h.logger.Error("Logout failed", zap.String("user_id", user), zap.Error(err))
			unavailable(c, err)
			return
		}
		resp.User = user

	default:
		user, err := h.sessionUser(c)
		if err != nil {
			unavailable(c, err)
			return
		}
		resp.User = user
	}

	if orders, ok := alerts.ClosedOrders(c); ok {
		resp.ClosedOrders = orders
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AppHandler) sessionUser(c *gin.Context) (string, error) {
	s, err := h.sessions.FromRequest(c.Request)
	if err != nil {
		return "", fmt.Errorf("failed to load session: %w", err)
	}
	uid, _ := s.Get(alerts.SessionUserKey)
	return uid, nil
}

func requestParam(c *gin.Context, name string) string {
	if v, ok := c.GetQuery(name); ok {
		return v
	}
	return c.PostForm(name)
}
