package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	DefaultCookieName = "JSESSIONID"
	DefaultTTL        = 30 * time.Minute
)

// Manager binds a Store to the request's session cookie
type Manager struct {
	store      Store
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Config configures the session cookie and store
type Config struct {
	Store      string        `mapstructure:"store" yaml:"store" validate:"required,oneof=memory redis"`
	CookieName string        `mapstructure:"cookie_name" yaml:"cookie_name" validate:"required"`
	TTL        time.Duration `mapstructure:"ttl" yaml:"ttl" validate:"required"`
	Secure     bool          `mapstructure:"secure" yaml:"secure"`
}

func NewManager(store Store, cfg Config) *Manager {
	m := &Manager{
		store:      store,
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.ttl <= 0 {
		m.ttl = DefaultTTL
	}
	return m
}

// FromRequest returns the request's session, or nil when there is none.
func (m *Manager) FromRequest(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	s, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// Create starts a new session carrying attrs and sets its cookie on the response
func (m *Manager) Create(c *gin.Context, attrs map[string]string) (*Session, error) {
	s := New(uuid.NewString(), m.ttl)
	for k, v := range attrs {
		s.Set(k, v)
	}
	if err := m.store.Save(c.Request.Context(), s); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, s.ID, int(m.ttl.Seconds()), "/", "", m.secure, true)
	return s, nil
}

// Destroy removes the request's session, if any, and expires its cookie
func (m *Manager) Destroy(c *gin.Context) error {
	cookie, err := c.Request.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
	if err := m.store.Delete(c.Request.Context(), cookie.Value); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}
