// Package session stores per-user web session state keyed by an opaque cookie value.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a Store when the session does not exist or has expired
var ErrNotFound = errors.New("session not found")

// Session holds the attributes of one user's web session
type Session struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  time.Time         `json:"created_at"`
	ExpiresAt  time.Time         `json:"expires_at"`
}

// New creates a session that expires after ttl
func New(id string, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:         id,
		Attributes: make(map[string]string),
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
}

// Get returns the attribute value and whether it was set
func (s *Session) Get(key string) (string, bool) {
	if s == nil || s.Attributes == nil {
		return "", false
	}
	v, ok := s.Attributes[key]
	return v, ok
}

// Set stores an attribute value
func (s *Session) Set(key, value string) {
	if s.Attributes == nil {
		s.Attributes = make(map[string]string)
	}
	s.Attributes[key] = value
}

// Expired reports whether the session is past its expiry at t
func (s *Session) Expired(t time.Time) bool {
	return !s.ExpiresAt.IsZero() && !t.Before(s.ExpiresAt)
}

// Store persists sessions
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
