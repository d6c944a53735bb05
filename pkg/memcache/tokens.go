package memcache

import (
	"sync"
	"time"
)

// TokenStore holds single-use account tokens (password reset, unlock links).
type TokenStore interface {
	Set(token string, accountEmail string, ttl time.Duration)

	// Consume returns the account email for token if not expired,
	// and removes the token (single-use). Returns "" if missing/expired.
	Consume(token string) string

	Peek(token string) (string, bool)
}

type entry struct {
	email     string
	expiresAt time.Time
}

type Tokens struct {
	mu   sync.RWMutex
	data map[string]entry
}

func NewTokens() *Tokens {
	return &Tokens{
		data: make(map[string]entry),
	}
}

func (s *Tokens) Set(token string, accountEmail string, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[token] = entry{
		email:     accountEmail,
		expiresAt: time.Now().Add(ttl),
	}
}

func (s *Tokens) Consume(token string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[token]
	if !ok {
		return ""
	}
	if time.Now().After(e.expiresAt) {
		delete(s.data, token) // cleanup expired
		return ""
	}
	delete(s.data, token) // single-use
	return e.email
}

func (s *Tokens) Peek(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[token]
	if !ok || time.Now().After(e.expiresAt) {
		return "", false
	}
	return e.email, true
}
