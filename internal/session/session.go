// Package session owns the in-memory carts. Each terminal session holds
// exactly one checkout transaction; presentation code never touches a cart
// directly, it always goes through the session's transaction.
package session

import (
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/cart"
	"github.com/vendalivre/pos-engine/internal/domain/checkout"
)

// ErrNotFound is returned when a session id is unknown or already evicted.
var ErrNotFound = errors.New("session not found")

// DefaultIdleTimeout is how long a session may sit untouched before Evict
// removes it.
const DefaultIdleTimeout = 2 * time.Hour

// Session pairs a transaction with its bookkeeping. The session mutex
// serializes all access to the transaction; lastSeen is guarded by the
// manager mutex.
type Session struct {
	ID       string
	Tx       *checkout.Transaction
	mu       sync.Mutex
	lastSeen time.Time
}

// Manager is a registry of live sessions. The manager mutex guards only the
// map; each session carries its own lock, so concurrent HTTP requests for
// the same session cannot interleave cart mutations while a slow checkout
// on one terminal never blocks another terminal's cart.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	taxRate decimal.Decimal
	idle    time.Duration
	now     func() time.Time
}

// NewManager creates a session manager. Every new cart starts with the given
// terminal-level tax rate.
func NewManager(taxRate decimal.Decimal) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		taxRate:  taxRate,
		idle:     DefaultIdleTimeout,
		now:      time.Now,
	}
}

// Create starts a new session with an empty cart and returns its id.
func (m *Manager) Create() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.sessions[id] = &Session{
		ID:       id,
		Tx:       checkout.NewTransaction(cart.New(m.taxRate)),
		lastSeen: m.now(),
	}
	return id
}

// With looks up the session and runs fn on its transaction under that
// session's lock. It returns ErrNotFound for unknown ids; otherwise it
// returns fn's error.
func (m *Manager) With(id string, fn func(tx *checkout.Transaction) error) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// The sweep may have evicted the session between the map lookup and
	// acquiring its lock.
	m.mu.Lock()
	_, live := m.sessions[id]
	if live {
		s.lastSeen = m.now()
	}
	m.mu.Unlock()
	if !live {
		return ErrNotFound
	}

	return fn(s.Tx)
}

// Remove drops a session. Removing an unknown id is a no-op.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Evict removes sessions idle longer than the timeout and returns how many
// were dropped. Finalized and cancelled transactions are evicted regardless
// of age.
func (m *Manager) Evict() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	dropped := 0
	for id, s := range m.sessions {
		done := s.Tx.State() == checkout.StateFinalized || s.Tx.State() == checkout.StateCancelled
		if done || now.Sub(s.lastSeen) > m.idle {
			delete(m.sessions, id)
			dropped++
		}
	}
	return dropped
}
