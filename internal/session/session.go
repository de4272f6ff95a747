// Package session is the in-process session layer for the storefront and the
// admin panel. Sessions live in memory only; everything worth keeping across
// a restart (carts, orders, users) is persisted through the document store.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/google/uuid"
)

const btreeDegree = 32

// Roles attached to an authenticated session.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Session is one browser session, identified by an opaque token.
type Session struct {
	Token     string
	UserID    string // document id of the logged-in user, empty while anonymous
	Email     string
	Role      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Authenticated reports whether a user has logged in on this session.
func (s Session) Authenticated() bool { return s.UserID != "" }

// IsAdmin reports whether the session belongs to an admin panel user.
func (s Session) IsAdmin() bool { return s.Authenticated() && s.Role == RoleAdmin }

// expiryKey orders sessions by expiry time so the sweeper only visits the
// expired prefix of the tree instead of scanning every live session.
type expiryKey struct {
	at    time.Time
	token string
}

func expiryLess(a, b expiryKey) bool {
	if !a.at.Equal(b.at) {
		return a.at.Before(b.at)
	}
	return a.token < b.token
}

// Manager owns all live sessions. Lookups treat an expired session as
// missing; a periodic sweep physically removes expired entries.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]Session
	byExpiry *btree.BTreeG[expiryKey]

	ttl        time.Duration
	sweepEvery time.Duration
	quit       chan struct{}
	wg         sync.WaitGroup
}

// NewManager creates a session manager issuing sessions valid for ttl.
func NewManager(ttl, sweepEvery time.Duration) *Manager {
	return &Manager{
		sessions:   make(map[string]Session),
		byExpiry:   btree.NewG[expiryKey](btreeDegree, expiryLess),
		ttl:        ttl,
		sweepEvery: sweepEvery,
		quit:       make(chan struct{}),
	}
}

// Create issues a fresh anonymous session.
func (m *Manager) Create() Session {
	now := time.Now()
	sess := Session{
		Token:     uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[sess.Token] = sess
	m.byExpiry.ReplaceOrInsert(expiryKey{at: sess.ExpiresAt, token: sess.Token})
	m.mu.Unlock()

	slog.Debug("Session created", "token", sess.Token)
	return sess
}

// Get returns the live session for a token. Expired sessions are reported as
// missing even before the sweeper removes them.
func (m *Manager) Get(token string) (Session, bool) {
	m.mu.RLock()
	sess, found := m.sessions[token]
	m.mu.RUnlock()
	if !found || time.Now().After(sess.ExpiresAt) {
		return Session{}, false
	}
	return sess, true
}

// Login binds a user identity to an existing session.
func (m *Manager) Login(token, userID, email, role string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, found := m.sessions[token]
	if !found || time.Now().After(sess.ExpiresAt) {
		return Session{}, false
	}
	sess.UserID = userID
	sess.Email = email
	sess.Role = role
	m.sessions[token] = sess
	slog.Debug("Session authenticated", "token", token, "role", role)
	return sess, true
}

// Logout drops the user identity but keeps the session (and its cart) alive.
func (m *Manager) Logout(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, found := m.sessions[token]
	if !found {
		return
	}
	sess.UserID = ""
	sess.Email = ""
	sess.Role = ""
	m.sessions[token] = sess
}

// Destroy removes a session entirely.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, found := m.sessions[token]
	if !found {
		return
	}
	delete(m.sessions, token)
	m.byExpiry.Delete(expiryKey{at: sess.ExpiresAt, token: token})
}

// Len returns the number of sessions currently held, expired or not.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes every expired session and returns how many were dropped.
func (m *Manager) Sweep() int {
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []expiryKey
	m.byExpiry.AscendLessThan(expiryKey{at: now}, func(key expiryKey) bool {
		expired = append(expired, key)
		return true
	})
	for _, key := range expired {
		delete(m.sessions, key.token)
		m.byExpiry.Delete(key)
	}

	if len(expired) > 0 {
		slog.Info("Session sweep removed expired sessions", "count", len(expired))
	}
	return len(expired)
}

// Start launches the background sweeper.
func (m *Manager) Start() {
	if m.sweepEvery <= 0 {
		slog.Info("Session sweeper disabled")
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-m.quit:
				slog.Info("Session sweeper received quit signal. Stopping.")
				return
			}
		}
	}()
}

// Stop terminates the background sweeper and waits for it to exit.
func (m *Manager) Stop() {
	close(m.quit)
	m.wg.Wait()
}
