// Package presence is the single source of truth for "who is online right
// now". The Registry owns all live session state; nothing outside this
// package mutates its entries directly.
package presence

import (
	"sort"
	"sync"
	"time"
)

// SupersededReason is delivered to a connection evicted because the same
// user opened a newer one. It is informational, not an auth failure.
const SupersededReason = "new session opened from another tab"

// CloseReason distinguishes why a live connection is being torn down.
type CloseReason int

const (
	// ReasonSuperseded: a newer session for the same user replaced this one.
	ReasonSuperseded CloseReason = iota
	// ReasonIdle: the sweeper evicted the session for inactivity.
	ReasonIdle
)

// Conn is the opaque transport handle bound to a session. The registry only
// ever signals it; delivery mechanics live with the owner of the handle.
type Conn interface {
	// Send enqueues a payload without blocking. It reports false when the
	// connection can no longer accept traffic.
	Send(payload []byte) bool
	// Terminate signals forced teardown. The signal must reach the
	// connection's event loop promptly and must not be silently dropped
	// even if the connection is mid-send.
	Terminate(reason CloseReason, detail string)
}

// Session is the live state of one authenticated connection. It is owned by
// the registry entry for its user while active.
type Session struct {
	ConnID   string
	UserID   string
	Username string
	Role     string
	Color    string
	Conn     Conn

	mu           sync.Mutex
	lastActivity time.Time
	joinSeq      uint64
}

// NewSession binds a connection handle to an authenticated identity.
func NewSession(connID, userID, username, role string, conn Conn) *Session {
	return &Session{
		ConnID:       connID,
		UserID:       userID,
		Username:     username,
		Role:         role,
		Color:        ColorFor(userID),
		Conn:         conn,
		lastActivity: time.Now(),
	}
}

// Touch refreshes the session's last-activity timestamp.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.lastActivity = now
	s.mu.Unlock()
}

// LastActivity returns the most recent traffic timestamp.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Entry is an immutable snapshot of a registry entry.
type Entry struct {
	ConnID       string
	UserID       string
	Username     string
	Role         string
	Color        string
	LastActivity time.Time
	Conn         Conn

	joinSeq uint64
}

// Registry maps each user id to at most one live session. All mutating
// operations are atomic with respect to each other: two simultaneous
// connection attempts for the same user are serialized here and the loser's
// prior connection is always the one evicted.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	seq      uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Upsert installs the session as the sole entry for its user. When a prior
// entry exists it is swapped out first and its connection receives the
// supersession signal after the registry lock is released, so the signal
// handler can safely call back into the registry.
func (r *Registry) Upsert(s *Session) {
	r.mu.Lock()
	prior := r.sessions[s.UserID]
	r.seq++
	s.joinSeq = r.seq
	r.sessions[s.UserID] = s
	r.mu.Unlock()

	if prior != nil && prior.Conn != nil {
		prior.Conn.Terminate(ReasonSuperseded, SupersededReason)
	}
}

// Remove deletes the entry for userID only if it still belongs to connID.
// It reports whether an entry was removed. The conn id guard keeps a
// superseded connection's teardown from deleting its successor's entry.
func (r *Registry) Remove(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.sessions[userID]
	if !ok || current.ConnID != connID {
		return false
	}
	delete(r.sessions, userID)
	return true
}

// Get returns the live session for userID.
func (r *Registry) Get(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[userID]
	return s, ok
}

// Touch refreshes last-activity for userID's session, if present.
func (r *Registry) Touch(userID string, now time.Time) {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if ok {
		s.Touch(now)
	}
}

// Len reports how many users are currently considered online.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns point-in-time copies of every entry in join order.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.sessions))
	for _, s := range r.sessions {
		entries = append(entries, Entry{
			ConnID:       s.ConnID,
			UserID:       s.UserID,
			Username:     s.Username,
			Role:         s.Role,
			Color:        s.Color,
			LastActivity: s.LastActivity(),
			Conn:         s.Conn,
			joinSeq:      s.joinSeq,
		})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].joinSeq < entries[j].joinSeq
	})
	return entries
}
