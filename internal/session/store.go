// Package session keeps per-user conversational state in process memory.
package session

import (
	"sync"
	"time"
)

// State identifies a dialogue state: a catalog topic key or one of the sentinels.
type State string

const (
	// StateStart is the menu every conversation begins and resets to.
	StateStart State = "start"
	// StateEnd is reached when the user declines further help. It never persists.
	StateEnd State = "end"
)

// Session is the mutable per-user record.
type Session struct {
	UserID       string
	State        State
	LastActivity time.Time
}

type entry struct {
	mu   sync.Mutex
	sess Session
}

// Store maps user ids to sessions. Each user has its own lock, so updates for one
// user are serialized while different users proceed independently.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

func (s *Store) entry(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry{sess: Session{UserID: userID, State: StateStart}}
		s.entries[userID] = e
	}
	return e
}

// Update runs fn with exclusive access to the user's session, creating it at
// StateStart on first contact. Changes made by fn are kept even if fn returns an error.
func (s *Store) Update(userID string, fn func(*Session) error) error {
	for {
		e := s.entry(userID)
		e.mu.Lock()
		if !s.owns(userID, e) {
			// swept between lookup and lock
			e.mu.Unlock()
			continue
		}
		err := fn(&e.sess)
		e.sess.UserID = userID
		e.mu.Unlock()
		return err
	}
}

func (s *Store) owns(userID string, e *entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[userID] == e
}

// Get returns a copy of the user's session, or a fresh start session for unknown users.
func (s *Store) Get(userID string) Session {
	s.mu.Lock()
	e, ok := s.entries[userID]
	s.mu.Unlock()
	if !ok {
		return Session{UserID: userID, State: StateStart}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

// Reset puts the user back at StateStart without touching the activity timestamp.
func (s *Store) Reset(userID string) {
	_ = s.Update(userID, func(sess *Session) error {
		sess.State = StateStart
		return nil
	})
}

// Len reports the number of tracked users.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops sessions idle since before cutoff and returns how many were removed.
// Busy sessions are skipped and picked up by a later sweep.
func (s *Store) Sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.sess.LastActivity.Before(cutoff) {
			delete(s.entries, id)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}
