package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is one browser's state behind a lock. The results model inside the
// state is mutable, so every read and write goes through Read or Update.
type Session struct {
	ID string

	mu       sync.Mutex
	state    State
	lastSeen time.Time
}

// Read runs fn with the current state under the session lock.
func (s *Session) Read(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// Update applies a transition. The state is replaced only when fn succeeds.
func (s *Session) Update(fn func(State) (State, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.state)
	if err != nil {
		return err
	}
	s.state = next
	return nil
}

// Store keeps sessions in memory and forgets those idle longer than ttl.
type Store struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
	initial  State
}

// NewStore creates a store. Sessions start from initial.
func NewStore(ttl time.Duration, initial State) *Store {
	return &Store{
		ttl:      ttl,
		sessions: map[string]*Session{},
		now:      time.Now,
		initial:  initial,
	}
}

// Get returns the live session id and marks it used.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	if !ok || st.expired(sess) {
		return nil, false
	}
	sess.lastSeen = st.now()
	return sess, true
}

// Create starts a session with a fresh random id.
func (st *Store) Create() *Session {
	sess := &Session{ID: uuid.NewString(), state: st.initial}
	st.mu.Lock()
	defer st.mu.Unlock()
	sess.lastSeen = st.now()
	st.sessions[sess.ID] = sess
	return sess
}

// GetOrCreate returns the session for id, creating one when it is unknown or
// expired. created reports whether the caller must hand out a new id.
func (st *Store) GetOrCreate(id string) (sess *Session, created bool) {
	if id != "" {
		if sess, ok := st.Get(id); ok {
			return sess, false
		}
	}
	return st.Create(), true
}

// Len is the number of stored sessions, expired ones included until the next sweep.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

func (st *Store) expired(sess *Session) bool {
	return st.ttl > 0 && st.now().Sub(sess.lastSeen) > st.ttl
}

// Sweep drops expired sessions and returns how many went.
func (st *Store) Sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, sess := range st.sessions {
		if st.expired(sess) {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is done.
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
