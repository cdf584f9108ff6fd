package intake

import (
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Session is one user's machine guarded by its own mutex.
type Session struct {
	mu      sync.Mutex
	UserID  int64
	machine *Machine
}

func (s *Session) Machine() *Machine {
	return s.machine
}

// Release unlocks a session obtained from Store.Acquire.
func (s *Session) Release() {
	s.mu.Unlock()
}

// Store keeps dialogue sessions keyed by user id and evicts idle ones.
type Store struct {
	mu      sync.Mutex
	cache   *cache.Cache
	ttl     time.Duration
	factory func() *Machine
}

func NewStore(ttl, cleanupInterval time.Duration, factory func() *Machine) *Store {
	if factory == nil {
		factory = func() *Machine { return NewMachine() }
	}
	return &Store{
		cache:   cache.New(ttl, cleanupInterval),
		ttl:     ttl,
		factory: factory,
	}
}

// Acquire returns the locked session for userID, creating it if needed.
// Every access refreshes the session's expiry. Callers must Release it.
func (s *Store) Acquire(userID int64) *Session {
	key := strconv.FormatInt(userID, 10)

	s.mu.Lock()
	var sess *Session
	if v, ok := s.cache.Get(key); ok {
		sess = v.(*Session)
	} else {
		sess = &Session{UserID: userID, machine: s.factory()}
	}
	s.cache.Set(key, sess, s.ttl)
	s.mu.Unlock()

	sess.mu.Lock()
	return sess
}

// Delete drops a user's session.
func (s *Store) Delete(userID int64) {
	s.cache.Delete(strconv.FormatInt(userID, 10))
}

// Len counts live sessions, including expired ones not yet cleaned up.
func (s *Store) Len() int {
	return s.cache.ItemCount()
}
