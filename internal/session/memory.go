package session

import (
	"context"
	"sync"
	"time"
)

const memorySweepInterval = 5 * time.Minute

type memoryEntry struct {
	userID    string
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore holds sessions in process memory and sweeps expired entries
// in the background until closed.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore starts a MemoryStore.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	go s.sweepLoop()
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.now().After(entry.expiresAt) {
		delete(s.entries, id)
		return nil, ErrNotFound
	}
	return &Session{ID: id, UserID: entry.userID, CreatedAt: entry.createdAt, ExpiresAt: entry.expiresAt}, nil
}

func (s *MemoryStore) Save(_ context.Context, sess *Session, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.ID] = memoryEntry{
		userID:    sess.UserID,
		createdAt: sess.CreatedAt,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		close(s.stopCh)
	})
	return nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(memorySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
}
