// Package session holds the access.SessionStore implementations.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/nihongowithmoeno/moeno/core/access"
)

// MemoryStore keeps sessions in process; they do not survive a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]access.Session
	nowFunc  func() time.Time
}

var _ access.SessionStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]access.Session),
		nowFunc:  time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sess access.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (access.Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return access.Session{}, access.ErrNoSession
	}
	if sess.Expired(s.nowFunc()) {
		s.mu.Lock()
		delete(s.sessions, id)
		s.mu.Unlock()
		return access.Session{}, access.ErrNoSession
	}
	return sess, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
