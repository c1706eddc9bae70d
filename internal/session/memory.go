package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryStore struct {
	mu       sync.RWMutex
	sessions map[int64][]EmailSession
}

// NewMemoryStore returns a process-local Store. Contents are lost on restart.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[int64][]EmailSession),
	}
}

// List returns a copy of the user's sessions in creation order.
func (m *memoryStore) List(_ context.Context, userID int64) ([]EmailSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]EmailSession(nil), m.sessions[userID]...), nil
}

func (m *memoryStore) Get(_ context.Context, userID int64, address string) (EmailSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.sessions[userID]
	if i := IndexOf(list, address); i >= 0 {
		return list[i], nil
	}
	return EmailSession{}, ErrNotFound
}

// Append adds s to the end of the user's list and returns the new length.
func (m *memoryStore) Append(_ context.Context, userID int64, s EmailSession) (int, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	s.UserID = userID

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[userID] = append(m.sessions[userID], s)
	return len(m.sessions[userID]), nil
}

// Remove deletes exactly one occurrence of address.
func (m *memoryStore) Remove(_ context.Context, userID int64, address string) (EmailSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sessions[userID]
	i := IndexOf(list, address)
	if i < 0 {
		return EmailSession{}, ErrNotFound
	}
	removed := list[i]
	next := make([]EmailSession, 0, len(list)-1)
	next = append(next, list[:i]...)
	next = append(next, list[i+1:]...)
	if len(next) == 0 {
		delete(m.sessions, userID)
	} else {
		m.sessions[userID] = next
	}
	return removed, nil
}

func (m *memoryStore) UpdateCredential(_ context.Context, userID int64, address string, cred Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.sessions[userID]
	i := IndexOf(list, address)
	if i < 0 {
		return ErrNotFound
	}
	list[i].Credential = cred
	return nil
}

func (m *memoryStore) Stats(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{Users: len(m.sessions)}
	for _, list := range m.sessions {
		st.Sessions += len(list)
	}
	return st, nil
}
