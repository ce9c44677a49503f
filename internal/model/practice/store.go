package practice

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrSessionNotFound is returned when a session id is unknown.
var ErrSessionNotFound = errors.New("session not found")

// Store persists sessions. Appends are atomic per call so concurrent writers
// each keep their record.
type Store interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	// ListByUser returns the user's sessions, newest first.
	ListByUser(ctx context.Context, userID string) ([]*Session, error)
	// AppendAnswer appends a and raises currentQuestionIndex to nextIndex when
	// it is larger. It returns the resulting currentQuestionIndex.
	AppendAnswer(ctx context.Context, id string, a Answer, nextIndex int) (int, error)
	// AppendRecording appends r and returns its index.
	AppendRecording(ctx context.Context, id string, r Recording) (int, error)
	// Complete marks the session completed. A completed session keeps its
	// original completedAt.
	Complete(ctx context.Context, id string, at time.Time) (*Session, error)
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID string) ([]*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, s.Clone())
		}
	}
	SortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) AppendAnswer(_ context.Context, id string, a Answer, nextIndex int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	s.Answers = append(s.Answers, a)
	if nextIndex > s.CurrentQuestionIndex {
		s.CurrentQuestionIndex = nextIndex
	}
	return s.CurrentQuestionIndex, nil
}

func (m *MemoryStore) AppendRecording(_ context.Context, id string, r Recording) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return 0, ErrSessionNotFound
	}
	s.Recordings = append(s.Recordings, r)
	return len(s.Recordings) - 1, nil
}

func (m *MemoryStore) Complete(_ context.Context, id string, at time.Time) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.Status != StatusCompleted {
		s.Status = StatusCompleted
		s.CompletedAt = &at
	}
	return s.Clone(), nil
}

// SortNewestFirst orders sessions by creation time, newest first.
func SortNewestFirst(sessions []*Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID > sessions[j].ID
		}
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
}
