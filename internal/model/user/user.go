package user

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when creating a user with an existing email.
	ErrEmailTaken = errors.New("email already registered")
)

// User is a registered trainee. PasswordHash never leaves the service layer.
type User struct {
	ID            string    `json:"userId"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	PasswordHash  string    `json:"-"`
	TotalSessions int       `json:"totalSessions"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store is the identity store.
type Store interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, u *User) error
	IncrementSessions(ctx context.Context, id string) error
}

// NormalizeEmail lowercases and trims an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*User
	byEmail map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*User), byEmail: make(map[string]string)}
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := *m.byID[id]
	return &u, nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := NormalizeEmail(u.Email)
	if _, exists := m.byEmail[email]; exists {
		return ErrEmailTaken
	}
	c := *u
	c.Email = email
	m.byID[c.ID] = &c
	m.byEmail[email] = c.ID
	return nil
}

func (m *MemoryStore) IncrementSessions(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.TotalSessions++
	return nil
}
