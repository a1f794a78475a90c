package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore is an in-process UserStore with the same contract as the
// bun-backed one: per-record atomicity under a single lock, unique email
// enforced on insert and save. Used in tests and local development.
type MemoryUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*User
}

var _ UserStore = (*MemoryUserStore)(nil)

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[uuid.UUID]*User)}
}

func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email = NormalizeEmail(email)
	for _, u := range s.users {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryUserStore) FindByID(_ context.Context, id uuid.UUID) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryUserStore) Insert(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now()
	user.CreatedAt = &now
	user.UpdatedAt = &now

	s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *MemoryUserStore) Save(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return nil, ErrAccountNotFound
	}

	for id, u := range s.users {
		if id != user.ID && u.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
	}

	now := time.Now()
	user.UpdatedAt = &now

	s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *MemoryUserStore) SaveWithStatus(_ context.Context, user *User, prior UserStatus) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.users[user.ID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	if stored.Status != prior {
		return nil, ErrStatusConflict
	}

	for id, u := range s.users {
		if id != user.ID && u.Email == user.Email {
			return nil, ErrDuplicateEmail
		}
	}

	now := time.Now()
	user.UpdatedAt = &now

	s.users[user.ID] = cloneUser(user)
	return cloneUser(user), nil
}

func (s *MemoryUserStore) Delete(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return ErrAccountNotFound
	}
	delete(s.users, user.ID)
	return nil
}

func cloneUser(u *User) *User {
	cp := *u
	cp.Roles = append([]Role(nil), u.Roles...)
	return &cp
}
