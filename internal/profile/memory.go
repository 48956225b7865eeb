package profile

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used in tests and when running without
// a Mongo deployment. Not durable.
type MemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
	nextID   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]*Profile)}
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}

	clean := *p
	return &clean, nil
}

func (s *MemoryStore) GetByEmail(_ context.Context, email string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.profiles {
		if p.Email == email {
			clean := *p
			return &clean, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(_ context.Context, p *Profile) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.profiles {
		if existing.Email == p.Email {
			return "", fmt.Errorf("email %s: %w", p.Email, ErrDuplicateEmail)
		}
	}

	s.nextID++
	id := "mem-" + strconv.Itoa(s.nextID)

	stored := *p
	stored.ID = id
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.profiles[id] = &stored

	p.ID = id
	return id, nil
}
