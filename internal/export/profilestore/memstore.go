package profilestore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/yapvoice/yap/internal/export"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for single-user desktop sessions and testing.
// The zero value is ready to use.
type MemStore struct {
	mu       sync.RWMutex
	profiles map[string]export.Profile
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		profiles: make(map[string]export.Profile),
	}
}

// Add implements [Store.Add].
func (s *MemStore) Add(ctx context.Context, profile export.Profile) (export.Profile, error) {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if err := profile.Validate(); err != nil {
		return export.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profiles == nil {
		s.profiles = make(map[string]export.Profile)
	}

	if _, exists := s.profiles[profile.ID]; exists {
		return export.Profile{}, ErrDuplicateID
	}

	s.profiles[profile.ID] = profile
	return profile, nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (export.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return export.Profile{}, ErrNotFound
	}
	return p, nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context, opts ListOptions) ([]export.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]export.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		if opts.Kind != "" && p.Kind != opts.Kind {
			continue
		}
		result = append(result, p)
	}
	slices.SortFunc(result, func(a, b export.Profile) int {
		return strings.Compare(a.Name, b.Name)
	})
	return result, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, profile export.Profile) error {
	if err := profile.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.ID]; !ok {
		return ErrNotFound
	}

	s.profiles[profile.ID] = profile
	return nil
}

// Remove implements [Store.Remove].
func (s *MemStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[id]; !ok {
		return ErrNotFound
	}

	delete(s.profiles, id)
	return nil
}
