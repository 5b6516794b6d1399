package account

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// memoryRepository implements Repository using in-memory storage.
type memoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	clock    Clock
}

// NewMemoryRepository creates a new in-memory repository. The clock stands in for
// the server timestamp Firestore assigns to createdAt.
func NewMemoryRepository(clock Clock) Repository {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &memoryRepository{profiles: make(map[string]Profile), clock: clock}
}

func (r *memoryRepository) CreateProfile(_ context.Context, profile Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile.Roles = slices.Clone(profile.Roles)
	if profile.Roles == nil {
		profile.Roles = []string{}
	}

	if existing, ok := r.profiles[profile.ID]; ok {
		profile.CreatedAt = existing.CreatedAt
		if profile.Phone == "" {
			profile.Phone = existing.Phone
		}
	} else {
		profile.CreatedAt = r.clock.Now().UTC()
	}

	r.profiles[profile.ID] = profile
	return nil
}

func (r *memoryRepository) UpdateProfile(_ context.Context, id string, patch ProfilePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}

	for field, value := range patch.Fields() {
		switch field {
		case "name":
			profile.Name = value
		case "lastName":
			profile.LastName = value
		case "email":
			profile.Email = value
		case "phone":
			profile.Phone = value
		}
	}

	r.profiles[id] = profile
	return nil
}

func (r *memoryRepository) DeleteProfile(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.profiles, id)
	return nil
}

func (r *memoryRepository) GetProfile(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	profile, ok := r.profiles[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	profile.ID = id
	profile.Roles = slices.Clone(profile.Roles)
	return &profile, nil
}

// memoryReconciliationStore implements ReconciliationStore in memory.
type memoryReconciliationStore struct {
	mu      sync.Mutex
	records map[string]Reconciliation
	ids     IDGenerator
	clock   Clock
}

// NewMemoryReconciliationStore creates an empty in-memory reconciliation store.
func NewMemoryReconciliationStore(ids IDGenerator, clock Clock) ReconciliationStore {
	if ids == nil {
		ids = NewUUIDGenerator()
	}
	if clock == nil {
		clock = NewSystemClock()
	}
	return &memoryReconciliationStore{records: make(map[string]Reconciliation), ids: ids, clock: clock}
}

func (s *memoryReconciliationStore) Record(_ context.Context, rec Reconciliation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = s.ids.NewID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now().UTC()
	}
	rec.Resolved = false
	rec.ResolvedAt = nil
	s.records[rec.ID] = rec
	return rec.ID, nil
}

func (s *memoryReconciliationStore) ListPending(_ context.Context) ([]Reconciliation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []Reconciliation
	for _, rec := range s.records {
		if !rec.Resolved {
			pending = append(pending, rec)
		}
	}
	sortByCreatedAt(pending)
	return pending, nil
}

func (s *memoryReconciliationStore) MarkResolved(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrReconciliationNotFound, id)
	}
	now := s.clock.Now().UTC()
	rec.Resolved = true
	rec.ResolvedAt = &now
	s.records[id] = rec
	return nil
}
