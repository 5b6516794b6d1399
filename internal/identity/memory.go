package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/globalan/gan-forms-cloud-functions/pkg/events"
)

// DeletionPublisher receives an event for every identity removed from the provider.
type DeletionPublisher interface {
	Publish(ctx context.Context, evt events.UserDeleted) error
}

type memoryIdentity struct {
	email    string
	password string
}

// MemoryProvider is an in-process identity provider for local development and tests.
// Like a hosted provider it is the sole arbiter of email uniqueness and reports
// every deletion on its event stream.
type MemoryProvider struct {
	mu         sync.Mutex
	identities map[string]memoryIdentity
	byEmail    map[string]string
	deletions  DeletionPublisher
}

// NewMemoryProvider creates an empty provider. deletions may be nil.
func NewMemoryProvider(deletions DeletionPublisher) *MemoryProvider {
	return &MemoryProvider{
		identities: make(map[string]memoryIdentity),
		byEmail:    make(map[string]string),
		deletions:  deletions,
	}
}

func (p *MemoryProvider) Create(_ context.Context, email, password string) (Identity, error) {
	if email == "" || password == "" {
		return Identity{}, ErrInvalidCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	key := strings.ToLower(email)
	if _, taken := p.byEmail[key]; taken {
		return Identity{}, ErrEmailExists
	}

	id := uuid.NewString()
	p.identities[id] = memoryIdentity{email: email, password: password}
	p.byEmail[key] = id
	return Identity{ID: id, Email: email}, nil
}

func (p *MemoryProvider) UpdateEmail(_ context.Context, id, email string) error {
	if email == "" {
		return ErrInvalidCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.identities[id]
	if !ok {
		return ErrNotFound
	}
	key := strings.ToLower(email)
	if owner, taken := p.byEmail[key]; taken && owner != id {
		return ErrEmailExists
	}

	delete(p.byEmail, strings.ToLower(current.email))
	current.email = email
	p.identities[id] = current
	p.byEmail[key] = id
	return nil
}

func (p *MemoryProvider) UpdatePassword(_ context.Context, id, password string) error {
	if password == "" {
		return ErrInvalidCredentials
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.identities[id]
	if !ok {
		return ErrNotFound
	}
	current.password = password
	p.identities[id] = current
	return nil
}

func (p *MemoryProvider) Delete(ctx context.Context, id string) error {
	return p.Remove(ctx, id)
}

// Remove deletes an identity outside of any account workflow, the way an
// administrator console would. The deletion is still published.
func (p *MemoryProvider) Remove(ctx context.Context, id string) error {
	p.mu.Lock()
	current, ok := p.identities[id]
	if ok {
		delete(p.identities, id)
		delete(p.byEmail, strings.ToLower(current.email))
	}
	p.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if p.deletions == nil {
		return nil
	}
	err := p.deletions.Publish(ctx, events.UserDeleted{
		UserID:    id,
		Email:     current.email,
		DeletedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrDeletionNotPublished, id, err)
	}
	return nil
}

// Lookup returns the identity stored under id.
func (p *MemoryProvider) Lookup(id string) (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.identities[id]
	if !ok {
		return Identity{}, false
	}
	return Identity{ID: id, Email: current.email}, true
}

// CheckPassword reports whether password matches the stored credential.
func (p *MemoryProvider) CheckPassword(id, password string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	current, ok := p.identities[id]
	return ok && current.password == password
}
