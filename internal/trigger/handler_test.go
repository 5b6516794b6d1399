package trigger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalan/gan-forms-cloud-functions/internal/account"
	"github.com/globalan/gan-forms-cloud-functions/internal/identity"
	"github.com/globalan/gan-forms-cloud-functions/pkg/events"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
)

type failingRepo struct {
	account.Repository
	err error
}

func (f failingRepo) DeleteProfile(context.Context, string) error { return f.err }

func TestOnIdentityDeleted_RemovesProfileIdempotently(t *testing.T) {
	ctx := context.Background()
	repo := account.NewMemoryRepository(nil)
	require.NoError(t, repo.CreateProfile(ctx, account.Profile{ID: "u1", Name: "Ada", Email: "a@b.com"}))

	h := NewHandler(repo, logging.Discard())
	require.NoError(t, h.OnIdentityDeleted(ctx, events.UserDeleted{UserID: "u1"}))
	require.NoError(t, h.OnIdentityDeleted(ctx, events.UserDeleted{UserID: "u1"}))

	_, err := repo.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, account.ErrProfileNotFound)
}

func TestOnIdentityDeleted_Errors(t *testing.T) {
	h := NewHandler(failingRepo{err: errors.New("firestore down")}, nil)

	err := h.OnIdentityDeleted(context.Background(), events.UserDeleted{})
	assert.ErrorIs(t, err, events.ErrMalformedEvent)

	err = h.OnIdentityDeleted(context.Background(), events.UserDeleted{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "firestore down")
}

func TestRun_DeletionThroughProviderReachesProfileStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewMemoryBus(logging.Discard())
	provider := identity.NewMemoryProvider(bus)
	repo := account.NewMemoryRepository(nil)

	created, err := provider.Create(ctx, "ada@example.com", "s3cret!")
	require.NoError(t, err)
	require.NoError(t, repo.CreateProfile(ctx, account.Profile{ID: created.ID, Email: created.Email}))

	h := NewHandler(repo, logging.Discard())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, bus) }()

	// Removal through the admin path, not the deleteUser operation.
	require.NoError(t, provider.Remove(ctx, created.ID))

	require.Eventually(t, func() bool {
		_, err := repo.GetProfile(ctx, created.ID)
		return errors.Is(err, account.ErrProfileNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
