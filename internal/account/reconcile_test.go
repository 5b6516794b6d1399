package account

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalan/gan-forms-cloud-functions/internal/identity"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
)

func TestReconciler_Retry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryReconciliationStore(&sequenceIDs{}, nil)

	okID, err := store.Record(ctx, Reconciliation{IdentityID: "deletable"})
	require.NoError(t, err)
	goneID, err := store.Record(ctx, Reconciliation{IdentityID: "already-gone"})
	require.NoError(t, err)
	stuckID, err := store.Record(ctx, Reconciliation{IdentityID: "stuck"})
	require.NoError(t, err)

	provider := &fakeProvider{deleteFn: func(_ context.Context, id string) error {
		switch id {
		case "already-gone":
			return identity.ErrNotFound
		case "stuck":
			return errors.New("auth unavailable")
		}
		return nil
	}}

	r := NewReconciler(provider, store, logging.Discard())
	report, err := r.Retry(ctx)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{okID, goneID}, report.Resolved)
	require.Contains(t, report.Failed, stuckID)
	assert.Len(t, report.Failed, 1)

	pending, err := r.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "stuck", pending[0].IdentityID)
}
