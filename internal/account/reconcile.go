package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/globalan/gan-forms-cloud-functions/internal/identity"
)

// Reconciler retries the cleanup of identities orphaned by failed creates.
type Reconciler struct {
	identities identity.Provider
	store      ReconciliationStore
	logger     *slog.Logger
}

// ReconcileReport summarizes a Retry pass.
type ReconcileReport struct {
	Resolved []string
	Failed   map[string]error
}

// NewReconciler builds a Reconciler.
func NewReconciler(identities identity.Provider, store ReconciliationStore, logger *slog.Logger) *Reconciler {
	return &Reconciler{identities: identities, store: store, logger: logger}
}

// Pending lists unresolved records, oldest first.
func (r *Reconciler) Pending(ctx context.Context) ([]Reconciliation, error) {
	return r.store.ListPending(ctx)
}

// Retry deletes every orphaned identity still pending. An identity that is already
// gone counts as resolved. Records are processed one at a time.
func (r *Reconciler) Retry(ctx context.Context) (ReconcileReport, error) {
	report := ReconcileReport{Failed: make(map[string]error)}

	pending, err := r.store.ListPending(ctx)
	if err != nil {
		return report, fmt.Errorf("list pending reconciliations: %w", err)
	}

	for _, rec := range pending {
		err := r.identities.Delete(ctx, rec.IdentityID)
		if !identity.Deleted(err) && !errors.Is(err, identity.ErrNotFound) {
			r.logger.Error("reconciliation retry failed",
				slog.String("reconciliationId", rec.ID),
				slog.String("uid", rec.IdentityID),
				slog.Any("error", err))
			report.Failed[rec.ID] = err
			continue
		}

		if err := r.store.MarkResolved(ctx, rec.ID); err != nil {
			report.Failed[rec.ID] = err
			continue
		}
		r.logger.Info("reconciliation resolved",
			slog.String("reconciliationId", rec.ID),
			slog.String("uid", rec.IdentityID))
		report.Resolved = append(report.Resolved, rec.ID)
	}

	return report, nil
}
