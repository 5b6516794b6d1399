// Package trigger removes profile records once their identity is deleted.
package trigger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/globalan/gan-forms-cloud-functions/internal/account"
	"github.com/globalan/gan-forms-cloud-functions/pkg/events"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
	"github.com/globalan/gan-forms-cloud-functions/pkg/metrics"
)

// Handler reacts to identity deletions, however they were initiated.
type Handler struct {
	profiles account.Repository
	logger   *slog.Logger
}

// NewHandler builds a Handler deleting from profiles.
func NewHandler(profiles account.Repository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{profiles: profiles, logger: logger}
}

// OnIdentityDeleted deletes the profile stored under the deleted identity's id.
// Deleting an absent profile succeeds, so redelivered events are harmless.
func (h *Handler) OnIdentityDeleted(ctx context.Context, evt events.UserDeleted) error {
	if evt.UserID == "" {
		metrics.IdentityDeletedEvents.WithLabelValues(metrics.OutcomeError).Inc()
		return fmt.Errorf("%w: missing user id", events.ErrMalformedEvent)
	}

	logger := logging.FromContext(ctx, h.logger).With(slog.String("uid", evt.UserID))
	if err := h.profiles.DeleteProfile(ctx, evt.UserID); err != nil {
		metrics.IdentityDeletedEvents.WithLabelValues(metrics.OutcomeError).Inc()
		logger.Error("Error deleting user profile", slog.Any("error", err))
		return fmt.Errorf("delete profile %s: %w", evt.UserID, err)
	}

	metrics.IdentityDeletedEvents.WithLabelValues(metrics.OutcomeSuccess).Inc()
	logger.Info("User deleted", slog.String("email", evt.Email))
	return nil
}

// Run feeds events from sub into the handler until ctx is cancelled.
func (h *Handler) Run(ctx context.Context, sub events.Subscriber) error {
	if sub == nil {
		return nil
	}
	h.logger.Info("identity deletion subscriber started")
	err := sub.Subscribe(ctx, h.OnIdentityDeleted)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("identity deletion subscriber: %w", err)
	}
	return nil
}
