package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/globalan/gan-forms-cloud-functions/internal/identity"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
	"github.com/globalan/gan-forms-cloud-functions/pkg/metrics"
)

const (
	opCreate = "createUser"
	opUpdate = "updateUser"
	opDelete = "deleteUser"

	// defaultOperationTimeout bounds adapter calls once an operation has started.
	defaultOperationTimeout = 30 * time.Second
)

// Options tune the workflow.
type Options struct {
	// RequiredRole, when non-empty, must be among the caller's roles.
	RequiredRole string
	// OperationTimeout bounds the adapter calls of one operation. Zero means 30s.
	OperationTimeout time.Duration
	Logger           *slog.Logger
	Clock            Clock
}

type service struct {
	identities      identity.Provider
	profiles        Repository
	reconciliations ReconciliationStore
	requiredRole    string
	timeout         time.Duration
	logger          *slog.Logger
	clock           Clock
}

// NewService wires the workflow to its adapters.
func NewService(identities identity.Provider, profiles Repository, reconciliations ReconciliationStore, opts Options) (Service, error) {
	if identities == nil {
		return nil, errors.New("identity provider is required")
	}
	if profiles == nil {
		return nil, errors.New("profile repository is required")
	}
	if reconciliations == nil {
		return nil, errors.New("reconciliation store is required")
	}

	s := &service{
		identities:      identities,
		profiles:        profiles,
		reconciliations: reconciliations,
		requiredRole:    opts.RequiredRole,
		timeout:         opts.OperationTimeout,
		logger:          opts.Logger,
		clock:           opts.Clock,
	}
	if s.timeout <= 0 {
		s.timeout = defaultOperationTimeout
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.clock == nil {
		s.clock = NewSystemClock()
	}
	return s, nil
}

func (s *service) Create(ctx context.Context, caller *Caller, req CreateUserRequest) (_ *CreateResult, err error) {
	defer observe(opCreate, &err)
	logger := logging.FromContext(ctx, s.logger).With(slog.String("operation", opCreate))

	if err := s.authorize(logger, caller, "Only administrators can create new users."); err != nil {
		return nil, err
	}
	input, err := ValidateCreate(req)
	if err != nil {
		logger.Warn("invalid create payload", slog.String("field", FieldOf(err)))
		return nil, err
	}

	ctx, cancel := s.detach(ctx)
	defer cancel()

	created, err := s.identities.Create(ctx, input.Email, input.Password)
	if err != nil {
		logger.Error("Error creating user", slog.String("email", input.Email), slog.Any("error", err))
		return nil, internal("Unable to create user", err)
	}

	profile := Profile{
		ID:       created.ID,
		Name:     input.Name,
		LastName: input.LastName,
		Email:    input.Email,
		Phone:    input.Phone,
		Roles:    input.Roles,
	}
	if err := s.profiles.CreateProfile(ctx, profile); err != nil {
		logger.Error("Error writing user profile",
			slog.String("uid", created.ID),
			slog.String("email", input.Email),
			slog.Any("error", err))
		s.compensateCreate(ctx, logger, created, err)
		return nil, internal("Unable to create user", err)
	}

	logger.Info("User created", slog.String("uid", created.ID), slog.String("email", created.Email))
	return &CreateResult{ID: created.ID, Message: "User created successfully"}, nil
}

// compensateCreate removes an identity whose profile could not be written. When that
// fails as well the orphan is recorded for out-of-band reconciliation.
func (s *service) compensateCreate(ctx context.Context, logger *slog.Logger, created identity.Identity, cause error) {
	delErr := s.identities.Delete(ctx, created.ID)
	if identity.Deleted(delErr) {
		logger.Info("Rolled back identity after failed profile write", slog.String("uid", created.ID))
		return
	}

	metrics.OrphanedIdentities.Inc()
	logger.Error("Orphaned identity: rollback failed",
		slog.String("uid", created.ID),
		slog.String("email", created.Email),
		slog.Any("error", delErr))

	rec := Reconciliation{
		IdentityID: created.ID,
		Email:      created.Email,
		Operation:  opCreate,
		Reason:     fmt.Sprintf("profile write failed: %v; identity rollback failed: %v", cause, delErr),
		CreatedAt:  s.clock.Now().UTC(),
	}
	id, err := s.reconciliations.Record(ctx, rec)
	if err != nil {
		logger.Error("Unable to persist reconciliation record",
			slog.String("uid", created.ID),
			slog.Any("error", err))
		return
	}
	logger.Warn("Reconciliation record written", slog.String("uid", created.ID), slog.String("reconciliationId", id))
}

func (s *service) Update(ctx context.Context, caller *Caller, req UpdateUserRequest) (_ *UpdateResult, err error) {
	defer observe(opUpdate, &err)
	logger := logging.FromContext(ctx, s.logger).With(slog.String("operation", opUpdate))

	if err := s.authorize(logger, caller, "Only administrators can update users."); err != nil {
		return nil, err
	}
	input, err := ValidateUpdate(req)
	if err != nil {
		logger.Warn("invalid update payload", slog.String("field", FieldOf(err)))
		return nil, err
	}
	logger = logger.With(slog.String("uid", input.ID))

	result := &UpdateResult{ID: input.ID, Message: "User updated successfully"}
	if input.Empty() {
		logger.Info("Nothing to update")
		return result, nil
	}

	ctx, cancel := s.detach(ctx)
	defer cancel()

	if input.Email != "" {
		if err := s.identities.UpdateEmail(ctx, input.ID, input.Email); err != nil {
			logger.Error("Error updating identity email", slog.Any("error", err))
			return nil, internal("Unable to update user", err)
		}
		if err := s.profiles.UpdateProfile(ctx, input.ID, ProfilePatch{Email: input.Email}); err != nil {
			// The identity already carries the new email; the stores now disagree.
			logger.Error("Error updating profile email after identity update", slog.Any("error", err))
			return nil, internal("Unable to update user", err)
		}
	}

	if input.Password != "" {
		if err := s.identities.UpdatePassword(ctx, input.ID, input.Password); err != nil {
			logger.Error("Error updating identity password", slog.Any("error", err))
			return nil, internal("Unable to update user", err)
		}
	}

	if input.Name != "" || input.LastName != "" || input.Phone != "" {
		patch := ProfilePatch{
			Name:     input.Name,
			LastName: input.LastName,
			Phone:    input.Phone,
			Email:    input.Email,
		}
		if err := s.profiles.UpdateProfile(ctx, input.ID, patch); err != nil {
			logger.Error("Error updating profile fields", slog.Any("error", err))
			return nil, internal("Unable to update user", err)
		}
	}

	logger.Info("User updated")
	return result, nil
}

func (s *service) Delete(ctx context.Context, caller *Caller, req DeleteUserRequest) (_ *DeleteResult, err error) {
	defer observe(opDelete, &err)
	logger := logging.FromContext(ctx, s.logger).With(slog.String("operation", opDelete))

	if err := s.authorize(logger, caller, "Only administrators can delete users."); err != nil {
		return nil, err
	}
	uid, err := ValidateDelete(req)
	if err != nil {
		logger.Warn("invalid delete payload", slog.String("field", FieldOf(err)))
		return nil, err
	}

	ctx, cancel := s.detach(ctx)
	defer cancel()

	// The profile record is removed by the identity-deleted trigger.
	delErr := s.identities.Delete(ctx, uid)
	switch {
	case errors.Is(delErr, identity.ErrDeletionNotPublished):
		logger.Error("User deleted but profile cleanup event was lost", slog.String("uid", uid), slog.Any("error", delErr))
	case delErr != nil:
		logger.Error("Error deleting user", slog.String("uid", uid), slog.Any("error", delErr))
		return nil, internal("Unable to delete user", delErr)
	}

	logger.Info("User deleted", slog.String("uid", uid))
	return &DeleteResult{Message: "User deleted successfully"}, nil
}

func (s *service) authorize(logger *slog.Logger, caller *Caller, message string) error {
	if caller == nil || caller.UserID == "" {
		logger.Warn("unauthenticated caller rejected")
		return permissionDenied(message)
	}
	if s.requiredRole != "" && !slices.Contains(caller.Roles, s.requiredRole) {
		logger.Warn("caller lacks required role",
			slog.String("callerId", caller.UserID),
			slog.String("requiredRole", s.requiredRole))
		return permissionDenied(message)
	}
	return nil
}

// detach keeps adapter calls running when the caller goes away; once started an
// operation runs to completion or to its own timeout.
func (s *service) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
}

// FieldOf returns the offending field of an invalid-argument error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

func observe(op string, errp *error) {
	metrics.AccountOperations.WithLabelValues(op, metrics.Outcome(*errp)).Inc()
}
