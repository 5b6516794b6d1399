package identity

import (
	"context"
	"errors"
)

// Identity is the canonical view of an authentication identity returned by a provider.
// Passwords are write-only and never come back.
type Identity struct {
	ID    string
	Email string
}

// Provider creates, mutates and deletes identities keyed by a provider-assigned id.
type Provider interface {
	Create(ctx context.Context, email, password string) (Identity, error)
	UpdateEmail(ctx context.Context, id, email string) error
	UpdatePassword(ctx context.Context, id, password string) error
	Delete(ctx context.Context, id string) error
}

var (
	// ErrEmailExists is returned when another identity already owns the email.
	ErrEmailExists = errors.New("email already in use")
	// ErrNotFound is returned when no identity has the requested id.
	ErrNotFound = errors.New("identity not found")
	// ErrInvalidCredentials is returned for empty emails or passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDeletionNotPublished is returned when the identity was deleted but its
	// deletion event could not be published.
	ErrDeletionNotPublished = errors.New("identity deleted, deletion event not published")
)

// Deleted reports whether err, returned by Delete, still means the identity is gone.
func Deleted(err error) bool {
	return err == nil || errors.Is(err, ErrDeletionNotPublished)
}
