package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

type firebaseProvider struct {
	client *auth.Client
}

// NewFirebaseProvider adapts a Firebase Admin auth client.
func NewFirebaseProvider(client *auth.Client) Provider {
	return &firebaseProvider{client: client}
}

func (p *firebaseProvider) Create(ctx context.Context, email, password string) (Identity, error) {
	params := (&auth.UserToCreate{}).Email(email).Password(password)

	record, err := p.client.CreateUser(ctx, params)
	if err != nil {
		return Identity{}, translate("create user", err)
	}
	return Identity{ID: record.UID, Email: record.Email}, nil
}

func (p *firebaseProvider) UpdateEmail(ctx context.Context, id, email string) error {
	if _, err := p.client.UpdateUser(ctx, id, (&auth.UserToUpdate{}).Email(email)); err != nil {
		return translate("update user email", err)
	}
	return nil
}

func (p *firebaseProvider) UpdatePassword(ctx context.Context, id, password string) error {
	if _, err := p.client.UpdateUser(ctx, id, (&auth.UserToUpdate{}).Password(password)); err != nil {
		return translate("update user password", err)
	}
	return nil
}

func (p *firebaseProvider) Delete(ctx context.Context, id string) error {
	if err := p.client.DeleteUser(ctx, id); err != nil {
		return translate("delete user", err)
	}
	return nil
}

func translate(op string, err error) error {
	switch {
	case auth.IsEmailAlreadyExists(err):
		return fmt.Errorf("firebase %s: %w: %w", op, ErrEmailExists, err)
	case auth.IsUserNotFound(err):
		return fmt.Errorf("firebase %s: %w: %w", op, ErrNotFound, err)
	default:
		return fmt.Errorf("firebase %s: %w", op, err)
	}
}
