package auth

import (
	"context"
	"errors"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
)

// IDTokenVerifier is the subset of the Firebase Admin auth client used to check ID tokens.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type firebaseVerifier struct {
	client IDTokenVerifier
}

func newFirebaseVerifier(cfg Config) (Verifier, error) {
	if cfg.Firebase == nil {
		return nil, errors.New("firebase auth client is required when AUTH_MODE=firebase")
	}
	return &firebaseVerifier{client: cfg.Firebase}, nil
}

func (v *firebaseVerifier) Verify(ctx context.Context, token string) (AuthenticatedUser, error) {
	decoded, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return AuthenticatedUser{}, fmt.Errorf("token verification failed: %w", err)
	}
	if decoded.UID == "" {
		return AuthenticatedUser{}, errMissingSubject
	}

	email, _ := decoded.Claims["email"].(string)

	return AuthenticatedUser{
		UserID:    decoded.UID,
		Email:     email,
		Roles:     rolesFromClaim(decoded.Claims["roles"]),
		ExpiresAt: decoded.Expires,
		Token:     token,
	}, nil
}
