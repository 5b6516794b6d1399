package auth

import (
	"context"
	"errors"
	"strings"
)

type noopVerifier struct{}

func newNoopVerifier(_ Config) Verifier {
	return noopVerifier{}
}

// Verify accepts "<user-id>" or "<user-id>:<role>,<role>" so local setups can exercise role checks.
func (noopVerifier) Verify(_ context.Context, token string) (AuthenticatedUser, error) {
	if token == "" {
		return AuthenticatedUser{}, errors.New("token must not be empty")
	}

	userID, rawRoles, _ := strings.Cut(token, ":")
	if userID == "" {
		return AuthenticatedUser{}, errMissingSubject
	}

	var roles []string
	for _, role := range strings.Split(rawRoles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	return AuthenticatedUser{UserID: userID, Roles: roles, Token: token}, nil
}
