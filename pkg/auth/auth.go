package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// Mode represents the authentication strategy to apply for incoming requests.
type Mode string

const (
	// ModeFirebase verifies Firebase ID tokens with the Admin SDK.
	ModeFirebase Mode = "firebase"
	// ModeClerk enables Clerk JWT verification using a JWKS endpoint.
	ModeClerk Mode = "clerk"
	// ModeNoop disables signature verification and treats the bearer token as the user ID (useful for local development and tests).
	ModeNoop Mode = "noop"
)

// Config captures the inputs required to initialize an authenticator.
type Config struct {
	Mode     Mode
	JWKSURL  string
	Audience string
	Issuer   string
	// Firebase is required when Mode is ModeFirebase.
	Firebase IDTokenVerifier
}

// AuthenticatedUser represents the caller extracted from the bearer token.
type AuthenticatedUser struct {
	UserID    string
	Email     string
	SessionID string
	Roles     []string
	ExpiresAt int64
	Token     string
}

// HasRole reports whether the caller carries the given role claim.
func (u AuthenticatedUser) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

// Verifier verifies a bearer token and returns the associated user context.
type Verifier interface {
	Verify(ctx context.Context, token string) (AuthenticatedUser, error)
}

// DenyFunc writes the response for a request whose credentials were rejected.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

var errInvalidAuthHeader = errors.New("authorization header is malformed")

type ctxKey string

const userCtxKey ctxKey = "gan-forms:user"

// Middleware attaches the verified caller to the request context.
//
// Requests without an Authorization header pass through unauthenticated; handlers
// decide whether that is acceptable. A present but invalid credential is rejected
// through deny.
func Middleware(verifier Verifier, deny DenyFunc) func(http.Handler) http.Handler {
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, present, err := tokenFromRequest(r)
			if !present {
				next.ServeHTTP(w, r)
				return
			}
			if err != nil {
				deny(w, r, err)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				deny(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims)))
		})
	}
}

func tokenFromRequest(r *http.Request) (token string, present bool, err error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false, nil
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", true, errInvalidAuthHeader
	}

	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", true, errInvalidAuthHeader
	}

	return token, true, nil
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	value, ok := ctx.Value(userCtxKey).(AuthenticatedUser)
	return value, ok
}

// NewVerifier constructs a Verifier matching the supplied configuration.
func NewVerifier(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeFirebase:
		return newFirebaseVerifier(cfg)
	case ModeClerk:
		return newClerkVerifier(cfg)
	case ModeNoop:
		return newNoopVerifier(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

// rolesFromClaim accepts either a single role string or a list of roles.
func rolesFromClaim(raw any) []string {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		roles := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				roles = append(roles, s)
			}
		}
		return roles
	default:
		return nil
	}
}
