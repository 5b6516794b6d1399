package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/idtoken"
)

// PushTokenValidator checks a Google-signed OIDC token against an audience.
type PushTokenValidator func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

// PushConfig configures verification of Pub/Sub push and Eventarc deliveries.
type PushConfig struct {
	// Audience is the audience configured on the push subscription or trigger.
	Audience string
	// ServiceAccountEmail, when set, must match the token's email claim.
	ServiceAccountEmail string
	// Validate defaults to idtoken.Validate.
	Validate PushTokenValidator
}

var (
	errMissingPushToken = errors.New("push request carries no bearer token")
	errPushSender       = errors.New("push token issued to an unexpected service account")
)

// PushMiddleware rejects requests not signed by Google for cfg.Audience. Unlike
// Middleware, a missing Authorization header is a rejection.
func PushMiddleware(cfg PushConfig, deny DenyFunc) (func(http.Handler) http.Handler, error) {
	if strings.TrimSpace(cfg.Audience) == "" {
		return nil, errors.New("push audience is required")
	}
	validate := cfg.Validate
	if validate == nil {
		validate = idtoken.Validate
	}
	if deny == nil {
		deny = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, present, err := tokenFromRequest(r)
			if !present {
				deny(w, r, errMissingPushToken)
				return
			}
			if err != nil {
				deny(w, r, err)
				return
			}

			payload, err := validate(r.Context(), token, cfg.Audience)
			if err != nil {
				deny(w, r, fmt.Errorf("push token verification failed: %w", err))
				return
			}

			if cfg.ServiceAccountEmail != "" {
				email, _ := payload.Claims["email"].(string)
				verified, _ := payload.Claims["email_verified"].(bool)
				if !verified || !strings.EqualFold(email, cfg.ServiceAccountEmail) {
					deny(w, r, errPushSender)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}
