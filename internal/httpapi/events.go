package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/globalan/gan-forms-cloud-functions/pkg/events"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
)

const maxEventBodyBytes = 256 * 1024

// IdentityDeletedHandler consumes a single identity deletion.
type IdentityDeletedHandler interface {
	OnIdentityDeleted(ctx context.Context, evt events.UserDeleted) error
}

// RegisterEventRoutes registers push endpoints for identity deletion events behind
// verifyPush. Without a verifier nothing is registered: the event names the profile to
// delete, so only the event source may send it.
func RegisterEventRoutes(r chi.Router, handler IdentityDeletedHandler, verifyPush func(http.Handler) http.Handler, logger *slog.Logger) bool {
	if verifyPush == nil {
		return false
	}
	r.With(verifyPush).Post("/v1/events/identity-deleted", identityDeleted(handler, logger))
	return true
}

// pushEnvelope covers both push shapes: a Pub/Sub push request carries
// message.data (base64), a Firebase Auth background event carries data directly.
type pushEnvelope struct {
	Message *struct {
		Data       string            `json:"data"`
		MessageID  string            `json:"messageId"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
	Data json.RawMessage `json:"data"`
}

func identityDeleted(handler IdentityDeletedHandler, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context(), logger)

		evt, skip, err := decodePush(w, r)
		switch {
		case skip:
			w.WriteHeader(http.StatusNoContent)
			return
		case err != nil:
			// Malformed pushes are acknowledged; redelivery cannot fix them.
			reqLogger.Warn("dropping malformed identity deletion push", slog.Any("error", err))
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if err := handler.OnIdentityDeleted(r.Context(), evt); err != nil {
			reqLogger.Error("identity deletion push failed", slog.String("uid", evt.UserID), slog.Any("error", err))
			http.Error(w, "profile cleanup failed", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func decodePush(w http.ResponseWriter, r *http.Request) (evt events.UserDeleted, skip bool, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBodyBytes)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return evt, false, fmt.Errorf("%w: %v", events.ErrMalformedEvent, err)
	}

	var env pushEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return evt, false, fmt.Errorf("%w: %v", events.ErrMalformedEvent, err)
	}

	switch {
	case env.Message != nil:
		if t := env.Message.Attributes["type"]; t != "" && t != events.TypeUserDeleted {
			return evt, true, nil
		}
		data, err := base64.StdEncoding.DecodeString(env.Message.Data)
		if err != nil {
			return evt, false, fmt.Errorf("%w: message data: %v", events.ErrMalformedEvent, err)
		}
		evt, err = events.DecodeUserDeleted(data)
		return evt, false, err
	case len(env.Data) > 0:
		evt, err = events.DecodeUserDeleted(env.Data)
		return evt, false, err
	default:
		return evt, false, errors.Join(events.ErrMalformedEvent, errors.New("no message or data"))
	}
}
