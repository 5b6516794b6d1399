package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/globalan/gan-forms-cloud-functions/internal/account"
	"github.com/globalan/gan-forms-cloud-functions/pkg/auth"
	apperrors "github.com/globalan/gan-forms-cloud-functions/pkg/errors"
)

const maxCallableBodyBytes = 64 * 1024

const invalidPayloadMessage = "The function was called with an invalid payload."

var errInvalidPayload = errors.New("invalid callable body")

type callableRequest struct {
	Data json.RawMessage `json:"data"`
}

type callableResponse struct {
	Result any `json:"result"`
}

// decodeCallable reads a {"data": ...} body into dst. An absent or null data field
// leaves dst at its zero value so that field validation reports what is missing.
func decodeCallable(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxCallableBodyBytes)
	defer r.Body.Close()

	var req callableRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errInvalidPayload
	}
	if len(req.Data) == 0 || string(req.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(req.Data, dst); err != nil {
		return errInvalidPayload
	}
	return nil
}

func callerFrom(r *http.Request) *account.Caller {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user.UserID == "" {
		return nil
	}
	return &account.Caller{UserID: user.UserID, Roles: user.Roles}
}

func writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, callableResponse{Result: result})
}

// writeCallableError serializes err as a callable error. Only the caller-facing message
// of an account.Error leaves the process; causes stay in the logs.
func writeCallableError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusInternal
	message := "internal"

	var accErr *account.Error
	switch {
	case errors.As(err, &accErr):
		status = apperrors.StatusFromKind(string(accErr.Kind))
		message = accErr.Message
	case errors.Is(err, errInvalidPayload):
		status = apperrors.StatusInvalidArgument
		message = invalidPayloadMessage
	}

	writeJSON(w, apperrors.ToStatusCode(status), apperrors.Envelope{Error: apperrors.ErrorResponse{
		Status:    status,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// Deny rejects a request whose bearer token failed verification.
func Deny(logger *slog.Logger) auth.DenyFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		if logger != nil {
			logger.Warn("rejected credentials",
				slog.String("path", r.URL.Path),
				slog.String("requestId", middleware.GetReqID(r.Context())),
				slog.Any("error", err))
		}
		writeJSON(w, http.StatusUnauthorized, apperrors.Envelope{Error: apperrors.ErrorResponse{
			Status:    apperrors.StatusUnauthenticated,
			Message:   "Unauthenticated",
			RequestID: middleware.GetReqID(r.Context()),
		}})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
