// Package httpapi exposes the account operations over the callable protocol.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/globalan/gan-forms-cloud-functions/internal/account"
	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
)

// RegisterRoutes registers the callable account operations.
func RegisterRoutes(r chi.Router, service account.Service, logger *slog.Logger) {
	r.Post("/createUser", createUser(service, logger))
	r.Post("/updateUser", updateUser(service, logger))
	r.Post("/deleteUser", deleteUser(service, logger))
}

func createUser(service account.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req account.CreateUserRequest
		if err := decodeCallable(w, r, &req); err != nil {
			logging.FromContext(r.Context(), logger).Warn("invalid createUser body", slog.Any("error", err))
			writeCallableError(w, r, err)
			return
		}

		res, err := service.Create(r.Context(), callerFrom(r), req)
		if err != nil {
			writeCallableError(w, r, err)
			return
		}
		writeResult(w, res)
	}
}

func updateUser(service account.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req account.UpdateUserRequest
		if err := decodeCallable(w, r, &req); err != nil {
			logging.FromContext(r.Context(), logger).Warn("invalid updateUser body", slog.Any("error", err))
			writeCallableError(w, r, err)
			return
		}

		res, err := service.Update(r.Context(), callerFrom(r), req)
		if err != nil {
			writeCallableError(w, r, err)
			return
		}
		writeResult(w, res)
	}
}

func deleteUser(service account.Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req account.DeleteUserRequest
		if err := decodeCallable(w, r, &req); err != nil {
			logging.FromContext(r.Context(), logger).Warn("invalid deleteUser body", slog.Any("error", err))
			writeCallableError(w, r, err)
			return
		}

		res, err := service.Delete(r.Context(), callerFrom(r), req)
		if err != nil {
			writeCallableError(w, r, err)
			return
		}
		writeResult(w, res)
	}
}
