package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/globalan/gan-forms-cloud-functions/pkg/logging"
)

// RegisterGreetingRoutes registers the smoke-test endpoints.
func RegisterGreetingRoutes(r chi.Router, logger *slog.Logger) {
	r.HandleFunc("/helloWorld", helloWorld(logger))
	r.Post("/sayHello", sayHello())
}

func helloWorld(logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context(), logger).Info("Hello logs!")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Hello from Firebase!"))
	}
}

func sayHello() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeResult(w, "Hello World!")
	}
}
