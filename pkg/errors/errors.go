package errors

import (
	"net/http"
	"strings"
)

// Callable error statuses, as understood by Firebase client SDKs.
const (
	StatusInvalidArgument  = "INVALID_ARGUMENT"
	StatusUnauthenticated  = "UNAUTHENTICATED"
	StatusPermissionDenied = "PERMISSION_DENIED"
	StatusNotFound         = "NOT_FOUND"
	StatusInternal         = "INTERNAL"
)

// ErrorResponse is the error body of a callable response.
type ErrorResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

// Envelope wraps ErrorResponse the way callable clients expect it on the wire.
type Envelope struct {
	Error ErrorResponse `json:"error"`
}

// StatusFromKind converts a lower-case, dash-separated kind such as
// "permission-denied" into its callable status.
func StatusFromKind(kind string) string {
	status := strings.ToUpper(strings.ReplaceAll(kind, "-", "_"))
	switch status {
	case StatusInvalidArgument, StatusUnauthenticated, StatusPermissionDenied, StatusNotFound:
		return status
	default:
		return StatusInternal
	}
}

// ToStatusCode maps a callable status to the HTTP status used on the response.
func ToStatusCode(status string) int {
	switch status {
	case StatusInvalidArgument:
		return http.StatusBadRequest
	case StatusUnauthenticated:
		return http.StatusUnauthorized
	case StatusPermissionDenied:
		return http.StatusForbidden
	case StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
