package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"epubbridge/internal/common/fsutil"
	"epubbridge/internal/lifecycle"
	"epubbridge/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusFor maps service errors to response codes. Lifecycle errors are
// checked first: an Unreachable error carries the converter's status, which
// is not ours to return.
func statusFor(err error) int {
	switch {
	case lifecycle.IsStartupTimeout(err):
		return http.StatusGatewayTimeout
	case lifecycle.IsSpawnFailure(err):
		return http.StatusServiceUnavailable
	case lifecycle.IsUnreachable(err):
		return http.StatusBadGateway
	case errors.Is(err, os.ErrNotExist), errors.Is(err, fsutil.ErrNotDir):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrStoppedDuringStartup):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
