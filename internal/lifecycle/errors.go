package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"epubbridge/internal/sentinel"
)

// Fixed conditions reported by the controller. Callers match them with
// errors.Is through the typed errors below.
const (
	ErrEmptyCommand         = sentinel.Error("command must not be empty")
	ErrExitedBeforeReady    = sentinel.Error("process exited before becoming ready")
	ErrStoppedDuringStartup = sentinel.Error("process stopped before becoming ready")
	ErrLocked               = sentinel.Error("another controller owns the server lock")
)

// spawnFailureError means the process could not be brought up: the OS
// refused to create it, or it died before signaling readiness.
type spawnFailureError struct {
	command string
	cause   error
	// stderr tail captured when the process exited early
	tail string
}

func (e *spawnFailureError) Error() string {
	msg := fmt.Sprintf("spawn %s: %v", e.command, e.cause)
	if e.tail != "" {
		msg += "; stderr tail: " + e.tail
	}
	return msg
}

func (e *spawnFailureError) Unwrap() error { return e.cause }

// IsSpawnFailure reports whether err means the managed process could not be
// created or exited before it became ready.
func IsSpawnFailure(err error) bool {
	var e *spawnFailureError
	return errors.As(err, &e)
}

// startupTimeoutError means the process was created but never signaled
// readiness within the configured window.
type startupTimeoutError struct {
	timeout time.Duration
	pid     int
}

func (e *startupTimeoutError) Error() string {
	return fmt.Sprintf("server (pid %d) not ready within %s", e.pid, e.timeout)
}

// IsStartupTimeout reports whether err means the readiness window elapsed.
func IsStartupTimeout(err error) bool {
	var e *startupTimeoutError
	return errors.As(err, &e)
}

// unreachableError means a request to the managed server could not be
// completed or was not accepted.
type unreachableError struct {
	url    string
	status int // 0 when no response was received
	msg    string
	cause  error
}

func (e *unreachableError) Error() string {
	switch {
	case e.cause != nil:
		return fmt.Sprintf("server unreachable at %s: %v", e.url, e.cause)
	case e.msg != "":
		return fmt.Sprintf("server at %s rejected request (status %d): %s", e.url, e.status, e.msg)
	default:
		return fmt.Sprintf("server at %s returned status %d", e.url, e.status)
	}
}

func (e *unreachableError) Unwrap() error { return e.cause }

// StatusCode returns the HTTP status received from the server, or 0.
func (e *unreachableError) StatusCode() int { return e.status }

// IsUnreachable reports whether err means a configuration request failed.
func IsUnreachable(err error) bool {
	var e *unreachableError
	return errors.As(err, &e)
}
