package httpapi

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"epubbridge/internal/lifecycle"
)

// defaultMaxBodyBytes bounds JSON request bodies when Config leaves it unset.
const defaultMaxBodyBytes int64 = 1 << 20

// Config tunes the control API. The zero value is usable.
type Config struct {
	// MaxBodyBytes limits JSON request bodies. Non-positive means 1 MiB.
	MaxBodyBytes int64

	// StartTimeout bounds how long /start and /open wait for the converter.
	// The startup attempt itself keeps going when it elapses. Zero waits
	// until the controller's own startup timeout decides.
	StartTimeout time.Duration

	// BaseContext is canceled on shutdown so that handlers waiting on the
	// converter return early. Nil means context.Background.
	BaseContext context.Context

	// Logger receives request logs. Nil disables them.
	Logger *zerolog.Logger
	// LogLevel is the default request log level: off, error, info or debug.
	LogLevel string

	CORS CORSConfig

	// Events backs GET /events. Nil leaves the route unmounted.
	Events EventSource
}

// EventSource lists recent lifecycle events, oldest first.
// *lifecycle.EventLog implements it.
type EventSource interface {
	Recent() []lifecycle.Record
}

// CORSConfig enables CORS for browser front ends. Disabled means no CORS
// middleware is installed at all.
type CORSConfig struct {
	Enabled bool
	Origins []string
	Methods []string
	Headers []string
}

func (c Config) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return defaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}

func (c Config) baseContext() context.Context {
	if c.BaseContext == nil {
		return context.Background()
	}
	return c.BaseContext
}
