package lifecycle

import (
	"strings"
	"time"
)

// Defaults applied when corresponding Config fields are unset.
const (
	DefaultReadyMarker    = "Running on"
	DefaultStartupTimeout = 10 * time.Second
	DefaultHost           = "localhost"
	DefaultPort           = 5002

	defaultStopGrace      = 2 * time.Second
	defaultHTTPTimeout    = 5 * time.Second
	defaultHealthPath     = "/"
	defaultHealthInterval = 100 * time.Millisecond
)

// Readiness selects how the controller decides that a freshly spawned
// process is ready to accept requests.
type Readiness string

const (
	// ReadinessMarker waits for ReadyMarker to appear in the process output.
	ReadinessMarker Readiness = "marker"
	// ReadinessHealth polls HealthPath on the managed server until it answers 2xx.
	ReadinessHealth Readiness = "health"
)

// Config encapsulates everything needed to spawn and talk to the managed
// process. A Controller copies it at construction; it is never mutated
// afterwards.
type Config struct {
	// Command is the executable to run (e.g. "python" or an absolute path).
	Command string
	Args    []string
	// Dir is the working directory of the child. Empty means the caller's.
	Dir string
	// Env is overlaid on the parent environment. Keys here win.
	Env map[string]string

	ReadyMarker    string
	StartupTimeout time.Duration
	// WatchStderr also scans stderr for ReadyMarker. Werkzeug prints its
	// banner on stderr.
	WatchStderr bool

	Readiness      Readiness
	HealthPath     string
	HealthInterval time.Duration

	Host string
	Port int

	// StopGrace is how long Stop waits after SIGTERM before sending SIGKILL.
	StopGrace time.Duration
	// HTTPTimeout bounds each configuration request.
	HTTPTimeout time.Duration

	// LockPath, when set, names a file locked for the lifetime of the child
	// so that two controllers on the same machine cannot both own a server.
	LockPath string
}

// withDefaults returns a copy of c with zero values replaced by package
// defaults.
func (c Config) withDefaults() Config {
	out := c
	out.Args = append([]string(nil), c.Args...)
	if len(c.Env) > 0 {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	if out.ReadyMarker == "" {
		out.ReadyMarker = DefaultReadyMarker
	}
	if out.StartupTimeout <= 0 {
		out.StartupTimeout = DefaultStartupTimeout
	}
	if out.Readiness == "" {
		out.Readiness = ReadinessMarker
	}
	if strings.TrimSpace(out.HealthPath) == "" {
		out.HealthPath = defaultHealthPath
	}
	if !strings.HasPrefix(out.HealthPath, "/") {
		out.HealthPath = "/" + out.HealthPath
	}
	if out.HealthInterval <= 0 {
		out.HealthInterval = defaultHealthInterval
	}
	if strings.TrimSpace(out.Host) == "" {
		out.Host = DefaultHost
	}
	if out.Port <= 0 {
		out.Port = DefaultPort
	}
	if out.StopGrace <= 0 {
		out.StopGrace = defaultStopGrace
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = defaultHTTPTimeout
	}
	return out
}
