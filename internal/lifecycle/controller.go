package lifecycle

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// startFlightKey is the only key used with the start singleflight group.
const startFlightKey = "start"

// Controller owns at most one managed server process and turns its
// asynchronous startup signals into a synchronous readiness contract.
// All methods are safe for concurrent use.
type Controller struct {
	cfg        Config
	log        zerolog.Logger
	publisher  EventPublisher
	httpClient *http.Client

	flight singleflight.Group

	mu       sync.Mutex
	state    State
	proc     *managedProc
	lastExit string
}

// Option customizes a Controller.
type Option func(*Controller)

// WithLogger installs a structured logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l.With().Str("component", "lifecycle").Logger() }
}

// WithPublisher installs an EventPublisher for lifecycle events.
func WithPublisher(p EventPublisher) Option {
	return func(c *Controller) {
		if p == nil {
			p = noopPublisher{}
		}
		c.publisher = p
	}
}

// WithHTTPClient replaces the client used for configuration requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Controller) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// New validates cfg, applies defaults and returns a stopped Controller.
func New(cfg Config, opts ...Option) (*Controller, error) {
	if strings.TrimSpace(cfg.Command) == "" {
		return nil, ErrEmptyCommand
	}
	switch cfg.Readiness {
	case "", ReadinessMarker, ReadinessHealth:
	default:
		return nil, fmt.Errorf("unknown readiness mode %q", cfg.Readiness)
	}
	c := &Controller{
		cfg:       cfg.withDefaults(),
		log:       zerolog.Nop(),
		publisher: noopPublisher{},
		// Timeout=0: every request carries a context deadline instead.
		httpClient: &http.Client{Timeout: 0},
		state:      StateStopped,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Config returns the effective configuration, defaults applied.
func (c *Controller) Config() Config { return c.cfg }

// BaseURL is the root URL of the managed server.
func (c *Controller) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.cfg.Host, c.cfg.Port)
}

// IsRunning reports whether the managed process signaled readiness and has
// not been stopped or exited since. Starting reads as false.
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateRunning
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a consistent view of the controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{State: c.state, BaseURL: c.BaseURL(), LastExit: c.lastExit}
	if c.proc != nil {
		s.PID = c.proc.pid
		s.StartedAt = c.proc.startedAt
	}
	return s
}

// Start ensures the managed process is running. It returns nil immediately
// when the process is already running. Otherwise it spawns the process and
// waits for readiness or the startup timeout. Callers arriving while a start
// is in flight share its outcome instead of spawning again.
//
// ctx bounds only how long this caller waits; it does not abort the shared
// startup attempt.
func (c *Controller) Start(ctx context.Context) error {
	if c.IsRunning() {
		return nil
	}
	ch := c.flight.DoChan(startFlightKey, func() (any, error) {
		return nil, c.start()
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) start() error {
	c.mu.Lock()
	if c.state == StateRunning {
		c.mu.Unlock()
		return nil
	}
	p, streams, err := c.spawn()
	if err != nil {
		c.mu.Unlock()
		c.log.Error().Err(err).Str("command", c.cfg.Command).Msg("spawn failed")
		c.publisher.Publish(Event{Name: EventSpawnError, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	c.proc = p
	c.state = StateStarting
	c.mu.Unlock()

	c.log.Info().Int("pid", p.pid).Str("command", c.cfg.Command).Strs("args", c.cfg.Args).
		Str("dir", c.cfg.Dir).Msg("spawned server")
	c.publisher.Publish(Event{Name: EventSpawnStart, PID: p.pid, Fields: map[string]any{"command": c.cfg.Command, "port": c.cfg.Port}})

	c.observe(p, streams)
	return c.awaitReady(p)
}

// awaitReady blocks until p signals readiness, exits, is stopped, or the
// startup timeout fires. Exactly one of those outcomes is reported.
func (c *Controller) awaitReady(p *managedProc) error {
	timer := time.NewTimer(c.cfg.StartupTimeout)
	defer timer.Stop()

	select {
	case <-p.ready:
		c.mu.Lock()
		if c.proc != p {
			c.mu.Unlock()
			return c.lostDuringStartup(p)
		}
		c.state = StateRunning
		c.mu.Unlock()
		c.log.Info().Int("pid", p.pid).Str("url", c.BaseURL()).
			Dur("startup", time.Since(p.startedAt)).Msg("server ready")
		c.publisher.Publish(Event{Name: EventSpawnReady, PID: p.pid, Fields: map[string]any{"url": c.BaseURL()}})
		return nil
	case <-p.exited:
		return c.lostDuringStartup(p)
	case <-p.stopped:
		return ErrStoppedDuringStartup
	case <-timer.C:
		c.mu.Lock()
		current := c.proc == p
		if current {
			c.proc = nil
			c.state = StateStopped
		}
		c.mu.Unlock()
		if !current {
			return c.lostDuringStartup(p)
		}
		// A late marker from this process is discarded: it is terminated
		// and no longer referenced by the controller.
		c.terminate(p)
		c.log.Warn().Int("pid", p.pid).Dur("timeout", c.cfg.StartupTimeout).Msg("server not ready in time")
		c.publisher.Publish(Event{Name: EventSpawnTimeout, PID: p.pid, Fields: map[string]any{"timeout": c.cfg.StartupTimeout.String()}})
		return &startupTimeoutError{timeout: c.cfg.StartupTimeout, pid: p.pid}
	}
}

// lostDuringStartup explains why p is no longer the current process while
// its start was pending: either Stop took it, or it exited on its own.
func (c *Controller) lostDuringStartup(p *managedProc) error {
	select {
	case <-p.stopped:
		return ErrStoppedDuringStartup
	default:
	}
	<-p.exited
	select {
	case <-p.drained:
	case <-time.After(drainWait):
	}
	cause := error(ErrExitedBeforeReady)
	if p.waitErr != nil {
		cause = fmt.Errorf("%w: %v", ErrExitedBeforeReady, p.waitErr)
	}
	return &spawnFailureError{command: c.cfg.Command, cause: cause, tail: p.stderr.String()}
}

// Stop requests termination of the managed process, if any, and marks the
// controller stopped without waiting for the process to exit. Calling Stop
// on a stopped controller is a no-op.
func (c *Controller) Stop() {
	p := c.detach()
	if p == nil {
		return
	}
	c.terminate(p)
	c.log.Info().Int("pid", p.pid).Msg("server stop requested")
	c.publisher.Publish(Event{Name: EventStop, PID: p.pid, Fields: map[string]any{}})
}

// Shutdown stops the managed process and waits until it has exited or ctx
// is done, in which case the process is killed.
func (c *Controller) Shutdown(ctx context.Context) error {
	p := c.detach()
	if p == nil {
		return nil
	}
	c.terminate(p)
	c.publisher.Publish(Event{Name: EventStop, PID: p.pid, Fields: map[string]any{"wait": true}})
	select {
	case <-p.exited:
		c.log.Info().Int("pid", p.pid).Msg("server stopped")
		return nil
	case <-ctx.Done():
		_ = signalTree(p.cmd.Process, syscall.SIGKILL)
		return fmt.Errorf("wait for server (pid %d) exit: %w", p.pid, ctx.Err())
	}
}

// detach clears the current process handle and returns it.
func (c *Controller) detach() *managedProc {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.proc
	c.proc = nil
	c.state = StateStopped
	return p
}
