package lifecycle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// stderrTailBytes bounds the stderr kept for early-exit diagnostics.
const stderrTailBytes = 4096

// drainWait bounds how long an early-exit report waits for buffered output.
// A grandchild holding the pipes open must not stall Start.
const drainWait = 500 * time.Millisecond

// maxLineBytes is the longest output line scanned for the readiness marker.
const maxLineBytes = 1 << 20

// managedProc is the handle of one spawned server process. Each instance
// carries its own observers; nothing in it is reused across spawns.
type managedProc struct {
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time

	ready     chan struct{} // closed on first readiness signal
	readyOnce sync.Once

	exited  chan struct{} // closed after cmd.Wait returns
	waitErr error         // written before exited is closed

	stopped  chan struct{} // closed when the controller terminates the process
	stopOnce sync.Once

	// ctx is canceled when the process exits or is terminated, ending
	// readiness polling.
	ctx    context.Context
	cancel context.CancelFunc

	stderr  *tailBuffer
	drained chan struct{} // closed once both output scanners returned
	lock    *flock.Flock
}

func (p *managedProc) markReady() { p.readyOnce.Do(func() { close(p.ready) }) }

// outputStreams are the parent's read ends of the child's stdout/stderr.
type outputStreams struct {
	stdout *os.File
	stderr *os.File
}

// spawn starts the configured command. The caller holds c.mu.
func (c *Controller) spawn() (*managedProc, outputStreams, error) {
	fail := func(err error) (*managedProc, outputStreams, error) {
		return nil, outputStreams{}, &spawnFailureError{command: c.cfg.Command, cause: err}
	}

	var lock *flock.Flock
	if c.cfg.LockPath != "" {
		lock = flock.New(c.cfg.LockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return fail(fmt.Errorf("lock %s: %w", c.cfg.LockPath, err))
		}
		if !locked {
			return fail(fmt.Errorf("%w: %s", ErrLocked, c.cfg.LockPath))
		}
	}
	releaseLock := func() {
		if lock != nil {
			_ = lock.Close()
		}
	}

	cmd := exec.Command(c.cfg.Command, c.cfg.Args...)
	cmd.Dir = c.cfg.Dir
	cmd.Env = overlayEnv(os.Environ(), c.cfg.Env)
	configureSysProcAttr(cmd)

	// Plain pipes instead of cmd.StdoutPipe so that cmd.Wait does not have
	// to wait for the readers and exit detection stays independent of them.
	outR, outW, err := os.Pipe()
	if err != nil {
		releaseLock()
		return fail(fmt.Errorf("stdout pipe: %w", err))
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		_ = outR.Close()
		_ = outW.Close()
		releaseLock()
		return fail(fmt.Errorf("stderr pipe: %w", err))
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		for _, f := range []*os.File{outR, outW, errR, errW} {
			_ = f.Close()
		}
		releaseLock()
		return fail(err)
	}
	// The child holds its own copies of the write ends.
	_ = outW.Close()
	_ = errW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := &managedProc{
		cmd:       cmd,
		pid:       cmd.Process.Pid,
		startedAt: time.Now(),
		ready:     make(chan struct{}),
		exited:    make(chan struct{}),
		stopped:   make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
		stderr:    &tailBuffer{max: stderrTailBytes},
		drained:   make(chan struct{}),
		lock:      lock,
	}
	return p, outputStreams{stdout: outR, stderr: errR}, nil
}

// observe attaches the per-process observers: output scanners, the optional
// health poller, and the exit observer.
func (c *Controller) observe(p *managedProc, s outputStreams) {
	watchMarker := c.cfg.Readiness == ReadinessMarker
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.scanOutput(p, s.stdout, "stdout", watchMarker)
	}()
	go func() {
		defer wg.Done()
		c.scanOutput(p, s.stderr, "stderr", watchMarker && c.cfg.WatchStderr)
	}()
	go func() {
		wg.Wait()
		close(p.drained)
	}()
	if c.cfg.Readiness == ReadinessHealth {
		go c.pollHealth(p)
	}
	go c.waitExit(p)
}

// scanOutput reads r line by line until EOF, echoing lines to the debug log
// and signaling readiness on the first line containing the marker.
func (c *Controller) scanOutput(p *managedProc, r io.ReadCloser, stream string, watch bool) {
	defer r.Close()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		c.log.Debug().Int("pid", p.pid).Str("stream", stream).Msg(line)
		if stream == "stderr" {
			p.stderr.WriteLine(line)
		}
		if watch && strings.Contains(line, c.cfg.ReadyMarker) {
			p.markReady()
		}
	}
	if err := sc.Err(); err != nil {
		c.log.Warn().Err(err).Int("pid", p.pid).Str("stream", stream).Msg("output scan stopped; draining")
		// Keep draining so the child never blocks on a full pipe.
		_, _ = io.Copy(io.Discard, r)
	}
}

// waitExit is the single cmd.Wait caller for p. It resets the controller to
// Stopped when p is still the current process.
func (c *Controller) waitExit(p *managedProc) {
	err := p.cmd.Wait()
	p.waitErr = err
	p.cancel()
	if p.lock != nil {
		if uerr := p.lock.Close(); uerr != nil {
			c.log.Debug().Err(uerr).Str("path", p.lock.Path()).Msg("release server lock")
		}
	}

	c.mu.Lock()
	current := c.proc == p
	if current {
		c.proc = nil
		c.state = StateStopped
		if err != nil {
			c.lastExit = err.Error()
		}
	}
	c.mu.Unlock()
	defer close(p.exited)

	ev := c.log.Info()
	if current && err != nil {
		ev = c.log.Warn().Err(err)
	}
	ev.Int("pid", p.pid).Bool("requested", !current).Msg("server process exited")
	fields := map[string]any{"requested": !current}
	if err != nil {
		fields["error"] = err.Error()
	}
	c.publisher.Publish(Event{Name: EventSpawnExit, PID: p.pid, Fields: fields})
}

// terminate sends SIGTERM to p and its process group and escalates to
// SIGKILL after StopGrace. It never blocks on the process exit.
func (c *Controller) terminate(p *managedProc) {
	p.stopOnce.Do(func() {
		close(p.stopped)
		p.cancel()
		if err := signalTree(p.cmd.Process, syscall.SIGTERM); err != nil {
			// Already gone, or a platform without SIGTERM.
			_ = signalTree(p.cmd.Process, syscall.SIGKILL)
			return
		}
		go func() {
			t := time.NewTimer(c.cfg.StopGrace)
			defer t.Stop()
			select {
			case <-p.exited:
			case <-t.C:
				c.log.Warn().Int("pid", p.pid).Dur("grace", c.cfg.StopGrace).Msg("server ignored SIGTERM; killing")
				_ = signalTree(p.cmd.Process, syscall.SIGKILL)
			}
		}()
	})
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (b *tailBuffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, line...)
	b.buf = append(b.buf, '\n')
	if len(b.buf) > b.max {
		b.buf = append([]byte(nil), b.buf[len(b.buf)-b.max:]...)
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(string(b.buf))
}
