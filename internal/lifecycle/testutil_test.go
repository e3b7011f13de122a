package lifecycle

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

// fakeConverter is the path of the fake converter binary built in TestMain.
var fakeConverter string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "epubbridge-lifecycle")
	if err != nil {
		fmt.Fprintf(os.Stderr, "temp dir: %v\n", err)
		os.Exit(1)
	}
	bin := filepath.Join(dir, "fake_converter")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", bin, "./testdata/fake_converter.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "build fake converter: %v: %s\n", err, out)
		_ = os.RemoveAll(dir)
		os.Exit(1)
	}
	fakeConverter = bin
	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// freePort asks the kernel for an unused TCP port on the loopback interface.
func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

// newFakeController returns a controller running the fake converter with the
// given extra flags on a free port. The child is shut down on test cleanup.
func newFakeController(t *testing.T, cfg Config, flags ...string) (*Controller, *EventLog) {
	t.Helper()
	port := freePort(t)
	cfg.Command = fakeConverter
	cfg.Args = append([]string{"-port", fmt.Sprint(port)}, flags...)
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	if cfg.StopGrace == 0 {
		cfg.StopGrace = 500 * time.Millisecond
	}
	pub := NewEventLog(0)
	c, err := New(cfg, WithPublisher(pub))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Shutdown(ctx)
	})
	return c, pub
}

// testCtx returns a context with a generous timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	t.Cleanup(cancel)
	return c
}

// eventually polls cond every 10ms until it holds or d elapses.
func eventually(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
