package launcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"epubbridge/internal/lifecycle"
)

// fakeController records calls and returns canned errors.
type fakeController struct {
	mu        sync.Mutex
	running   bool
	starting  bool
	startErr  error
	sendErr   error
	starts    int
	stops     int
	shutdowns int
	sent      []lifecycle.Project
}

func (f *fakeController) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeController) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
	f.starting = false
}

func (f *fakeController) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdowns++
	f.running = false
	return nil
}

func (f *fakeController) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeController) SendConfiguration(ctx context.Context, p lifecycle.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeController) BaseURL() string { return "http://localhost:5002" }

func (f *fakeController) Snapshot() lifecycle.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := lifecycle.StateStopped
	switch {
	case f.running:
		st = lifecycle.StateRunning
	case f.starting:
		st = lifecycle.StateStarting
	}
	return lifecycle.Snapshot{State: st, BaseURL: "http://localhost:5002"}
}

type fakeOpener struct {
	urls []string
	err  error
}

func (o *fakeOpener) Open(ctx context.Context, url string) error {
	o.urls = append(o.urls, url)
	return o.err
}

type notes struct{ msgs []string }

func (n *notes) Notify(msg string) { n.msgs = append(n.msgs, msg) }

func (n *notes) last() string {
	if len(n.msgs) == 0 {
		return ""
	}
	return n.msgs[len(n.msgs)-1]
}

func newVault(t *testing.T, name string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

func TestOpenStartsSendsAndOpensBrowser(t *testing.T) {
	ctrl := &fakeController{}
	op := &fakeOpener{}
	n := &notes{}
	l := New(ctrl, Options{Opener: op, Notifier: n, AutoOpenBrowser: true})
	vault := newVault(t, "MyVault")

	p, err := l.Open(context.Background(), vault, "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if p.Name != "MyVault" || p.Path != vault {
		t.Fatalf("unexpected project %+v", p)
	}
	if ctrl.starts != 1 || len(ctrl.sent) != 1 || ctrl.sent[0] != p {
		t.Fatalf("unexpected controller calls: %+v", ctrl)
	}
	if len(op.urls) != 1 || op.urls[0] != "http://localhost:5002" {
		t.Fatalf("browser not opened: %v", op.urls)
	}
	if !strings.Contains(n.last(), "opened") {
		t.Fatalf("last notice %q", n.last())
	}
}

func TestOpenSkipsStartWhenRunning(t *testing.T) {
	ctrl := &fakeController{running: true}
	l := New(ctrl, Options{Opener: &fakeOpener{}})
	if _, err := l.Open(context.Background(), newVault(t, "v"), "Custom"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ctrl.starts != 0 {
		t.Fatalf("started a running server")
	}
	if ctrl.sent[0].Name != "Custom" {
		t.Fatalf("explicit name ignored: %+v", ctrl.sent[0])
	}
}

func TestOpenWithoutAutoOpen(t *testing.T) {
	op := &fakeOpener{}
	l := New(&fakeController{}, Options{Opener: op, AutoOpenBrowser: false})
	if _, err := l.Open(context.Background(), newVault(t, "v"), ""); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if len(op.urls) != 0 {
		t.Fatalf("browser opened with auto-open disabled")
	}
}

func TestOpenBrowserFailureIsNotAnError(t *testing.T) {
	n := &notes{}
	l := New(&fakeController{}, Options{Opener: &fakeOpener{err: errors.New("no display")}, Notifier: n, AutoOpenBrowser: true})
	if _, err := l.Open(context.Background(), newVault(t, "v"), ""); err != nil {
		t.Fatalf("Open: %v", err)
	}
	found := false
	for _, m := range n.msgs {
		if strings.Contains(m, "Open your browser at http://localhost:5002") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing fallback notice: %v", n.msgs)
	}
}

func TestOpenStartFailure(t *testing.T) {
	boom := errors.New("boom")
	ctrl := &fakeController{startErr: boom}
	n := &notes{}
	l := New(ctrl, Options{Opener: &fakeOpener{}, Notifier: n})
	if _, err := l.Open(context.Background(), newVault(t, "v"), ""); !errors.Is(err, boom) {
		t.Fatalf("expected start error, got %v", err)
	}
	if len(ctrl.sent) != 0 {
		t.Fatalf("configuration sent after failed start")
	}
	if !strings.HasPrefix(n.last(), "Error:") {
		t.Fatalf("expected error notice, got %q", n.last())
	}
}

func TestOpenSendFailure(t *testing.T) {
	boom := errors.New("refused")
	op := &fakeOpener{}
	l := New(&fakeController{sendErr: boom}, Options{Opener: op, AutoOpenBrowser: true})
	if _, err := l.Open(context.Background(), newVault(t, "v"), ""); !errors.Is(err, boom) {
		t.Fatalf("expected send error, got %v", err)
	}
	if len(op.urls) != 0 {
		t.Fatalf("browser opened after failed configuration")
	}
}

func TestOpenRejectsMissingVault(t *testing.T) {
	ctrl := &fakeController{}
	l := New(ctrl, Options{Opener: &fakeOpener{}})
	if _, err := l.Open(context.Background(), filepath.Join(t.TempDir(), "nope"), ""); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected ErrNotExist, got %v", err)
	}
	if ctrl.starts != 0 {
		t.Fatalf("server started for a missing vault")
	}
}

func TestToggle(t *testing.T) {
	ctrl := &fakeController{}
	n := &notes{}
	l := New(ctrl, Options{Notifier: n})
	running, err := l.Toggle(context.Background())
	if err != nil || !running {
		t.Fatalf("first toggle: running=%v err=%v", running, err)
	}
	running, err = l.Toggle(context.Background())
	if err != nil || running {
		t.Fatalf("second toggle: running=%v err=%v", running, err)
	}
	if ctrl.starts != 1 || ctrl.stops != 1 {
		t.Fatalf("unexpected calls: %+v", ctrl)
	}
	if n.last() != "Server stopped" {
		t.Fatalf("last notice %q", n.last())
	}
}

func TestToggleStartFailure(t *testing.T) {
	l := New(&fakeController{startErr: errors.New("nope")}, Options{})
	running, err := l.Toggle(context.Background())
	if err == nil || running {
		t.Fatalf("expected failure, got running=%v err=%v", running, err)
	}
}

func TestCloseShutsDown(t *testing.T) {
	ctrl := &fakeController{running: true}
	l := New(ctrl, Options{})
	if err := l.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if ctrl.shutdowns != 1 || l.Status().State != lifecycle.StateStopped {
		t.Fatalf("not shut down: %+v", ctrl)
	}
}

func TestConfigureDoesNotStart(t *testing.T) {
	ctrl := &fakeController{}
	l := New(ctrl, Options{})
	p, err := l.Configure(context.Background(), newVault(t, "Notes"), "")
	if err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if ctrl.starts != 0 || len(ctrl.sent) != 1 || p.Name != "Notes" {
		t.Fatalf("unexpected calls: %+v", ctrl)
	}
}

func TestStartStop(t *testing.T) {
	ctrl := &fakeController{}
	n := &notes{}
	l := New(ctrl, Options{Notifier: n})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	l.Stop()
	l.Stop()
	if ctrl.stops != 1 {
		t.Fatalf("expected a single Stop on the controller, got %d", ctrl.stops)
	}
	if n.last() != "Server stopped" {
		t.Fatalf("last notice %q", n.last())
	}
}

func TestStopWhileStarting(t *testing.T) {
	ctrl := &fakeController{starting: true}
	n := &notes{}
	l := New(ctrl, Options{Notifier: n})
	l.Stop()
	if ctrl.stops != 1 {
		t.Fatalf("Stop ignored a starting server")
	}
	if l.Status().State != lifecycle.StateStopped || n.last() != "Server stopped" {
		t.Fatalf("state=%s notice=%q", l.Status().State, n.last())
	}
}

func TestStopWhenStoppedIsSilent(t *testing.T) {
	ctrl := &fakeController{}
	n := &notes{}
	New(ctrl, Options{Notifier: n}).Stop()
	if ctrl.stops != 0 || len(n.msgs) != 0 {
		t.Fatalf("stopped server touched: stops=%d notices=%v", ctrl.stops, n.msgs)
	}
}
