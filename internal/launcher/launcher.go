// Package launcher implements the "open converter" flow: make sure the
// conversion server runs, hand it the active project, and show it in a
// browser.
package launcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"epubbridge/internal/browser"
	"epubbridge/internal/common/fsutil"
	"epubbridge/internal/lifecycle"
)

// Controller is the subset of *lifecycle.Controller used by the launcher.
type Controller interface {
	Start(ctx context.Context) error
	Stop()
	Shutdown(ctx context.Context) error
	IsRunning() bool
	SendConfiguration(ctx context.Context, p lifecycle.Project) error
	BaseURL() string
	Snapshot() lifecycle.Snapshot
}

// Notifier shows short transient messages to the user.
type Notifier interface {
	Notify(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

// Options configures a Launcher. Nil collaborators get harmless defaults.
type Options struct {
	Opener          browser.Opener
	Notifier        Notifier
	AutoOpenBrowser bool
	Logger          *zerolog.Logger
}

// Launcher drives a Controller on behalf of user actions.
type Launcher struct {
	ctrl     Controller
	opener   browser.Opener
	notify   Notifier
	autoOpen bool
	log      zerolog.Logger
}

func New(ctrl Controller, opts Options) *Launcher {
	l := &Launcher{
		ctrl:     ctrl,
		opener:   opts.Opener,
		notify:   opts.Notifier,
		autoOpen: opts.AutoOpenBrowser,
		log:      zerolog.Nop(),
	}
	if l.opener == nil {
		l.opener = browser.System{}
	}
	if l.notify == nil {
		l.notify = NotifierFunc(func(string) {})
	}
	if opts.Logger != nil {
		l.log = opts.Logger.With().Str("component", "launcher").Logger()
	}
	return l
}

// ResolveProject turns a user-supplied vault path and optional name into the
// payload sent to the server. The path must be an existing directory; an
// empty name becomes the directory's base name.
func ResolveProject(path, name string) (lifecycle.Project, error) {
	dir, err := fsutil.ResolveDir(path)
	if err != nil {
		return lifecycle.Project{}, fmt.Errorf("vault %q: %w", path, err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = filepath.Base(dir)
	}
	return lifecycle.Project{Path: dir, Name: name}, nil
}

// Open ensures the server is running, sends it the project at path, and
// opens the browser when auto-open is enabled. A browser failure is not an
// error; the user is told where to point their browser instead.
func (l *Launcher) Open(ctx context.Context, path, name string) (lifecycle.Project, error) {
	project, err := ResolveProject(path, name)
	if err != nil {
		l.notify.Notify("Error: " + err.Error())
		return lifecycle.Project{}, err
	}
	if !l.ctrl.IsRunning() {
		if err := l.ctrl.Start(ctx); err != nil {
			l.notify.Notify("Error: " + err.Error())
			return project, fmt.Errorf("start converter: %w", err)
		}
	}
	if err := l.ctrl.SendConfiguration(ctx, project); err != nil {
		l.notify.Notify("Error: " + err.Error())
		return project, fmt.Errorf("set project: %w", err)
	}
	url := l.ctrl.BaseURL()
	if l.autoOpen {
		if err := l.opener.Open(ctx, url); err != nil {
			l.log.Warn().Err(err).Str("url", url).Msg("open browser failed")
			l.notify.Notify("Open your browser at " + url)
		}
	}
	l.log.Info().Str("project", project.Name).Str("path", project.Path).Str("url", url).Msg("converter opened")
	l.notify.Notify("EPUB converter opened at " + url)
	return project, nil
}

// Toggle starts a stopped server or stops a running one and reports whether
// the server is running afterwards.
func (l *Launcher) Toggle(ctx context.Context) (bool, error) {
	if l.ctrl.IsRunning() {
		l.ctrl.Stop()
		l.notify.Notify("Server stopped")
		return false, nil
	}
	if err := l.ctrl.Start(ctx); err != nil {
		l.notify.Notify("Server start failed: " + err.Error())
		return false, err
	}
	l.notify.Notify("Server started")
	return true, nil
}

// Start starts the server without sending a project.
func (l *Launcher) Start(ctx context.Context) error {
	if err := l.ctrl.Start(ctx); err != nil {
		l.notify.Notify("Server start failed: " + err.Error())
		return err
	}
	return nil
}

// Stop stops the server if it is running or still starting. A pending start
// then fails with lifecycle.ErrStoppedDuringStartup.
func (l *Launcher) Stop() {
	if l.ctrl.Snapshot().State == lifecycle.StateStopped {
		return
	}
	l.ctrl.Stop()
	l.notify.Notify("Server stopped")
}

// Configure sends the project at path to an already running server. Unlike
// Open it never starts the server.
func (l *Launcher) Configure(ctx context.Context, path, name string) (lifecycle.Project, error) {
	project, err := ResolveProject(path, name)
	if err != nil {
		return lifecycle.Project{}, err
	}
	if err := l.ctrl.SendConfiguration(ctx, project); err != nil {
		return project, fmt.Errorf("set project: %w", err)
	}
	return project, nil
}

// Status returns the controller snapshot.
func (l *Launcher) Status() lifecycle.Snapshot { return l.ctrl.Snapshot() }

// Close stops the server and waits for it to exit.
func (l *Launcher) Close(ctx context.Context) error {
	return l.ctrl.Shutdown(ctx)
}
