package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"epubbridge/internal/httpapi"
	"epubbridge/internal/launcher"
	"epubbridge/internal/lifecycle"
)

// shutdownTimeout bounds the wait for the converter and the control API on exit.
const shutdownTimeout = 5 * time.Second

// buildLauncher wires settings, controller and launcher together.
func (a *app) buildLauncher(cmd *cobra.Command, autoOpen bool) (*launcher.Launcher, *lifecycle.Controller, error) {
	cfg, err := launcher.ControllerConfig(a.settings)
	if err != nil {
		return nil, nil, err
	}
	a.events = lifecycle.NewEventLog(0)
	ctrl, err := lifecycle.New(cfg,
		lifecycle.WithLogger(a.log),
		lifecycle.WithPublisher(lifecycle.MultiPublisher(httpapi.EventMetrics{}, a.events)),
	)
	if err != nil {
		return nil, nil, err
	}
	out := cmd.OutOrStdout()
	l := launcher.New(ctrl, launcher.Options{
		AutoOpenBrowser: autoOpen,
		Notifier:        launcher.NotifierFunc(func(msg string) { fmt.Fprintln(out, msg) }),
		Logger:          &a.log,
	})
	return l, ctrl, nil
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// closeLauncher stops the converter and waits for it to exit.
func (a *app) closeLauncher(l *launcher.Launcher) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("converter shutdown")
		return err
	}
	return nil
}

func newOpenCmd(a *app) *cobra.Command {
	var (
		name      string
		noBrowser bool
	)
	cmd := &cobra.Command{
		Use:   "open [vault]",
		Short: "Start the converter for a vault and keep it running until interrupted",
		Example: "  epubbridge open ~/Notes\n" +
			"  epubbridge open . --name Work --no-browser",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault := ""
			if len(args) == 1 {
				vault = args[0]
			}
			l, _, err := a.buildLauncher(cmd, a.settings.AutoOpenBrowser && !noBrowser)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			if _, err := l.Open(ctx, vault, name); err != nil {
				_ = a.closeLauncher(l)
				return err
			}
			<-ctx.Done()
			return a.closeLauncher(l)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (defaults to the vault directory name)")
	cmd.Flags().BoolVar(&noBrowser, "no-browser", false, "Do not open a browser even if auto_open_browser is set")
	return cmd
}

func newStartCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the converter without a project and keep it running until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, _, err := a.buildLauncher(cmd, false)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			if err := l.Start(ctx); err != nil {
				_ = a.closeLauncher(l)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "converter running at %s\n", l.Status().BaseURL)
			<-ctx.Done()
			return a.closeLauncher(l)
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		startNow   bool
		maxBody    int64
		startLimit time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the control API so editors can start and configure the converter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.settings.ControlAddr
			}
			l, ctrl, err := a.buildLauncher(cmd, a.settings.AutoOpenBrowser)
			if err != nil {
				return err
			}
			if err := prometheus.Register(httpapi.NewStateCollector(ctrl.State)); err != nil {
				a.log.Warn().Err(err).Msg("register state collector")
			}

			ctx, stop := signalContext()
			defer stop()
			mux := httpapi.NewMux(l, httpapi.Config{
				MaxBodyBytes: maxBody,
				StartTimeout: startLimit,
				BaseContext:  ctx,
				Logger:       &a.log,
				LogLevel:     a.settings.LogLevel,
				Events:       a.events,
				CORS: httpapi.CORSConfig{
					Enabled: len(a.settings.CORSOrigins) > 0,
					Origins: a.settings.CORSOrigins,
				},
			})
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Str("converter", ctrl.BaseURL()).Msg("control API listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			if startNow {
				go func() {
					if err := l.Start(ctx); err != nil {
						a.log.Error().Err(err).Msg("start converter")
					}
				}()
			}

			var serveErr error
			select {
			case <-ctx.Done():
			case serveErr = <-errCh:
			}
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				a.log.Warn().Err(err).Msg("graceful shutdown")
			}
			return errors.Join(serveErr, a.closeLauncher(l))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Control API listen address (defaults to the control_addr setting)")
	cmd.Flags().BoolVar(&startNow, "start", false, "Start the converter right away")
	cmd.Flags().Int64Var(&maxBody, "max-body-bytes", 1<<20, "Maximum JSON request body size")
	cmd.Flags().DurationVar(&startLimit, "start-timeout", 0, "Upper bound for /start and /open waits (0 = converter startup timeout)")
	return cmd
}
