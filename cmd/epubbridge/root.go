package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"epubbridge/internal/config"
	"epubbridge/internal/lifecycle"
)

// app carries state shared by all subcommands once flags are parsed.
type app struct {
	configPath string
	logLevel   string

	settings config.Settings
	log      zerolog.Logger
	events   *lifecycle.EventLog
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "epubbridge",
		Short:         "Run the local EPUB converter for a notes vault",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Settings file (.yaml, .json or .toml); defaults to the user config dir")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: debug|info|warn|error (defaults to the log_level setting)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.init(cmd.ErrOrStderr())
	}

	root.AddCommand(
		newOpenCmd(a),
		newStartCmd(a),
		newServeCmd(a),
		newSettingsCmd(a),
	)
	return root
}

// init resolves the settings path, loads settings and builds the logger.
func (a *app) init(logOut io.Writer) error {
	if a.configPath == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		a.configPath = p
	}
	s, err := config.LoadOrDefault(a.configPath)
	if err != nil {
		return err
	}
	a.settings = s
	level := a.logLevel
	if level == "" {
		level = s.LogLevel
	}
	a.log = newLogger(logOut, level)
	return nil
}

// newLogger returns a console logger. Unknown levels fall back to info.
func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(lvl).
		With().Timestamp().Logger()
}

func newSettingsCmd(a *app) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change persisted settings",
		Long: `Show or change persisted settings.

The readiness marker is looked for on stdout only unless watch_stderr is
true. A Flask development server logs "Running on" to stderr, so with the
default settings its startup ends in a timeout. For Flask/Werkzeug run:

  epubbridge settings set watch_stderr true

or set readiness to "health" to poll the server's HTTP endpoint instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return fmt.Errorf("settings requires a subcommand: show|set|path")
		},
	}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print all settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, k := range config.Keys() {
				v, err := a.settings.Get(k)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s=%s\n", k, v)
			}
			return nil
		},
	}
	set := &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Change one setting and save the file",
		Example: "  epubbridge settings set server_port 5010\n  epubbridge settings set python_path /usr/bin/python3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := a.settings
			if err := s.Set(args[0], args[1]); err != nil {
				return err
			}
			s.Normalize()
			if err := config.Save(a.configPath, s); err != nil {
				return err
			}
			a.settings = s
			v, _ := s.Get(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", args[0], v)
			return nil
		},
	}
	path := &cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.configPath)
			return nil
		},
	}
	settingsCmd.AddCommand(show, set, path)
	return settingsCmd
}
