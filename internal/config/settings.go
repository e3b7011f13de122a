package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Defaults used when a setting is absent.
const (
	DefaultPort           = 5002
	DefaultPythonPath     = "python"
	DefaultServerScript   = "app.py"
	DefaultHost           = "localhost"
	DefaultReadyMarker    = "Running on"
	DefaultStartupTimeout = "10s"
	DefaultReadiness      = "marker"
	DefaultControlAddr    = "127.0.0.1:5003"
	DefaultLogLevel       = "info"
)

// Settings holds the persisted bridge settings.
// Keys absent from a settings file keep their defaults.
type Settings struct {
	Port            int    `json:"server_port" yaml:"server_port" toml:"server_port"`
	PythonPath      string `json:"python_path" yaml:"python_path" toml:"python_path"`
	AutoOpenBrowser bool   `json:"auto_open_browser" yaml:"auto_open_browser" toml:"auto_open_browser"`

	// ServerDir holds the converter's app.py. Empty means "server" next to
	// the bridge executable.
	ServerDir      string `json:"server_dir" yaml:"server_dir" toml:"server_dir"`
	ServerScript   string `json:"server_script" yaml:"server_script" toml:"server_script"`
	Host           string `json:"host" yaml:"host" toml:"host"`
	ReadyMarker    string `json:"ready_marker" yaml:"ready_marker" toml:"ready_marker"`
	StartupTimeout string `json:"startup_timeout" yaml:"startup_timeout" toml:"startup_timeout"`
	Readiness      string `json:"readiness" yaml:"readiness" toml:"readiness"`
	// WatchStderr also scans stderr for ReadyMarker. Flask logs the marker
	// there, so a Flask server needs it.
	WatchStderr    bool   `json:"watch_stderr" yaml:"watch_stderr" toml:"watch_stderr"`
	LockFile       string `json:"lock_file" yaml:"lock_file" toml:"lock_file"`

	ControlAddr string   `json:"control_addr" yaml:"control_addr" toml:"control_addr"`
	CORSOrigins []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	LogLevel    string   `json:"log_level" yaml:"log_level" toml:"log_level"`
}

// Default returns the settings used when nothing has been saved yet.
func Default() Settings {
	return Settings{
		Port:            DefaultPort,
		PythonPath:      DefaultPythonPath,
		AutoOpenBrowser: true,
		ServerScript:    DefaultServerScript,
		Host:            DefaultHost,
		ReadyMarker:     DefaultReadyMarker,
		StartupTimeout:  DefaultStartupTimeout,
		Readiness:       DefaultReadiness,
		ControlAddr:     DefaultControlAddr,
		LogLevel:        DefaultLogLevel,
	}
}

// Normalize replaces unusable values with defaults. An out-of-range port
// falls back to DefaultPort.
func (s *Settings) Normalize() {
	if s.Port <= 0 || s.Port > 65535 {
		s.Port = DefaultPort
	}
	s.PythonPath = strings.TrimSpace(s.PythonPath)
	if s.PythonPath == "" {
		s.PythonPath = DefaultPythonPath
	}
	if strings.TrimSpace(s.ServerScript) == "" {
		s.ServerScript = DefaultServerScript
	}
	if strings.TrimSpace(s.Host) == "" {
		s.Host = DefaultHost
	}
	if s.ReadyMarker == "" {
		s.ReadyMarker = DefaultReadyMarker
	}
	if d, err := time.ParseDuration(s.StartupTimeout); err != nil || d <= 0 {
		s.StartupTimeout = DefaultStartupTimeout
	}
	switch s.Readiness {
	case "marker", "health":
	default:
		s.Readiness = DefaultReadiness
	}
	if strings.TrimSpace(s.ControlAddr) == "" {
		s.ControlAddr = DefaultControlAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
}

// StartupTimeoutDuration parses StartupTimeout, falling back to the default.
func (s Settings) StartupTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(s.StartupTimeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(DefaultStartupTimeout)
	}
	return d
}

// Keys lists the names accepted by Set, in display order.
func Keys() []string {
	return []string{
		"server_port", "python_path", "auto_open_browser", "server_dir", "server_script",
		"host", "ready_marker", "startup_timeout", "readiness", "watch_stderr", "lock_file",
		"control_addr", "cors_origins", "log_level",
	}
}

// Set assigns one setting from its string form. Values are validated but not
// normalized; call Normalize afterwards.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "server_port":
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("server_port: invalid port %q", value)
		}
		s.Port = n
	case "python_path":
		s.PythonPath = value
	case "auto_open_browser":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("auto_open_browser: %w", err)
		}
		s.AutoOpenBrowser = b
	case "server_dir":
		s.ServerDir = value
	case "server_script":
		s.ServerScript = value
	case "host":
		s.Host = value
	case "ready_marker":
		s.ReadyMarker = value
	case "startup_timeout":
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return fmt.Errorf("startup_timeout: invalid duration %q", value)
		}
		s.StartupTimeout = value
	case "readiness":
		if value != "marker" && value != "health" {
			return fmt.Errorf("readiness: want marker or health, got %q", value)
		}
		s.Readiness = value
	case "watch_stderr":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("watch_stderr: %w", err)
		}
		s.WatchStderr = b
	case "lock_file":
		s.LockFile = value
	case "control_addr":
		s.ControlAddr = value
	case "cors_origins":
		s.CORSOrigins = splitCSV(value)
	case "log_level":
		s.LogLevel = value
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}

// Get returns the string form of one setting.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "server_port":
		return strconv.Itoa(s.Port), nil
	case "python_path":
		return s.PythonPath, nil
	case "auto_open_browser":
		return strconv.FormatBool(s.AutoOpenBrowser), nil
	case "server_dir":
		return s.ServerDir, nil
	case "server_script":
		return s.ServerScript, nil
	case "host":
		return s.Host, nil
	case "ready_marker":
		return s.ReadyMarker, nil
	case "startup_timeout":
		return s.StartupTimeout, nil
	case "readiness":
		return s.Readiness, nil
	case "watch_stderr":
		return strconv.FormatBool(s.WatchStderr), nil
	case "lock_file":
		return s.LockFile, nil
	case "control_addr":
		return s.ControlAddr, nil
	case "cors_origins":
		return strings.Join(s.CORSOrigins, ","), nil
	case "log_level":
		return s.LogLevel, nil
	}
	return "", fmt.Errorf("unknown setting %q", key)
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
