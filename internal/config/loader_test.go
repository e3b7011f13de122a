package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "server_port: 6001\npython_path: python3\nauto_open_browser: false\nserver_dir: /srv/epub\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 6001 || cfg.PythonPath != "python3" || cfg.AutoOpenBrowser || cfg.ServerDir != "/srv/epub" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	// Unset keys keep defaults.
	if cfg.ReadyMarker != DefaultReadyMarker || cfg.ControlAddr != DefaultControlAddr {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"server_port":7070,"python_path":"/usr/bin/python3","startup_timeout":"3s"}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7070 || cfg.PythonPath != "/usr/bin/python3" || !cfg.AutoOpenBrowser {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.StartupTimeoutDuration() != 3*time.Second {
		t.Fatalf("startup timeout=%s", cfg.StartupTimeoutDuration())
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "server_port=8081\nreadiness=\"health\"\ncors_origins=[\"app://obsidian.md\"]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 8081 || cfg.Readiness != "health" || !reflect.DeepEqual(cfg.CORSOrigins, []string{"app://obsidian.md"}) {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadNormalizesInvalidValues(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "server_port: 0\npython_path: \"  \"\nstartup_timeout: soon\nreadiness: psychic\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != DefaultPort || cfg.PythonPath != DefaultPythonPath {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if cfg.StartupTimeout != DefaultStartupTimeout || cfg.Readiness != DefaultReadiness {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "server_port: 5002\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "server_port": 5002, "python_path": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "server_port=5002\npython_path\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestSaveRoundTripEachFormat(t *testing.T) {
	s := Default()
	s.Port = 6123
	s.PythonPath = "python3.12"
	s.AutoOpenBrowser = false
	s.CORSOrigins = []string{"app://obsidian.md"}
	for _, name := range []string{"s.yaml", "s.json", "s.toml"} {
		p := filepath.Join(t.TempDir(), "nested", name)
		if err := Save(p, s); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
		got, err := Load(p)
		if err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
		if !reflect.DeepEqual(got, s) {
			t.Fatalf("%s: got %+v want %+v", name, got, s)
		}
	}
}

func TestSaveUnsupportedExtension(t *testing.T) {
	if err := Save(filepath.Join(t.TempDir(), "s.ini"), Default()); err == nil {
		t.Fatalf("expected error for .ini")
	}
}
