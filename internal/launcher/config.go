package launcher

import (
	"fmt"
	"path/filepath"

	"epubbridge/internal/common/fsutil"
	"epubbridge/internal/config"
	"epubbridge/internal/lifecycle"
)

// serverDirName is where the converter lives relative to the bridge binary.
const serverDirName = "server"

// ControllerConfig maps persisted settings to the controller configuration:
// run "<python_path> <server_dir>/<server_script>" inside server_dir with
// PYTHONPATH pointing at it.
func ControllerConfig(s config.Settings) (lifecycle.Config, error) {
	s.Normalize()
	dir := s.ServerDir
	if dir == "" {
		exeDir, err := fsutil.ExecutableDir()
		if err != nil {
			return lifecycle.Config{}, err
		}
		dir = filepath.Join(exeDir, serverDirName)
	}
	dir, err := fsutil.ExpandHome(dir)
	if err != nil {
		return lifecycle.Config{}, err
	}
	if dir, err = filepath.Abs(dir); err != nil {
		return lifecycle.Config{}, fmt.Errorf("server dir: %w", err)
	}
	lock, err := fsutil.ExpandHome(s.LockFile)
	if err != nil {
		return lifecycle.Config{}, err
	}
	return lifecycle.Config{
		Command:        s.PythonPath,
		Args:           []string{filepath.Join(dir, s.ServerScript)},
		Dir:            dir,
		Env:            map[string]string{"PYTHONPATH": dir},
		ReadyMarker:    s.ReadyMarker,
		StartupTimeout: s.StartupTimeoutDuration(),
		WatchStderr:    s.WatchStderr,
		Readiness:      lifecycle.Readiness(s.Readiness),
		Host:           s.Host,
		Port:           s.Port,
		LockPath:       lock,
	}, nil
}
