// Package browser opens URLs in the user's default browser.
package browser

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener opens a URL for the user.
type Opener interface {
	Open(ctx context.Context, url string) error
}

// System opens URLs with the platform's launcher command.
type System struct{}

// Open runs the platform launcher for url and waits for it to return. The
// launcher exits once it has handed the URL to the browser.
func (System) Open(ctx context.Context, url string) error {
	name, args := Command(runtime.GOOS, url)
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("open %s with %s: %w: %s", url, name, err, out)
	}
	return nil
}

// Command returns the launcher command for goos.
func Command(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		// The empty argument is the window title consumed by start.
		return "cmd", []string{"/c", "start", "", url}
	default:
		return "xdg-open", []string{url}
	}
}
