package lifecycle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// healthProbeTimeout bounds a single health request.
const healthProbeTimeout = time.Second

// pollHealth signals readiness for p once the managed server answers 2xx on
// HealthPath. Polling ends when p exits, is terminated, or the startup
// timeout elapses; awaitReady owns the timeout outcome.
func (c *Controller) pollHealth(p *managedProc) {
	url := c.BaseURL() + c.cfg.HealthPath
	attempt := 0
	err := wait.PollUntilContextTimeout(p.ctx, c.cfg.HealthInterval, c.cfg.StartupTimeout, true,
		func(ctx context.Context) (bool, error) {
			select {
			case <-p.exited:
				return false, ErrExitedBeforeReady
			default:
			}
			attempt++
			return c.isHealthy(ctx, url), nil
		})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.log.Debug().Err(err).Int("pid", p.pid).Int("attempts", attempt).Msg("health poll ended")
		}
		return
	}
	c.log.Debug().Int("pid", p.pid).Int("attempts", attempt).Str("url", url).Msg("health check passed")
	p.markReady()
}

// isHealthy reports whether url responds 2xx within healthProbeTimeout.
func (c *Controller) isHealthy(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
