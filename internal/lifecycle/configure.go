package lifecycle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// SetProjectPath is the managed server endpoint receiving the active project.
const SetProjectPath = "/api/set-project"

// setProjectReply is the body the converter answers with. Success is a
// pointer so that servers replying with an empty or foreign body are judged
// by status code alone.
type setProjectReply struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// SendConfiguration posts project to the managed server. It does not check
// that the process is running; callers confirm that with IsRunning or a
// successful Start. Any failure is reported as an Unreachable error and does
// not change the lifecycle state.
func (c *Controller) SendConfiguration(ctx context.Context, project Project) error {
	url := c.BaseURL() + SetProjectPath
	err := c.postJSON(ctx, url, project)
	if err != nil {
		c.log.Error().Err(err).Str("url", url).Str("project", project.Name).Msg("send configuration failed")
		c.publisher.Publish(Event{Name: EventConfigError, Fields: map[string]any{"url": url, "error": err.Error()}})
		return err
	}
	c.log.Info().Str("url", url).Str("project", project.Name).Str("path", project.Path).Msg("configuration sent")
	c.publisher.Publish(Event{Name: EventConfigSent, Fields: map[string]any{"url": url, "name": project.Name}})
	return nil
}

func (c *Controller) postJSON(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HTTPTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &unreachableError{url: url, cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &unreachableError{url: url, cause: err}
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &unreachableError{url: url, status: resp.StatusCode}
	}
	var reply setProjectReply
	if json.Unmarshal(b, &reply) == nil && reply.Success != nil && !*reply.Success {
		msg := reply.Error
		if msg == "" {
			msg = "request rejected"
		}
		return &unreachableError{url: url, status: resp.StatusCode, msg: msg}
	}
	return nil
}
