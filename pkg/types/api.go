// Package types holds the JSON payloads of the bridge's control API.
package types

// ProjectRequest is the body of POST /open and POST /project.
type ProjectRequest struct {
	// Vault directory handed to the converter. "~" is expanded.
	// example: ~/Notes
	Path string `json:"path" example:"~/Notes"`
	// Optional project name. Defaults to the directory's base name.
	// example: Notes
	Name string `json:"name,omitempty" example:"Notes"`
}

// ProjectResponse reports the project the converter was configured with.
type ProjectResponse struct {
	// Absolute vault path sent to the converter.
	// example: /home/user/Notes
	Path string `json:"path" example:"/home/user/Notes"`
	// Project name sent to the converter.
	// example: Notes
	Name string `json:"name" example:"Notes"`
	// Converter UI address.
	// example: http://localhost:5002
	URL string `json:"url" example:"http://localhost:5002"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// StatusResponse is returned by GET /status, POST /start and POST /stop.
type StatusResponse struct {
	// Lifecycle state: stopped, starting or running.
	// example: running
	State string `json:"state" example:"running"`
	// Convenience flag, true only in the running state.
	// example: true
	Running bool `json:"running" example:"true"`
	// Process ID of the converter while one exists.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Converter UI address.
	// example: http://localhost:5002
	BaseURL string `json:"base_url" example:"http://localhost:5002"`
	// Start time of the current process (unix seconds).
	// example: 1700000000
	StartedUnix int64 `json:"started_unix,omitempty" example:"1700000000"`
	// Exit error of the last process that died on its own.
	LastExit string `json:"last_exit,omitempty"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// EventRecord is one controller lifecycle event.
type EventRecord struct {
	// Event name, e.g. spawn_start, spawn_ready, spawn_exit or stop.
	// example: spawn_ready
	Name string `json:"name" example:"spawn_ready"`
	// Converter process ID, when the event concerns one.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// When the bridge logged the event (unix seconds).
	// example: 1700000000
	AtUnix int64 `json:"at_unix" example:"1700000000"`
	// Event details such as the converter URL or an error message.
	Fields map[string]any `json:"fields,omitempty"`
}

// EventsResponse is returned by GET /events.
type EventsResponse struct {
	// Recent events, oldest first.
	Events []EventRecord `json:"events"`
}
