package lifecycle

import "time"

// State represents the lifecycle state of the managed process.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
)

// Project is the configuration payload forwarded to the managed server.
type Project struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Snapshot is a read-only projection of the controller state.
type Snapshot struct {
	State     State
	PID       int
	BaseURL   string
	StartedAt time.Time
	// LastExit is the wait error of the most recent child, if it exited on
	// its own with a failure.
	LastExit string
}
