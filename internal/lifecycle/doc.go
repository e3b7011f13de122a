// Package lifecycle supervises the local document-conversion server.
//
// A Controller owns at most one child process. Start spawns it and waits
// until a readiness signal arrives (a marker substring in the output, or a
// 2xx answer from a health endpoint) or the startup timeout fires; concurrent
// callers share one attempt. Stop terminates the child without waiting. An
// exit observer registered per spawned process resets the controller to
// Stopped whenever that process dies, so a later Start begins fresh.
//
// SendConfiguration forwards the active project to the running server. It is
// kept apart from the lifecycle calls and may be repeated any number of times.
//
// Files:
//
//   - controller.go: Controller, Start/Stop/Shutdown and the state machine.
//   - spawn.go: process creation, output observers, exit observer, termination.
//   - readiness.go: health-poll readiness.
//   - configure.go: configuration requests to the managed server.
//   - errors.go: SpawnFailure, StartupTimeout and Unreachable errors.
//   - events.go: lifecycle events and publishers.
package lifecycle
