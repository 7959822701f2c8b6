// Package agent defines the shared run lifecycle types: the role a node
// plays in a distributed load-test run, the lifecycle interface both roles
// implement, and the terminal result of a run.
package agent

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when ROLE names neither a coordinator nor a worker.
var ErrUnknownRole = errors.New("unknown role")

// Role selects which state machine a node runs.
type Role int

const (
	RoleCoordinator Role = iota
	RoleWorker
)

func (r Role) String() string {
	switch r {
	case RoleCoordinator:
		return "coordinator"
	case RoleWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// ParseRole maps the ROLE configuration value to a Role. The legacy
// "master"/"slave" spellings are accepted for compatibility with existing
// deployments.
func ParseRole(s string) (Role, error) {
	switch s {
	case "coordinator", "master":
		return RoleCoordinator, nil
	case "worker", "slave":
		return RoleWorker, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Status is the terminal outcome of a run.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "SUCCESS"
	}
	return "FAILED"
}

// RunResult is produced exactly once per run and read by whatever external
// process serves results.
type RunResult struct {
	Status       Status
	ArtifactPath string
}

// FromExit maps an engine exit code to a RunResult. Exit code 0 is the only
// success signal the opaque engine provides.
func FromExit(code int, artifactPath string) RunResult {
	status := StatusFailed
	if code == 0 {
		status = StatusSuccess
	}
	return RunResult{Status: status, ArtifactPath: artifactPath}
}

// Agent is the lifecycle both the coordinator and the worker implement.
// Run blocks until the node reaches a terminal state.
type Agent interface {
	Run(ctx context.Context) (RunResult, error)
}
