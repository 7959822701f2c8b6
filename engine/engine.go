// Package engine wraps the opaque load-generation executable. The engine
// owns the remote-execution protocol between coordinator and workers; this
// package only starts it in the right mode and reports how it exited.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
)

// Engine is the collaborator interface to the load generator.
type Engine interface {
	// Invoke runs the distributed test from the coordinator side, referencing
	// every worker in peerList, and blocks until the engine process exits.
	// The returned int is the process exit code whenever one exists.
	Invoke(ctx context.Context, planPath, peerList, outputPath string) (int, error)

	// Serve runs the engine in server mode on the control port, executing the
	// bound shard when the coordinator's run invocation arrives. It blocks
	// until the engine process exits.
	Serve(ctx context.Context, controlPort int, shardPath string) error
}

// Options are the opaque pass-through knobs handed to the engine.
type Options struct {
	Threads   int
	LoopCount int
}

// ExecEngine runs the engine binary as a subprocess.
type ExecEngine struct {
	Bin  string
	Opts Options
}

// NewExec returns an engine backed by the given binary.
func NewExec(bin string, opts Options) *ExecEngine {
	return &ExecEngine{Bin: bin, Opts: opts}
}

// InvokeArgs builds the non-interactive distributed invocation argument list.
func InvokeArgs(planPath, peerList, outputPath string, opts Options) []string {
	return []string{
		"-n",
		"-t", planPath,
		"-R", peerList,
		"-l", outputPath,
		"-Gthreads=" + strconv.Itoa(opts.Threads),
		"-Gloops=" + strconv.Itoa(opts.LoopCount),
	}
}

// ServeArgs builds the server-mode argument list for a worker.
func ServeArgs(controlPort int, shardPath string) []string {
	return []string{
		"-s",
		"-Jserver_port=" + strconv.Itoa(controlPort),
		"-Jdataset=" + shardPath,
	}
}

func (e *ExecEngine) Invoke(ctx context.Context, planPath, peerList, outputPath string) (int, error) {
	args := InvokeArgs(planPath, peerList, outputPath, e.Opts)
	log.Printf("invoking engine: %s %v", e.Bin, args)

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("invoking engine: %w", err)
}

func (e *ExecEngine) Serve(ctx context.Context, controlPort int, shardPath string) error {
	args := ServeArgs(controlPort, shardPath)
	log.Printf("starting engine server: %s %v", e.Bin, args)

	cmd := exec.CommandContext(ctx, e.Bin, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("engine server exited: %w", err)
	}
	return nil
}
