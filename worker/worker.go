// Package worker implements the per-node agent: it resolves its own ordinal,
// binds its shard, advertises readiness on a gRPC health listener, and hands
// the control port to the load engine's server mode. The worker is purely
// reactive; it has no concept of the run trigger.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kamal-sdet/ekspods/address"
	"github.com/kamal-sdet/ekspods/agent"
	"github.com/kamal-sdet/ekspods/config"
	"github.com/kamal-sdet/ekspods/engine"
	"github.com/kamal-sdet/ekspods/registry"
	"github.com/kamal-sdet/ekspods/shard"
)

// ErrShardBinding is returned when the worker cannot write its local runtime
// configuration. A missing shard file is NOT this error: the worker runs
// with empty input in that case.
var ErrShardBinding = errors.New("shard binding failed")

// State is the worker lifecycle state.
type State int

const (
	StateStarting State = iota
	StateShardBound
	StateListening
	StateExecuting
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "STARTING"
	case StateShardBound:
		return "SHARD_BOUND"
	case StateListening:
		return "LISTENING"
	case StateExecuting:
		return "EXECUTING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}

// Worker is the worker-side agent.
type Worker struct {
	cfg config.Config
	eng engine.Engine
	reg *registry.Registry

	// hostname is injectable so ordinal resolution is testable.
	hostname func() (string, error)

	mu        sync.Mutex
	state     State
	ordinal   int
	shardPath string
}

var _ agent.Agent = (*Worker)(nil)

// New constructs a worker agent.
func New(cfg config.Config, eng engine.Engine, reg *registry.Registry) *Worker {
	return &Worker{
		cfg:      cfg,
		eng:      eng,
		reg:      reg,
		hostname: os.Hostname,
	}
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Ordinal returns the worker's resolved ordinal.
func (w *Worker) Ordinal() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ordinal
}

// ShardPath returns the shard file the worker has bound.
func (w *Worker) ShardPath() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shardPath
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	w.state = s
	w.mu.Unlock()
	log.Printf("worker state: %s", s)
}

// Run drives the worker to its terminal state. It blocks for the lifetime of
// the engine server process, which listens indefinitely for the
// coordinator's run invocation.
func (w *Worker) Run(ctx context.Context) (agent.RunResult, error) {
	w.setState(StateStarting)

	ordinal, err := w.resolveOrdinal()
	if err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}

	shardPath := shard.Path(w.cfg.ShardsDir, ordinal)
	if err := w.bindShard(ordinal, shardPath); err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}
	w.mu.Lock()
	w.ordinal = ordinal
	w.shardPath = shardPath
	w.mu.Unlock()
	w.setState(StateShardBound)

	self := address.For(ordinal, w.cfg.Namespace, w.cfg.ServiceName, w.cfg.ClusterDomain, w.cfg.ControlPort)
	if err := w.reg.RegisterWorker(ctx, ordinal, self.ControlAddr()); err != nil {
		log.Printf("worker registration skipped: %v", err)
	}

	stopHealth, err := w.serveHealth()
	if err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}
	defer stopHealth()
	w.setState(StateListening)

	// The run invocation itself travels over the engine's own remote
	// protocol, so EXECUTING covers the engine server's process lifetime.
	w.setState(StateExecuting)
	serveErr := w.eng.Serve(ctx, w.cfg.ControlPort, shardPath)
	w.setState(StateTerminated)

	if serveErr != nil {
		// Failure propagates to the coordinator through the engine's own
		// error signaling; the worker does not retry locally.
		return agent.RunResult{Status: agent.StatusFailed}, serveErr
	}
	return agent.RunResult{Status: agent.StatusSuccess}, nil
}

// resolveOrdinal derives the worker's ordinal from its hostname. Without
// trailing digits the worker falls back to ordinal 0, matching the existing
// deployments, unless strict mode demands a fast failure.
func (w *Worker) resolveOrdinal() (int, error) {
	host, err := w.hostname()
	if err != nil {
		return 0, fmt.Errorf("reading hostname: %w", err)
	}

	ordinal, err := address.OrdinalFromHostname(host)
	if err != nil {
		if w.cfg.StrictOrdinal {
			return 0, err
		}
		log.Printf("no ordinal in hostname %q, defaulting to 0", host)
		return 0, nil
	}
	return ordinal, nil
}

// bindShard writes the worker's runtime configuration referencing its shard
// file. A shard file that does not exist (yet, or at all) is tolerated and
// treated as empty input.
func (w *Worker) bindShard(ordinal int, shardPath string) error {
	if _, err := os.Stat(shardPath); err != nil {
		log.Printf("shard file %s not present, running with empty input", shardPath)
	}

	binding := strings.Join([]string{
		fmt.Sprintf("ordinal=%d", ordinal),
		fmt.Sprintf("dataset=%s", shardPath),
	}, "\n") + "\n"

	bindingPath := filepath.Join(w.cfg.WorkDir, "worker.properties")
	if err := os.MkdirAll(w.cfg.WorkDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrShardBinding, err)
	}
	if err := os.WriteFile(bindingPath, []byte(binding), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrShardBinding, err)
	}
	return nil
}

// serveHealth opens the agent's readiness listener: the standard gRPC health
// service the coordinator checks before launching the run.
func (w *Worker) serveHealth() (func(), error) {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", w.cfg.AgentPort))
	if err != nil {
		return nil, fmt.Errorf("opening agent listener: %w", err)
	}

	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, hs)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Printf("agent listener stopped: %v", err)
		}
	}()
	log.Printf("agent readiness listener on %s", lis.Addr())

	return grpcServer.Stop, nil
}
