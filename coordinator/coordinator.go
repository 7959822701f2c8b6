// Package coordinator implements the run-orchestrating agent: it fetches the
// test plan and dataset, partitions the dataset across the worker ordinals,
// blocks on the external trigger, and launches the distributed run through
// the load engine, watching it to completion.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/kamal-sdet/ekspods/address"
	"github.com/kamal-sdet/ekspods/agent"
	"github.com/kamal-sdet/ekspods/config"
	"github.com/kamal-sdet/ekspods/engine"
	"github.com/kamal-sdet/ekspods/fetch"
	"github.com/kamal-sdet/ekspods/registry"
	"github.com/kamal-sdet/ekspods/shard"
	"github.com/kamal-sdet/ekspods/trigger"
)

// ErrMissingTestPlanSource is returned when no test plan source reference is
// configured. Unrecoverable: there is nothing meaningful to retry without
// new input.
var ErrMissingTestPlanSource = errors.New("missing test plan source")

// State is the coordinator lifecycle state.
type State int

const (
	StateInit State = iota
	StateFetching
	StatePartitioning
	StateAwaitingTrigger
	StateLaunching
	StateRunning
	StateTerminated
	// StateResultAvailable is the explicit post-terminal state: the run is
	// over and the artifact stays retrievable until the node is torn down.
	StateResultAvailable
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateFetching:
		return "FETCHING"
	case StatePartitioning:
		return "PARTITIONING"
	case StateAwaitingTrigger:
		return "AWAITING_TRIGGER"
	case StateLaunching:
		return "LAUNCHING"
	case StateRunning:
		return "RUNNING"
	case StateTerminated:
		return "TERMINATED"
	case StateResultAvailable:
		return "RESULT_AVAILABLE"
	default:
		return "UNKNOWN"
	}
}

// ReadinessChecker blocks until every peer accepts a run invocation.
type ReadinessChecker interface {
	Await(ctx context.Context, peers []address.Identity) error
}

// Coordinator is the coordinator-side agent.
type Coordinator struct {
	cfg    config.Config
	source fetch.Source
	eng    engine.Engine
	gate   *trigger.Gate
	reg    *registry.Registry
	ready  ReadinessChecker

	runID string

	mu     sync.Mutex
	state  State
	result *agent.RunResult
}

var _ agent.Agent = (*Coordinator)(nil)

// New constructs a coordinator agent. A nil ReadinessChecker skips the
// pre-launch worker readiness wait.
func New(cfg config.Config, source fetch.Source, eng engine.Engine, gate *trigger.Gate, reg *registry.Registry, ready ReadinessChecker) *Coordinator {
	return &Coordinator{
		cfg:    cfg,
		source: source,
		eng:    eng,
		gate:   gate,
		reg:    reg,
		ready:  ready,
		runID:  uuid.NewString(),
	}
}

// RunID identifies this run in logs and in the registry.
func (c *Coordinator) RunID() string { return c.runID }

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the run result once a terminal state is reached.
func (c *Coordinator) Result() (agent.RunResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return agent.RunResult{}, false
	}
	return *c.result, true
}

// Gate exposes the trigger gate, raised by the HTTP control surface.
func (c *Coordinator) Gate() *trigger.Gate { return c.gate }

func (c *Coordinator) setState(ctx context.Context, s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	log.Printf("run %s: %s", c.runID, s)

	if err := c.reg.PutRunStatus(ctx, c.runID, CoarseStatus(c)); err != nil {
		log.Printf("run %s: status publication failed: %v", c.runID, err)
	}
}

func (c *Coordinator) terminate(ctx context.Context, result agent.RunResult) agent.RunResult {
	c.mu.Lock()
	c.result = &result
	c.mu.Unlock()

	c.setState(ctx, StateTerminated)
	log.Printf("run %s terminated: %s (artifact %s)", c.runID, result.Status, result.ArtifactPath)

	if err := c.reg.PutRunResult(ctx, c.runID, result.ArtifactPath); err != nil {
		log.Printf("run %s: result publication failed: %v", c.runID, err)
	}

	// The artifact stays accessible after completion so that "test finished"
	// and "result retrieved" remain decoupled.
	c.setState(ctx, StateResultAvailable)
	return result
}

// Run drives one distributed load-test run to its terminal state.
func (c *Coordinator) Run(ctx context.Context) (agent.RunResult, error) {
	c.setState(ctx, StateInit)
	if c.cfg.TestPlanSource == "" {
		return agent.RunResult{Status: agent.StatusFailed}, ErrMissingTestPlanSource
	}

	c.setState(ctx, StateFetching)
	if err := c.source.Fetch(ctx, c.cfg.WorkDir); err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, fmt.Errorf("fetching test plan source: %w", err)
	}
	planPath, err := fetch.SelectPlan(c.cfg.WorkDir)
	if err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}
	datasetPath, err := fetch.SelectDataset(c.cfg.WorkDir)
	if err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}
	log.Printf("run %s: plan %s, dataset %s", c.runID, planPath, datasetPath)

	c.setState(ctx, StatePartitioning)
	records, err := shard.ReadRecords(datasetPath)
	if err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}
	shards, err := shard.Partition(records, c.cfg.MaxShards)
	if err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}
	if err := shard.WriteAll(shards, c.cfg.ShardsDir); err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, err
	}
	log.Printf("run %s: %d records across %d shards", c.runID, len(records), len(shards))

	c.setState(ctx, StateAwaitingTrigger)
	if err := c.gate.Wait(ctx, c.cfg.PollInterval); err != nil {
		return agent.RunResult{Status: agent.StatusFailed}, fmt.Errorf("awaiting trigger: %w", err)
	}

	c.setState(ctx, StateLaunching)
	peers := address.Peers(c.cfg.MaxShards, c.cfg.Namespace, c.cfg.ServiceName, c.cfg.ClusterDomain, c.cfg.ControlPort)
	if c.ready != nil {
		if err := c.ready.Await(ctx, peers); err != nil {
			return c.terminate(ctx, agent.RunResult{Status: agent.StatusFailed}), err
		}
	}

	c.setState(ctx, StateRunning)
	code, err := c.eng.Invoke(ctx, planPath, address.PeerList(peers), c.cfg.ResultsPath)
	if err != nil {
		return c.terminate(ctx, agent.RunResult{Status: agent.StatusFailed}), err
	}

	// Nonzero exit is reported, never retried: a failed distributed run is
	// not automatically safe to re-run against the same target.
	return c.terminate(ctx, agent.FromExit(code, c.cfg.ResultsPath)), nil
}

// CoarseStatus maps the coordinator's state to the user-visible status the
// UI polls for.
func CoarseStatus(c *Coordinator) string {
	c.mu.Lock()
	state, result := c.state, c.result
	c.mu.Unlock()

	switch state {
	case StateInit, StateFetching, StatePartitioning:
		return "creating"
	case StateAwaitingTrigger:
		return "ready"
	case StateLaunching, StateRunning:
		return "running"
	case StateTerminated, StateResultAvailable:
		if result != nil && result.Status == agent.StatusSuccess {
			return "done"
		}
		return "error"
	default:
		return "creating"
	}
}
