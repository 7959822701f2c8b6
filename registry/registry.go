// Package registry publishes run state to etcd so operators and the web
// backend can observe a run without reaching into the pods. It is optional:
// a nil *Registry is a no-op on every method.
package registry

import (
	"context"
	"fmt"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
)

const opTimeout = 10 * time.Second

// Registry is a thin etcd KV wrapper with a fixed key layout:
//
//	run/<runID>/status  -> coarse run status
//	run/<runID>/result  -> result artifact path
//	worker/<ordinal>    -> worker control address
type Registry struct {
	cli *clientv3.Client
}

// New connects to etcd. An empty endpoint list yields a nil registry, which
// disables publication entirely.
func New(endpoints []string) (*Registry, error) {
	if len(endpoints) == 0 {
		return nil, nil
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: opTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to etcd: %w", err)
	}
	return &Registry{cli: cli}, nil
}

// RunStatusKey is the key a run's coarse status lives under.
func RunStatusKey(runID string) string { return "run/" + runID + "/status" }

// RunResultKey is the key a run's result artifact path lives under.
func RunResultKey(runID string) string { return "run/" + runID + "/result" }

// WorkerKey is the key a worker registers its control address under.
func WorkerKey(ordinal int) string { return fmt.Sprintf("worker/%d", ordinal) }

// PutRunStatus publishes the coarse status of a run.
func (r *Registry) PutRunStatus(ctx context.Context, runID, status string) error {
	return r.put(ctx, RunStatusKey(runID), status)
}

// PutRunResult publishes the result artifact path of a terminated run.
func (r *Registry) PutRunResult(ctx context.Context, runID, artifactPath string) error {
	return r.put(ctx, RunResultKey(runID), artifactPath)
}

// RegisterWorker records a worker's control address under its ordinal.
func (r *Registry) RegisterWorker(ctx context.Context, ordinal int, addr string) error {
	return r.put(ctx, WorkerKey(ordinal), addr)
}

func (r *Registry) put(ctx context.Context, key, value string) error {
	if r == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := r.cli.Put(ctx, key, value); err != nil {
		return fmt.Errorf("etcd put %s: %w", key, err)
	}
	return nil
}

// Close releases the etcd connection.
func (r *Registry) Close() error {
	if r == nil {
		return nil
	}
	return r.cli.Close()
}
