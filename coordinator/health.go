package coordinator

import (
	"context"
	"fmt"
	"log"
	"time"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/kamal-sdet/ekspods/address"
)

// HealthChecker waits for every worker's readiness listener to report
// SERVING before the run launches, so no invocation reaches a worker whose
// shard-bound engine server is not up yet.
type HealthChecker struct {
	// AgentPort is the port workers expose their health listener on.
	AgentPort int
	// Interval between probes of a not-yet-ready worker.
	Interval time.Duration
	// Timeout bounds the whole readiness wait.
	Timeout time.Duration
}

// NewHealthChecker returns a checker with the given per-worker health port.
func NewHealthChecker(agentPort int, interval time.Duration) *HealthChecker {
	return &HealthChecker{
		AgentPort: agentPort,
		Interval:  interval,
		Timeout:   5 * time.Minute,
	}
}

// Await blocks until every peer is SERVING, the timeout elapses, or the
// context is cancelled.
func (h *HealthChecker) Await(ctx context.Context, peers []address.Identity) error {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	for _, peer := range peers {
		addr := fmt.Sprintf("%s:%d", peer.Host, h.AgentPort)
		if err := h.awaitOne(ctx, addr); err != nil {
			return fmt.Errorf("worker %d not ready: %w", peer.Ordinal, err)
		}
		log.Printf("worker %d ready at %s", peer.Ordinal, addr)
	}
	return nil
}

func (h *HealthChecker) awaitOne(ctx context.Context, addr string) error {
	conn, err := grpc.Dial(addr, grpc.WithInsecure())
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, h.Interval)
		resp, err := client.Check(checkCtx, &healthpb.HealthCheckRequest{})
		cancel()

		if err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
