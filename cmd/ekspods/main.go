// Command ekspods runs one node of a distributed load-test run: the
// coordinator or a worker, selected by ROLE.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/kamal-sdet/ekspods/agent"
	"github.com/kamal-sdet/ekspods/config"
	"github.com/kamal-sdet/ekspods/coordinator"
	"github.com/kamal-sdet/ekspods/engine"
	"github.com/kamal-sdet/ekspods/fetch"
	"github.com/kamal-sdet/ekspods/registry"
	"github.com/kamal-sdet/ekspods/trigger"
	"github.com/kamal-sdet/ekspods/worker"
)

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		sig := <-signalChan
		log.Printf("exit signal received: %v", sig)
		cancel()
	}()

	reg, err := registry.New(cfg.EtcdEndpoints)
	if err != nil {
		log.Printf("run registry unavailable, continuing without it: %v", err)
	}
	defer reg.Close()

	eng := engine.NewExec(cfg.EngineBin, engine.Options{
		Threads:   cfg.Threads,
		LoopCount: cfg.LoopCount,
	})

	switch cfg.Role {
	case agent.RoleWorker:
		runWorker(ctx, cfg, eng, reg)
	case agent.RoleCoordinator:
		runCoordinator(ctx, cfg, eng, reg)
	default:
		log.Fatalf("unhandled role: %v", cfg.Role)
	}
}

func runWorker(ctx context.Context, cfg config.Config, eng engine.Engine, reg *registry.Registry) {
	w := worker.New(cfg, eng, reg)
	result, err := w.Run(ctx)
	if err != nil {
		log.Fatalf("worker failed: %v", err)
	}
	log.Printf("worker terminated: %s", result.Status)
	if result.Status != agent.StatusSuccess {
		os.Exit(1)
	}
}

func runCoordinator(ctx context.Context, cfg config.Config, eng engine.Engine, reg *registry.Registry) {
	gate := trigger.New(cfg.TriggerPath)
	source := fetch.Resolve(cfg.TestPlanSource)
	ready := coordinator.NewHealthChecker(cfg.AgentPort, cfg.PollInterval)

	coord := coordinator.New(cfg, source, eng, gate, reg, ready)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		log.Printf("control server listening on %s", addr)
		if err := http.ListenAndServe(addr, coord.Router()); err != nil {
			log.Fatalf("control server: %v", err)
		}
	}()

	result, err := coord.Run(ctx)
	if err != nil {
		log.Fatalf("coordinator failed: %v", err)
	}

	// The process stays up after the run so the result artifact remains
	// retrievable; teardown of the node is the operator's call.
	log.Printf("run %s finished: %s, artifact at %s", coord.RunID(), result.Status, result.ArtifactPath)
	<-ctx.Done()

	if result.Status != agent.StatusSuccess {
		os.Exit(1)
	}
}
