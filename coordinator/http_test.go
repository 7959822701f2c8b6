package coordinator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/kamal-sdet/ekspods/agent"
	"github.com/kamal-sdet/ekspods/fetch"
	"github.com/kamal-sdet/ekspods/trigger"
)

func testCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	cfg := testConfig(t, 1)
	gate := trigger.New(cfg.TriggerPath)
	return New(cfg, fetch.Resolve(cfg.WorkDir), &fakeEngine{}, gate, nil, nil)
}

func TestTriggerEndpointRaisesGate(t *testing.T) {
	coord := testCoordinator(t)
	srv := httptest.NewServer(coord.Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/run/trigger", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /run/trigger: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !coord.Gate().Present() {
		t.Fatal("trigger endpoint did not raise the gate")
	}
}

func TestTriggerEndpointRejectsGet(t *testing.T) {
	coord := testCoordinator(t)
	srv := httptest.NewServer(coord.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/run/trigger")
	if err != nil {
		t.Fatalf("GET /run/trigger: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		t.Fatal("GET accepted on a POST-only route")
	}
}

func TestStatusEndpoint(t *testing.T) {
	coord := testCoordinator(t)
	srv := httptest.NewServer(coord.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/run/status")
	if err != nil {
		t.Fatalf("GET /run/status: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if body["status"] != "creating" {
		t.Errorf("status = %q, want creating", body["status"])
	}
	if body["run_id"] != coord.RunID() {
		t.Errorf("run_id = %q", body["run_id"])
	}
}

func TestResultsEndpoint(t *testing.T) {
	coord := testCoordinator(t)
	srv := httptest.NewServer(coord.Router())
	defer srv.Close()

	// Before the run terminates there is nothing to serve.
	resp, err := http.Get(srv.URL + "/run/results")
	if err != nil {
		t.Fatalf("GET /run/results: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("pre-terminal status = %d, want 404", resp.StatusCode)
	}

	if err := os.WriteFile(coord.cfg.ResultsPath, []byte("label,elapsed\n"), 0o644); err != nil {
		t.Fatalf("writing artifact: %v", err)
	}
	coord.mu.Lock()
	coord.state = StateResultAvailable
	coord.result = &agent.RunResult{Status: agent.StatusSuccess, ArtifactPath: coord.cfg.ResultsPath}
	coord.mu.Unlock()

	resp, err = http.Get(srv.URL + "/run/results")
	if err != nil {
		t.Fatalf("GET /run/results: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("post-terminal status = %d", resp.StatusCode)
	}
}
