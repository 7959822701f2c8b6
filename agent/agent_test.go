package agent

import (
	"errors"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"coordinator", RoleCoordinator},
		{"worker", RoleWorker},
		// Legacy spellings from existing deployments.
		{"master", RoleCoordinator},
		{"slave", RoleWorker},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if err != nil {
			t.Errorf("ParseRole(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseRole(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRoleUnknown(t *testing.T) {
	for _, in := range []string{"", "observer", "COORDINATOR"} {
		if _, err := ParseRole(in); !errors.Is(err, ErrUnknownRole) {
			t.Errorf("ParseRole(%q): got %v, want ErrUnknownRole", in, err)
		}
	}
}

func TestFromExit(t *testing.T) {
	if r := FromExit(0, "/results/results.jtl"); r.Status != StatusSuccess {
		t.Errorf("exit 0 mapped to %v", r.Status)
	}
	for _, code := range []int{1, 2, 137} {
		if r := FromExit(code, "/results/results.jtl"); r.Status != StatusFailed {
			t.Errorf("exit %d mapped to %v", code, r.Status)
		}
	}

	r := FromExit(0, "/results/out.jtl")
	if r.ArtifactPath != "/results/out.jtl" {
		t.Errorf("artifact path = %q", r.ArtifactPath)
	}
}
