package address

import (
	"errors"
	"testing"
)

func TestForLiteralForm(t *testing.T) {
	id := For(3, "jmeter", "jmeter-slaves", "svc.cluster.local", 50000)

	want := "jmeter-slaves-3.jmeter-slaves.jmeter.svc.cluster.local"
	if id.Host != want {
		t.Errorf("host = %q, want %q", id.Host, want)
	}
	if got := id.ControlAddr(); got != want+":50000" {
		t.Errorf("control addr = %q", got)
	}
	if id.Ordinal != 3 {
		t.Errorf("ordinal = %d", id.Ordinal)
	}
}

func TestPeersInjective(t *testing.T) {
	peers := Peers(8, "jmeter", "jmeter-slaves", "svc.cluster.local", 50000)
	if len(peers) != 8 {
		t.Fatalf("expected 8 peers, got %d", len(peers))
	}

	seen := make(map[string]bool)
	for i, p := range peers {
		if p.Ordinal != i {
			t.Errorf("peer %d has ordinal %d", i, p.Ordinal)
		}
		if seen[p.Host] {
			t.Errorf("duplicate host %q", p.Host)
		}
		seen[p.Host] = true
	}
}

func TestPeerListOrder(t *testing.T) {
	peers := Peers(2, "ns", "svc", "svc.cluster.local", 1099)

	want := "svc-0.svc.ns.svc.cluster.local:1099,svc-1.svc.ns.svc.cluster.local:1099"
	if got := PeerList(peers); got != want {
		t.Errorf("peer list = %q, want %q", got, want)
	}
}

func TestOrdinalFromHostname(t *testing.T) {
	tests := []struct {
		hostname string
		want     int
		wantErr  bool
	}{
		{"jmeter-slaves-0", 0, false},
		{"jmeter-slaves-17", 17, false},
		{"worker3", 3, false},
		{"jmeter-master", 0, true},
		{"", 0, true},
		{"slaves-2-extra", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			got, err := OrdinalFromHostname(tt.hostname)
			if tt.wantErr {
				if !errors.Is(err, ErrOrdinalUnresolvable) {
					t.Fatalf("got err %v, want ErrOrdinalUnresolvable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ordinal = %d, want %d", got, tt.want)
			}
		})
	}
}
