// Package address derives deterministic network identities for workers from
// their ordinals. The coordinator uses it to build the peer list; each worker
// uses it to resolve its own ordinal from its hostname. No name resolution
// happens here: DNS is consulted lazily when a connection is actually made.
package address

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrOrdinalUnresolvable is returned when a hostname carries no trailing
// integer to derive an ordinal from.
var ErrOrdinalUnresolvable = errors.New("ordinal unresolvable from hostname")

// Identity is a worker's stable network identity. It is computed once, never
// negotiated at runtime.
type Identity struct {
	Ordinal int
	Host    string
	Port    int
}

// ControlAddr is the host:port the worker's control listener is reached at.
func (id Identity) ControlAddr() string {
	return fmt.Sprintf("%s:%d", id.Host, id.Port)
}

// For constructs the identity of the worker with the given ordinal. The host
// follows the stable-network-identity convention
// "<service>-<ordinal>.<service>.<namespace>.<domain>".
func For(ordinal int, namespace, service, domain string, port int) Identity {
	return Identity{
		Ordinal: ordinal,
		Host:    fmt.Sprintf("%s-%d.%s.%s.%s", service, ordinal, service, namespace, domain),
		Port:    port,
	}
}

// Peers returns the identities for ordinals 0..n-1 in ascending order.
func Peers(n int, namespace, service, domain string, port int) []Identity {
	peers := make([]Identity, 0, n)
	for i := 0; i < n; i++ {
		peers = append(peers, For(i, namespace, service, domain, port))
	}
	return peers
}

// PeerList joins peer control addresses with commas in ascending ordinal
// order, the form the load engine expects for its remote-start argument.
func PeerList(peers []Identity) string {
	addrs := make([]string, 0, len(peers))
	for _, p := range peers {
		addrs = append(addrs, p.ControlAddr())
	}
	return strings.Join(addrs, ",")
}

// OrdinalFromHostname extracts the trailing integer of a hostname, the
// ordinal a stable-identity pod carries in its name. A hostname without
// trailing digits yields ErrOrdinalUnresolvable; the caller decides whether
// to fall back to ordinal 0 or to fail fast.
func OrdinalFromHostname(hostname string) (int, error) {
	end := len(hostname)
	start := end
	for start > 0 && hostname[start-1] >= '0' && hostname[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0, fmt.Errorf("%w: %q", ErrOrdinalUnresolvable, hostname)
	}

	ordinal, err := strconv.Atoi(hostname[start:end])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrOrdinalUnresolvable, hostname)
	}
	return ordinal, nil
}
