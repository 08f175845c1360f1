package eventclient

import (
	"context"
	"fmt"
)

// NodeEndpoints is the resolved address pair spec.md §3/§6 describes:
// a plaintext TCP endpoint and an optional secure one.
type NodeEndpoints struct {
	Host          string
	TCPPort       int
	SecureTCPPort int // 0 if not offered
}

// TCPAddr returns the plaintext dial address.
func (n NodeEndpoints) TCPAddr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.TCPPort)
}

// SecureTCPAddr returns the TLS dial address, and whether one was offered.
func (n NodeEndpoints) SecureTCPAddr() (string, bool) {
	if n.SecureTCPPort == 0 {
		return "", false
	}
	return fmt.Sprintf("%s:%d", n.Host, n.SecureTCPPort), true
}

// EndpointDiscoverer resolves candidate node endpoints. spec.md §4.2:
// discovery either resolves or fails; failures are not retried inside the
// discoverer, the engine retries by scheduling a new reconnection attempt
// after reconnectionDelay.
type EndpointDiscoverer interface {
	// Discover resolves endpoints, given the previously failed endpoint if
	// this attempt follows a failure (nil on the very first attempt).
	Discover(ctx context.Context, failedEndpoint *NodeEndpoints) (NodeEndpoints, error)
}

// StaticEndpointDiscoverer cycles through a fixed list of candidate
// endpoints round-robin. Grounded on the teacher's DefaultServerChooser,
// adapted from "pick a URI string to try" to "resolve a NodeEndpoints
// pair" and from an explicit chooser object to the EndpointDiscoverer seam
// spec.md §4.2 names.
type StaticEndpointDiscoverer struct {
	endpoints []NodeEndpoints
	next      int
}

// NewStaticEndpointDiscoverer returns a discoverer over a fixed endpoint
// list. At least one endpoint is required.
func NewStaticEndpointDiscoverer(endpoints ...NodeEndpoints) *StaticEndpointDiscoverer {
	return &StaticEndpointDiscoverer{endpoints: endpoints}
}

// Discover returns the next endpoint in round-robin order. If
// failedEndpoint matches the current head, it advances first so a repeated
// failure against the same node does not get retried immediately.
func (d *StaticEndpointDiscoverer) Discover(ctx context.Context, failedEndpoint *NodeEndpoints) (NodeEndpoints, error) {
	if d == nil || len(d.endpoints) == 0 {
		return NodeEndpoints{}, wrapError(ErrCannotEstablishConnection, "no static endpoints configured")
	}
	if failedEndpoint != nil && d.endpoints[d.next%len(d.endpoints)] == *failedEndpoint {
		d.next++
	}
	endpoint := d.endpoints[d.next%len(d.endpoints)]
	d.next++
	return endpoint, nil
}
