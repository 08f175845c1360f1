package eventclient

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"sync"

	"github.com/hashicorp/memberlist"
	"google.golang.org/protobuf/encoding/protowire"
)

// nodeGossipMeta is the per-node metadata advertised over the gossip
// protocol: the endpoint a client can dial, plus a writerRank standing in
// for the out-of-scope cluster consensus protocol (spec.md §1 excludes
// cluster consensus; the lowest writerRank is treated as the current
// "master" purely so this discoverer has something deterministic to
// resolve to, mirroring the NotMaster-redirect vocabulary in spec.md §6).
//
// Encoded with protowire's low-level tag/varint primitives rather than a
// generated .pb.go message: this environment has no protoc toolchain, and
// a hand-written struct pretending to implement proto.Message would be
// fragile and unlike genuinely generated code (see DESIGN.md).
type nodeGossipMeta struct {
	tcpPort       uint32
	secureTCPPort uint32
	writerRank    uint32
}

const (
	fieldTCPPort       = 1
	fieldSecureTCPPort = 2
	fieldWriterRank    = 3
)

func encodeGossipMeta(m nodeGossipMeta) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldTCPPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.tcpPort))
	b = protowire.AppendTag(b, fieldSecureTCPPort, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.secureTCPPort))
	b = protowire.AppendTag(b, fieldWriterRank, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.writerRank))
	return b
}

func decodeGossipMeta(b []byte) (nodeGossipMeta, error) {
	var m nodeGossipMeta
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return m, wrapError(ErrBadRequest, "malformed gossip metadata tag")
		}
		b = b[n:]
		val, n := protowire.ConsumeVarint(b)
		if n < 0 || typ != protowire.VarintType {
			return m, wrapError(ErrBadRequest, "malformed gossip metadata value")
		}
		b = b[n:]
		switch num {
		case fieldTCPPort:
			m.tcpPort = uint32(val)
		case fieldSecureTCPPort:
			m.secureTCPPort = uint32(val)
		case fieldWriterRank:
			m.writerRank = uint32(val)
		}
	}
	return m, nil
}

// gossipDelegate implements memberlist.Delegate, advertising this client's
// own metadata (irrelevant to a read-only discovery client beyond keeping
// memberlist satisfied) and ignoring user messages/broadcasts/state sync,
// none of which this discoverer needs — it only cares about membership,
// not memberlist's optional application-message channel.
type gossipDelegate struct {
	meta []byte
}

func (d *gossipDelegate) NodeMeta(limit int) []byte {
	if len(d.meta) > limit {
		return d.meta[:limit]
	}
	return d.meta
}
func (d *gossipDelegate) NotifyMsg([]byte)                           {}
func (d *gossipDelegate) GetBroadcasts(overhead, limit int) [][]byte { return nil }
func (d *gossipDelegate) LocalState(join bool) []byte                { return nil }
func (d *gossipDelegate) MergeRemoteState(buf []byte, join bool)     {}

// gossipEventDelegate logs membership churn. Grounded on
// raskyld-grinta's gossip.go NotifyJoin/NotifyLeave/NotifyUpdate delegate,
// simplified from Serf's serf.Event stream to memberlist's bare
// EventDelegate since this discoverer needs membership only, not Serf's
// user-event/query subsystem.
type gossipEventDelegate struct {
	logger *slog.Logger
}

func (g *gossipEventDelegate) NotifyJoin(n *memberlist.Node) {
	g.logger.Debug("gossip peer joined", slog.String("node", n.Name))
}
func (g *gossipEventDelegate) NotifyLeave(n *memberlist.Node) {
	g.logger.Debug("gossip peer left", slog.String("node", n.Name))
}
func (g *gossipEventDelegate) NotifyUpdate(n *memberlist.Node) {
	g.logger.Debug("gossip peer updated", slog.String("node", n.Name))
}

// GossipEndpointDiscoverer resolves candidate endpoints by joining a
// memberlist cluster seeded via DNS and/or an explicit seed list, then
// picking the member advertising the lowest writerRank. Grounded on
// raskyld-grinta's fabric.go memberlist.Config wiring.
type GossipEndpointDiscoverer struct {
	mu       sync.Mutex
	list     *memberlist.Memberlist
	settings ClusterSettings
}

// NewGossipEndpointDiscoverer creates and starts a memberlist agent bound
// to settings.GossipPort, then joins the configured seeds (resolving
// ClusterDNS to A/AAAA records first, if set).
func NewGossipEndpointDiscoverer(settings ClusterSettings, logger *slog.Logger) (*GossipEndpointDiscoverer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg := memberlist.DefaultLANConfig()
	if settings.GossipPort > 0 {
		cfg.BindPort = settings.GossipPort
		cfg.AdvertisePort = settings.GossipPort
	}
	cfg.Delegate = &gossipDelegate{meta: encodeGossipMeta(nodeGossipMeta{})}
	cfg.Events = &gossipEventDelegate{logger: logger}
	cfg.LogOutput = slog.NewLogLogger(logger.Handler(), slog.LevelDebug).Writer()

	list, err := memberlist.Create(cfg)
	if err != nil {
		return nil, wrapError(ErrCannotEstablishConnection, "starting gossip agent: ", err)
	}

	seeds := append([]string(nil), settings.Seeds...)
	if settings.ClusterDNS != "" {
		resolved, err := net.DefaultResolver.LookupHost(context.Background(), settings.ClusterDNS)
		if err != nil {
			_ = list.Shutdown()
			return nil, wrapError(ErrCannotEstablishConnection, "resolving cluster DNS: ", err)
		}
		seeds = append(seeds, resolved...)
	}
	if len(seeds) == 0 {
		_ = list.Shutdown()
		return nil, wrapError(ErrInvalidArgument, "cluster settings must provide seeds or clusterDns")
	}

	if _, err := list.Join(seeds); err != nil {
		_ = list.Shutdown()
		return nil, wrapError(ErrCannotEstablishConnection, "joining gossip cluster: ", err)
	}

	return &GossipEndpointDiscoverer{list: list, settings: settings}, nil
}

// Discover picks the live member with the lowest advertised writerRank,
// never choosing failedEndpoint. Returns ErrCannotEstablishConnection if no
// other member advertises usable metadata.
func (d *GossipEndpointDiscoverer) Discover(ctx context.Context, failedEndpoint *NodeEndpoints) (NodeEndpoints, error) {
	if d == nil || d.list == nil {
		return NodeEndpoints{}, wrapError(ErrCannotEstablishConnection, "gossip discoverer not started")
	}
	return selectEndpoint(d.list.Members(), failedEndpoint)
}

// selectEndpoint contains Discover's picking logic as a pure function of a
// member list, so it can be exercised without a live memberlist agent.
func selectEndpoint(members []*memberlist.Node, failedEndpoint *NodeEndpoints) (NodeEndpoints, error) {
	type candidate struct {
		endpoint NodeEndpoints
		rank     uint32
	}

	var candidates []candidate
	for _, member := range members {
		meta, err := decodeGossipMeta(member.Meta)
		if err != nil || meta.tcpPort == 0 {
			continue
		}
		endpoint := NodeEndpoints{
			Host:          member.Addr.String(),
			TCPPort:       int(meta.tcpPort),
			SecureTCPPort: int(meta.secureTCPPort),
		}
		if failedEndpoint != nil && endpoint == *failedEndpoint {
			continue
		}
		candidates = append(candidates, candidate{endpoint: endpoint, rank: meta.writerRank})
	}

	if len(candidates) == 0 {
		return NodeEndpoints{}, wrapError(ErrCannotEstablishConnection, "no gossip member advertised a usable endpoint")
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].rank < candidates[j].rank })
	return candidates[0].endpoint, nil
}

// Close leaves the gossip cluster and releases its socket.
func (d *GossipEndpointDiscoverer) Close() error {
	if d == nil || d.list == nil {
		return nil
	}
	if err := d.list.Leave(d.settings.GossipTimeout); err != nil {
		return fmt.Errorf("leaving gossip cluster: %w", err)
	}
	return d.list.Shutdown()
}
