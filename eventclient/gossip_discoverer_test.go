package eventclient

import (
	"net"
	"testing"

	"github.com/hashicorp/memberlist"
)

func TestGossipMetaRoundTrip(t *testing.T) {
	meta := nodeGossipMeta{tcpPort: 1113, secureTCPPort: 1114, writerRank: 3}
	decoded, err := decodeGossipMeta(encodeGossipMeta(meta))
	if err != nil {
		t.Fatalf("decodeGossipMeta: %v", err)
	}
	if decoded != meta {
		t.Fatalf("round trip mismatch: got %+v want %+v", decoded, meta)
	}
}

func TestSelectEndpointPicksLowestWriterRank(t *testing.T) {
	members := []*memberlist.Node{
		{Addr: net.ParseIP("10.0.0.1"), Meta: encodeGossipMeta(nodeGossipMeta{tcpPort: 1113, writerRank: 5})},
		{Addr: net.ParseIP("10.0.0.2"), Meta: encodeGossipMeta(nodeGossipMeta{tcpPort: 1113, writerRank: 1})},
		{Addr: net.ParseIP("10.0.0.3"), Meta: encodeGossipMeta(nodeGossipMeta{tcpPort: 1113, writerRank: 9})},
	}

	got, err := selectEndpoint(members, nil)
	if err != nil {
		t.Fatalf("selectEndpoint: %v", err)
	}
	if got.Host != "10.0.0.2" {
		t.Fatalf("expected the lowest-writerRank node, got %+v", got)
	}
}

func TestSelectEndpointSkipsMembersWithoutUsableMeta(t *testing.T) {
	members := []*memberlist.Node{
		{Addr: net.ParseIP("10.0.0.1"), Meta: nil},
		{Addr: net.ParseIP("10.0.0.2"), Meta: encodeGossipMeta(nodeGossipMeta{tcpPort: 1113, writerRank: 2})},
	}

	got, err := selectEndpoint(members, nil)
	if err != nil {
		t.Fatalf("selectEndpoint: %v", err)
	}
	if got.Host != "10.0.0.2" {
		t.Fatalf("expected the only member with usable metadata, got %+v", got)
	}
}

func TestSelectEndpointExcludesFailedEndpoint(t *testing.T) {
	members := []*memberlist.Node{
		{Addr: net.ParseIP("10.0.0.1"), Meta: encodeGossipMeta(nodeGossipMeta{tcpPort: 1113, writerRank: 1})},
		{Addr: net.ParseIP("10.0.0.2"), Meta: encodeGossipMeta(nodeGossipMeta{tcpPort: 1113, writerRank: 2})},
	}
	failed := NodeEndpoints{Host: "10.0.0.1", TCPPort: 1113}

	got, err := selectEndpoint(members, &failed)
	if err != nil {
		t.Fatalf("selectEndpoint: %v", err)
	}
	if got.Host != "10.0.0.2" {
		t.Fatalf("expected the failed endpoint to be excluded, got %+v", got)
	}
}

func TestSelectEndpointErrorsWithNoCandidates(t *testing.T) {
	if _, err := selectEndpoint(nil, nil); err == nil {
		t.Fatal("expected error with no members")
	}
}
