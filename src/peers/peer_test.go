package peers

import (
	"fmt"
	"testing"

	"github.com/mosaicnetworks/warroom/src/common"
)

func testPeers(n int) []*Peer {
	peers := []*Peer{}
	for i := 1; i <= n; i++ {
		peer := NewPeer(uint32(i), fmt.Sprintf("node%d", i))
		peers = append(peers, peer)
	}
	return peers
}

func TestNewPeerSet(t *testing.T) {
	peerSet := NewPeerSet(testPeers(4))

	if peerSet.Len() != 4 {
		t.Fatalf("PeerSet should contain 4 peers, not %d", peerSet.Len())
	}

	peer, err := peerSet.Get(3)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if peer.Moniker != "node3" {
		t.Fatalf("peer 3 moniker should be node3, not %s", peer.Moniker)
	}

	if _, ok := peerSet.ByMoniker["node2"]; !ok {
		t.Fatalf("ByMoniker should contain node2")
	}

	if _, err := peerSet.Get(42); !common.IsSim(err, common.UnknownNode) {
		t.Fatalf("fetching peer 42 should return UnknownNode, not %v", err)
	}

	ids := peerSet.IDs()
	for i, id := range ids {
		if id != uint32(i+1) {
			t.Fatalf("IDs should preserve insertion order, got %v", ids)
		}
	}
}

func TestPeerSetRoles(t *testing.T) {
	peers := testPeers(4)
	peers[0].Role = Commander
	peers[2].Faulty = true

	peerSet := NewPeerSet(peers)

	commander, err := peerSet.FirstWithRole(Commander)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if commander.ID != 1 {
		t.Fatalf("commander should be peer 1, not %d", commander.ID)
	}

	if _, err := peerSet.FirstWithRole(Coordinator); !common.IsSim(err, common.UnknownNode) {
		t.Fatalf("FirstWithRole(Coordinator) should return UnknownNode, not %v", err)
	}

	lieutenants := peerSet.WithRole(Lieutenant)
	if len(lieutenants) != 3 {
		t.Fatalf("PeerSet should contain 3 lieutenants, not %d", len(lieutenants))
	}

	faulty := peerSet.Faulty()
	if len(faulty) != 1 || faulty[0].ID != 3 {
		t.Fatalf("peer 3 should be the only faulty peer, got %v", faulty)
	}
}

func TestMaxTolerated(t *testing.T) {
	for _, tt := range []struct {
		n        int
		expected int
	}{
		{0, 0},
		{1, 0},
		{3, 0},
		{4, 1},
		{7, 2},
		{10, 3},
	} {
		peerSet := NewPeerSet(testPeers(tt.n))
		if mt := peerSet.MaxTolerated(); mt != tt.expected {
			t.Fatalf("MaxTolerated with %d peers should be %d, not %d", tt.n, tt.expected, mt)
		}
	}
}

func TestFullTopology(t *testing.T) {
	peerSet := NewPeerSet(testPeers(4))
	topology := NewFullTopology(peerSet)

	neighbors, err := topology.Neighbors(2)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(neighbors) != 3 {
		t.Fatalf("peer 2 should have 3 neighbors, not %d", len(neighbors))
	}
	for i, id := range []uint32{1, 3, 4} {
		if neighbors[i] != id {
			t.Fatalf("neighbors should be sorted, got %v", neighbors)
		}
	}

	if _, err := topology.Neighbors(99); !common.IsSim(err, common.UnknownNode) {
		t.Fatalf("Neighbors(99) should return UnknownNode, not %v", err)
	}

	reachable, err := topology.ReachableFrom(1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reachable {
		t.Fatalf("full topology should be reachable from peer 1")
	}
}

func TestDisconnectedTopology(t *testing.T) {
	peerSet := NewPeerSet(testPeers(4))
	topology := NewTopology(peerSet)

	if err := topology.AddEdge(1, 2); err != nil {
		t.Fatalf("err: %v", err)
	}
	if err := topology.AddEdge(3, 4); err != nil {
		t.Fatalf("err: %v", err)
	}

	if !topology.Connected(2, 1) {
		t.Fatalf("edges should be bidirectional")
	}

	reachable, err := topology.ReachableFrom(1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if reachable {
		t.Fatalf("topology with two components should not be reachable from peer 1")
	}

	if err := topology.AddEdge(2, 3); err != nil {
		t.Fatalf("err: %v", err)
	}

	reachable, err = topology.ReachableFrom(1)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !reachable {
		t.Fatalf("topology should be reachable after bridging the components")
	}

	if err := topology.RemoveEdge(2, 3); err != nil {
		t.Fatalf("err: %v", err)
	}
	if topology.Connected(2, 3) {
		t.Fatalf("RemoveEdge should disconnect both directions")
	}

	if err := topology.AddEdge(1, 42); !common.IsSim(err, common.UnknownNode) {
		t.Fatalf("AddEdge with unknown peer should return UnknownNode, not %v", err)
	}
}
