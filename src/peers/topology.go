package peers

import (
	"sort"
	"strconv"

	"github.com/mosaicnetworks/warroom/src/common"
)

// Topology is the communication graph laid over a PeerSet. Edges are
// bidirectional. The graph is meant to be built once, before the simulation
// starts; Neighbors then returns stable results for the whole run.
type Topology struct {
	peerSet *PeerSet
	edges   map[uint32]map[uint32]bool
}

// NewTopology creates an edgeless Topology over the given PeerSet.
func NewTopology(peerSet *PeerSet) *Topology {
	edges := make(map[uint32]map[uint32]bool, peerSet.Len())
	for _, p := range peerSet.Peers {
		edges[p.ID] = make(map[uint32]bool)
	}
	return &Topology{
		peerSet: peerSet,
		edges:   edges,
	}
}

// NewFullTopology creates a fully connected Topology over the given PeerSet,
// which is the default shape for all the bundled scenarios.
func NewFullTopology(peerSet *PeerSet) *Topology {
	topology := NewTopology(peerSet)
	for i, a := range peerSet.Peers {
		for _, b := range peerSet.Peers[i+1:] {
			topology.edges[a.ID][b.ID] = true
			topology.edges[b.ID][a.ID] = true
		}
	}
	return topology
}

// PeerSet returns the underlying PeerSet.
func (t *Topology) PeerSet() *PeerSet {
	return t.peerSet
}

// Contains reports whether id belongs to the underlying PeerSet.
func (t *Topology) Contains(id uint32) bool {
	_, ok := t.peerSet.ByID[id]
	return ok
}

// AddEdge connects a and b in both directions.
func (t *Topology) AddEdge(a, b uint32) error {
	if err := t.check(a, b); err != nil {
		return err
	}
	t.edges[a][b] = true
	t.edges[b][a] = true
	return nil
}

// RemoveEdge disconnects a and b in both directions.
func (t *Topology) RemoveEdge(a, b uint32) error {
	if err := t.check(a, b); err != nil {
		return err
	}
	delete(t.edges[a], b)
	delete(t.edges[b], a)
	return nil
}

func (t *Topology) check(a, b uint32) error {
	if !t.Contains(a) {
		return common.NewSimErr("topology", common.UnknownNode, strconv.FormatUint(uint64(a), 10))
	}
	if !t.Contains(b) {
		return common.NewSimErr("topology", common.UnknownNode, strconv.FormatUint(uint64(b), 10))
	}
	return nil
}

// Neighbors returns a sorted copy of the ids adjacent to id.
func (t *Topology) Neighbors(id uint32) ([]uint32, error) {
	if !t.Contains(id) {
		return nil, common.NewSimErr("topology", common.UnknownNode, strconv.FormatUint(uint64(id), 10))
	}

	res := make([]uint32, 0, len(t.edges[id]))
	for n := range t.edges[id] {
		res = append(res, n)
	}

	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })

	return res, nil
}

// Connected reports whether a and b share an edge.
func (t *Topology) Connected(a, b uint32) bool {
	return t.edges[a][b]
}

// ReachableFrom reports whether every peer can be reached from root by
// following edges. Scenario drivers use it to reject graphs where part of the
// roster could never hear from the commander or coordinator.
func (t *Topology) ReachableFrom(root uint32) (bool, error) {
	if !t.Contains(root) {
		return false, common.NewSimErr("topology", common.UnknownNode, strconv.FormatUint(uint64(root), 10))
	}

	visited := map[uint32]bool{root: true}
	stack := []uint32{root}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for n := range t.edges[id] {
			if !visited[n] {
				visited[n] = true
				stack = append(stack, n)
			}
		}
	}

	return len(visited) == t.peerSet.Len(), nil
}
