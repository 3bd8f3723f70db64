package peers

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/mosaicnetworks/warroom/src/common"
)

// PeerSet is the set of Peers taking part in a simulation run. The Peers slice
// keeps insertion order, which is also the order in which the scheduler steps
// nodes, so it must not be reshuffled after construction.
type PeerSet struct {
	Peers     []*Peer          `json:"peers"`
	ByID      map[uint32]*Peer `json:"-"`
	ByMoniker map[string]*Peer `json:"-"`

	//cached values
	maxTolerated *int
}

/* Constructors */

// NewPeerSet creates a new PeerSet from a list of Peers
func NewPeerSet(peers []*Peer) *PeerSet {
	peerSet := &PeerSet{
		ByID:      make(map[uint32]*Peer),
		ByMoniker: make(map[string]*Peer),
	}

	for _, peer := range peers {
		peerSet.ByID[peer.ID] = peer
		if peer.Moniker != "" {
			peerSet.ByMoniker[peer.Moniker] = peer
		}
	}

	peerSet.Peers = peers

	return peerSet
}

// WithNewPeer returns a new PeerSet with a list of peers including the new
// one.
func (peerSet *PeerSet) WithNewPeer(peer *Peer) *PeerSet {
	peers := peerSet.Peers

	//don't add it if it already exists
	if _, ok := peerSet.ByID[peer.ID]; !ok {
		peers = append(peers, peer)
	}

	newPeerSet := NewPeerSet(peers)
	return newPeerSet
}

/* ToSlice Methods */

// IDs returns the PeerSet's slice of IDs, in insertion order.
func (peerSet *PeerSet) IDs() []uint32 {
	res := []uint32{}

	for _, peer := range peerSet.Peers {
		res = append(res, peer.ID)
	}

	return res
}

/* Selectors */

// WithRole returns the peers holding the given role, in insertion order.
func (peerSet *PeerSet) WithRole(r Role) []*Peer {
	res := []*Peer{}

	for _, peer := range peerSet.Peers {
		if peer.Role == r {
			res = append(res, peer)
		}
	}

	return res
}

// FirstWithRole returns the first peer holding the given role, or an
// UnknownNode error when no peer does.
func (peerSet *PeerSet) FirstWithRole(r Role) (*Peer, error) {
	for _, peer := range peerSet.Peers {
		if peer.Role == r {
			return peer, nil
		}
	}
	return nil, common.NewSimErr("peers", common.UnknownNode, r.String())
}

// Faulty returns the peers marked faulty, in insertion order.
func (peerSet *PeerSet) Faulty() []*Peer {
	res := []*Peer{}

	for _, peer := range peerSet.Peers {
		if peer.Faulty {
			res = append(res, peer)
		}
	}

	return res
}

// Get returns the peer with the given id, or an UnknownNode error.
func (peerSet *PeerSet) Get(id uint32) (*Peer, error) {
	peer, ok := peerSet.ByID[id]
	if !ok {
		return nil, common.NewSimErr("peers", common.UnknownNode, strconv.FormatUint(uint64(id), 10))
	}
	return peer, nil
}

/* Utilities */

// Len returns the number of Peers in the PeerSet
func (peerSet *PeerSet) Len() int {
	return len(peerSet.Peers)
}

// MaxTolerated returns the maximum number of traitors the oral-message
// agreement protocol tolerates with this many peers, floor((n-1)/3).
func (peerSet *PeerSet) MaxTolerated() int {
	if peerSet.maxTolerated == nil {
		val := 0
		if peerSet.Len() > 0 {
			val = (peerSet.Len() - 1) / 3
		}
		peerSet.maxTolerated = &val
	}
	return *peerSet.maxTolerated
}

// Marshal marshals the peerset
func (peerSet *PeerSet) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(peerSet.Peers); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
