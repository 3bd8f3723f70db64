package peers

import (
	"fmt"

	"github.com/mosaicnetworks/warroom/src/common"
)

// Role tags the part a peer plays in the simulated protocol. The scheduler
// itself ignores roles; they are read by the algorithm behaviors and by the
// driver when it wires a scenario together.
type Role uint8

const (
	// Lieutenant receives and relays orders in the generals scenarios.
	Lieutenant Role = iota
	// Commander issues the initial order.
	Commander
	// Participant votes on a transaction in the commit scenarios.
	Participant
	// Coordinator drives the commit protocol.
	Coordinator
)

// String ...
func (r Role) String() string {
	switch r {
	case Lieutenant:
		return "lieutenant"
	case Commander:
		return "commander"
	case Participant:
		return "participant"
	case Coordinator:
		return "coordinator"
	}
	return fmt.Sprintf("role-%d", r)
}

// Peer is a node of the simulated network. IDs are small sequential integers
// assigned by the caller; they double as the delivery addresses used in
// messages. Faulty marks traitors in the generals scenarios; PubKeyHex is only
// set when the scenario authenticates messages.
type Peer struct {
	ID        uint32 `json:"id"`
	Moniker   string `json:"moniker,omitempty"`
	Role      Role   `json:"role"`
	Faulty    bool   `json:"faulty,omitempty"`
	PubKeyHex string `json:"pub_key,omitempty"`
}

// NewPeer instantiates a Peer with the default Lieutenant role.
func NewPeer(id uint32, moniker string) *Peer {
	return &Peer{
		ID:      id,
		Moniker: moniker,
	}
}

// PubKeyBytes decodes the hexadecimal representation of the peer's public key.
func (p *Peer) PubKeyBytes() ([]byte, error) {
	return common.DecodeFromString(p.PubKeyHex)
}
