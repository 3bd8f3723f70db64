package generals

import (
	"fmt"

	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/mosaicnetworks/warroom/src/sim"
	"github.com/sirupsen/logrus"
)

// GeneralConfig carries the protocol parameters shared by all generals of a
// run.
type GeneralConfig struct {
	// M is the recursion depth, the number of traitors the protocol is
	// dimensioned for.
	M int

	// Order is the order the commander issues. Lieutenants ignore it.
	Order Order

	// Default is the order used for missing reports and ties. Empty means
	// Retreat.
	Default Order

	// Policy governs what faulty generals send. A faulty general with a nil
	// Policy lies systematically.
	Policy Policy
}

// General runs the oral-messages agreement OM(m) for one member of the
// roster, commander and lieutenants alike. Reports are filed by the path
// they arrived through; at round m+1 the report tree is resolved bottom-up
// with majority votes.
type General struct {
	id          uint32
	faulty      bool
	commander   uint32
	lieutenants []uint32
	m           int
	order       Order
	dflt        Order
	policy      Policy

	// reports maps a path key to the order that arrived by that path.
	reports map[string]Order

	logger *logrus.Entry
}

// NewGeneral instantiates the behavior for peer. The peer set must hold
// exactly one commander; lieutenants are every peer with the Lieutenant role,
// in roster order.
func NewGeneral(peer *peers.Peer, peerSet *peers.PeerSet, config GeneralConfig, logger *logrus.Entry) (*General, error) {
	if config.M < 0 {
		return nil, fmt.Errorf("negative recursion depth: %d", config.M)
	}

	commander, err := peerSet.FirstWithRole(peers.Commander)
	if err != nil {
		return nil, err
	}

	lieutenants := []uint32{}
	for _, p := range peerSet.WithRole(peers.Lieutenant) {
		lieutenants = append(lieutenants, p.ID)
	}

	dflt := config.Default
	if dflt == "" {
		dflt = Retreat
	}

	policy := config.Policy
	if peer.Faulty && policy == nil {
		policy = &FlipPolicy{}
	}

	return &General{
		id:          peer.ID,
		faulty:      peer.Faulty,
		commander:   commander.ID,
		lieutenants: lieutenants,
		m:           config.M,
		order:       config.Order,
		dflt:        dflt,
		policy:      policy,
		reports:     make(map[string]Order),
		logger:      logger.WithField("node", peer.ID),
	}, nil
}

// Step implements sim.Behavior. The commander issues its orders in round 0
// and is done; lieutenants file and relay reports until round m+1, where
// they resolve and decide.
func (g *General) Step(round int, inbox []*sim.Message) ([]*sim.Message, sim.Decision, error) {
	if g.id == g.commander {
		if round == 0 {
			return g.issueOrders(), g.order.Decision(), nil
		}
		return nil, g.order.Decision(), nil
	}

	out := []*sim.Message{}
	for _, msg := range inbox {
		o, ok := msg.Payload.(*OrderMsg)
		if !ok {
			return nil, sim.None, common.NewSimErr("generals", common.InvalidMessage, msg.Payload.Kind())
		}

		relays, err := g.ingest(msg.From, o)
		if err != nil {
			return nil, sim.None, err
		}

		out = append(out, relays...)
	}

	if round >= g.m+1 {
		return out, g.resolve([]uint32{g.commander}).Decision(), nil
	}

	return out, sim.None, nil
}

// issueOrders builds the commander's round-0 sends, one per lieutenant, each
// carrying grade m and the path [commander].
func (g *General) issueOrders() []*sim.Message {
	out := []*sim.Message{}

	for i, q := range g.lieutenants {
		value := g.order
		if g.faulty {
			var send bool
			if value, send = g.policy.Apply(g.order, i, len(g.lieutenants)); !send {
				continue
			}
		}

		out = append(out, sim.NewMessage(g.id, q, &OrderMsg{
			Order: value,
			Grade: g.m,
			Path:  []uint32{g.id},
		}))
	}

	return out
}

// ingest files one report and returns the relays it triggers. Duplicate paths
// are ignored, which is what makes redelivery harmless.
func (g *General) ingest(from uint32, o *OrderMsg) ([]*sim.Message, error) {
	if len(o.Path) == 0 || o.Path[0] != g.commander {
		return nil, common.NewSimErr("generals", common.InvalidMessage, "path does not start at the commander")
	}
	if o.Path[len(o.Path)-1] != from {
		return nil, common.NewSimErr("generals", common.InvalidMessage, "path does not end at the sender")
	}
	if onPath(o.Path, g.id) {
		return nil, common.NewSimErr("generals", common.InvalidMessage, "path loops through the receiver")
	}
	if o.Grade != g.m-(len(o.Path)-1) {
		return nil, common.NewSimErr("generals", common.InvalidMessage,
			fmt.Sprintf("grade %d does not match path length %d", o.Grade, len(o.Path)))
	}

	key := pathKey(o.Path)
	if _, ok := g.reports[key]; ok {
		g.logger.WithField("path", key).Debug("Ignoring duplicate report")
		return nil, nil
	}
	g.reports[key] = o.Order

	if o.Grade == 0 {
		return nil, nil
	}

	nextPath := make([]uint32, len(o.Path)+1)
	copy(nextPath, o.Path)
	nextPath[len(o.Path)] = g.id

	targets := []uint32{}
	for _, q := range g.lieutenants {
		if q == g.id || onPath(o.Path, q) {
			continue
		}
		targets = append(targets, q)
	}

	relays := []*sim.Message{}
	for i, q := range targets {
		value := o.Order
		if g.faulty {
			var send bool
			if value, send = g.policy.Apply(o.Order, i, len(targets)); !send {
				continue
			}
		}

		relays = append(relays, sim.NewMessage(g.id, q, &OrderMsg{
			Order: value,
			Grade: o.Grade - 1,
			Path:  nextPath,
		}))
	}

	return relays, nil
}

// resolve computes the verdict for a path of the report tree. At the leaves,
// the filed report stands in; above them, the filed report votes alongside
// the resolved sub-paths through every lieutenant not already on the path.
// Missing reports and ties fall back to the default order.
func (g *General) resolve(path []uint32) Order {
	v, ok := g.reports[pathKey(path)]
	if !ok {
		v = g.dflt
	}

	if len(path) == g.m+1 {
		return v
	}

	votes := []Order{v}
	for _, q := range g.lieutenants {
		if q == g.id || onPath(path, q) {
			continue
		}

		next := make([]uint32, len(path)+1)
		copy(next, path)
		next[len(path)] = q

		votes = append(votes, g.resolve(next))
	}

	return majority(votes, g.dflt)
}

// majority returns the winning order, with ties going to the default.
func majority(votes []Order, dflt Order) Order {
	attack, retreat := 0, 0
	for _, v := range votes {
		switch v {
		case Attack:
			attack++
		case Retreat:
			retreat++
		}
	}

	if attack > retreat {
		return Attack
	}
	if retreat > attack {
		return Retreat
	}
	return dflt
}
