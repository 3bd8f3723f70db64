package sim

import (
	"fmt"
	"strconv"

	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/sirupsen/logrus"
)

// Scheduler owns the clock, the message queue, and the nodes. It is the only
// writer to all three. Nodes are stepped one at a time, in the order they
// were added, and messages sent in round r are delivered together at the
// start of round r+1; this is what makes runs deterministic.
type Scheduler struct {
	topology *peers.Topology
	nodes    []*node
	byID     map[uint32]*node
	queue    *roundQueue
	round    int
	trace    *Trace
	logger   *logrus.Entry
}

// NewScheduler instantiates a Scheduler over a Topology. Nodes are added
// separately with AddNode, one per peer taking part in the run.
func NewScheduler(topology *peers.Topology, logger *logrus.Entry) *Scheduler {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	return &Scheduler{
		topology: topology,
		nodes:    []*node{},
		byID:     make(map[uint32]*node),
		queue:    newRoundQueue("rounds"),
		trace:    NewTrace(),
		logger:   logger,
	}
}

// AddNode attaches a behavior to a peer of the topology. The insertion order
// is the stepping order for the whole run.
func (s *Scheduler) AddNode(peer *peers.Peer, behavior Behavior) error {
	if !s.topology.Contains(peer.ID) {
		return common.NewSimErr("scheduler", common.UnknownNode, strconv.FormatUint(uint64(peer.ID), 10))
	}

	if _, ok := s.byID[peer.ID]; ok {
		return fmt.Errorf("node %d already added", peer.ID)
	}

	n := newNode(peer, behavior, s.logger)

	s.nodes = append(s.nodes, n)
	s.byID[peer.ID] = n

	return nil
}

// SetCrash schedules the node to go down at the given round: from that round
// on it is neither stepped nor delivered to, and it stops counting against
// convergence.
func (s *Scheduler) SetCrash(id uint32, round int) error {
	n, ok := s.byID[id]
	if !ok {
		return common.NewSimErr("scheduler", common.UnknownNode, strconv.FormatUint(uint64(id), 10))
	}

	if round < 0 {
		return fmt.Errorf("crash round %d is negative", round)
	}

	n.crashRound = round

	return nil
}

// Round returns the clock, which is the next round to execute.
func (s *Scheduler) Round() int {
	return s.round
}

// Trace returns the run's trace. It grows as the run advances.
func (s *Scheduler) Trace() *Trace {
	return s.trace
}

// Decisions returns the terminal verdicts reached so far, keyed by node id.
// Undecided nodes are absent.
func (s *Scheduler) Decisions() map[uint32]Decision {
	res := map[uint32]Decision{}
	for _, n := range s.nodes {
		if n.decided() {
			res[n.peer.ID] = n.decision
		}
	}
	return res
}

// Converged reports whether every node either decided or crashed.
func (s *Scheduler) Converged() bool {
	for _, n := range s.nodes {
		if !n.settled(s.round) {
			return false
		}
	}
	return true
}

// Inject queues a message from outside the simulation, for delivery at the
// given round. The round may not be behind the clock, and the destination
// must be one of the added nodes.
func (s *Scheduler) Inject(round int, msg *Message) error {
	if msg == nil || msg.Payload == nil {
		return common.NewSimErr("scheduler", common.InvalidMessage, "nil payload")
	}

	if round < s.round {
		return common.NewSimErr("scheduler", common.InvalidMessage, strconv.Itoa(round))
	}

	if _, ok := s.byID[msg.To]; !ok {
		return common.NewSimErr("scheduler", common.UnknownNode, strconv.FormatUint(uint64(msg.To), 10))
	}

	msg.Round = round

	return s.queue.Push(round, msg)
}

// Step executes one round: it delivers the round's messages, steps every
// live node once, and queues their output for the next round.
func (s *Scheduler) Step() error {
	r := s.round

	delivered, err := s.queue.Pop(r)
	if err != nil {
		return err
	}

	// Sort this round's messages into inboxes. Every queued message names an
	// added node, Inject and enqueue see to that. Messages to nodes that are
	// down at delivery time are dropped, like a network losing packets for a
	// dead host.
	inboxes := map[uint32][]*Message{}
	for _, m := range delivered {
		n := s.byID[m.To]
		if n.crashed(r) {
			s.trace.Append(r, m.To, ActionDrop, fmt.Sprintf("down %s", m))
			s.logger.WithFields(logrus.Fields{
				"round":   r,
				"message": m.String(),
			}).Debug("Dropping message to crashed node")
			continue
		}
		inboxes[m.To] = append(inboxes[m.To], m)
	}

	for _, n := range s.nodes {
		if n.crashRound == r {
			s.trace.Append(r, n.peer.ID, ActionCrash, "")
			n.logger.WithField("round", r).Warning("Node crashed")
		}
		if n.crashed(r) {
			continue
		}

		inbox := inboxes[n.peer.ID]
		for _, m := range inbox {
			s.trace.Append(r, m.To, ActionDeliver, m.String())
		}

		out, decision, err := n.behavior.Step(r, inbox)
		if err != nil {
			n.logger.WithField("round", r).Error("Step failed: ", err)
			return err
		}

		if decision != None {
			if !n.decided() {
				n.decision = decision
				s.trace.Append(r, n.peer.ID, ActionDecide, string(decision))
				n.logger.WithFields(logrus.Fields{
					"round":    r,
					"decision": decision,
				}).Info("Node decided")
			} else if decision != n.decision {
				n.logger.WithFields(logrus.Fields{
					"round":    r,
					"decision": decision,
					"previous": n.decision,
				}).Warning("Ignoring decision change")
			}
		}

		for _, m := range out {
			if err := s.enqueue(n, m, r); err != nil {
				return err
			}
		}
	}

	s.round++

	return nil
}

// enqueue validates a message produced by n during sendRound and queues it
// for the next round. Broadcast destinations are expanded to the sender's
// neighbors. A destination outside the roster is fatal; a destination with no
// edge from the sender only drops the message.
func (s *Scheduler) enqueue(n *node, m *Message, sendRound int) error {
	if m == nil || m.Payload == nil {
		return common.NewSimErr("scheduler", common.InvalidMessage, "nil payload")
	}

	if m.From != n.peer.ID {
		return common.NewSimErr("scheduler", common.InvalidMessage,
			fmt.Sprintf("node %d sending as %d", n.peer.ID, m.From))
	}

	if m.To == Broadcast {
		neighbors, err := s.topology.Neighbors(m.From)
		if err != nil {
			return err
		}
		for _, to := range neighbors {
			if _, ok := s.byID[to]; !ok {
				return common.NewSimErr("scheduler", common.UnknownNode, strconv.FormatUint(uint64(to), 10))
			}
			expanded := &Message{
				From:    m.From,
				To:      to,
				Payload: m.Payload,
			}
			if err := s.push(expanded, sendRound); err != nil {
				return err
			}
		}
		return nil
	}

	if _, ok := s.byID[m.To]; !ok {
		return common.NewSimErr("scheduler", common.UnknownNode, strconv.FormatUint(uint64(m.To), 10))
	}

	if !s.topology.Connected(m.From, m.To) {
		s.trace.Append(sendRound, m.To, ActionDrop, fmt.Sprintf("no-edge %s", m))
		s.logger.WithFields(logrus.Fields{
			"round":   sendRound,
			"message": m.String(),
		}).Debug("Dropping message with no edge to destination")
		return nil
	}

	return s.push(m, sendRound)
}

func (s *Scheduler) push(m *Message, sendRound int) error {
	m.Round = sendRound + 1

	if err := s.queue.Push(m.Round, m); err != nil {
		return err
	}

	s.trace.Append(sendRound, m.From, ActionSend, m.String())

	return nil
}

// Run executes rounds until every node settled or the budget runs out. It
// returns the number of rounds executed. Exhausting the budget returns a
// Timeout error, which callers report as a non-converged run rather than a
// failure of the simulation itself.
func (s *Scheduler) Run(maxRounds int) (int, error) {
	for s.round < maxRounds {
		if s.Converged() {
			return s.round, nil
		}
		if err := s.Step(); err != nil {
			return s.round, err
		}
	}

	if s.Converged() {
		return s.round, nil
	}

	return s.round, common.NewSimErr("scheduler", common.Timeout, strconv.Itoa(maxRounds))
}
