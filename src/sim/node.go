package sim

import (
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/sirupsen/logrus"
)

// node binds a peer to its behavior and holds the runtime state the scheduler
// tracks for it. Only the scheduler touches this state.
type node struct {
	peer     *peers.Peer
	behavior Behavior
	decision Decision

	// crashRound is the round from which the node stops stepping and
	// receiving, or -1 when it never crashes.
	crashRound int

	logger *logrus.Entry
}

func newNode(peer *peers.Peer, behavior Behavior, logger *logrus.Entry) *node {
	return &node{
		peer:       peer,
		behavior:   behavior,
		crashRound: -1,
		logger:     logger.WithField("node", peer.ID),
	}
}

func (n *node) decided() bool {
	return n.decision != None
}

// crashed reports whether the node is down at the given round.
func (n *node) crashed(round int) bool {
	return n.crashRound >= 0 && round >= n.crashRound
}

// settled reports whether the node no longer counts against convergence at
// the given round: it either decided or went down.
func (n *node) settled(round int) bool {
	return n.decided() || n.crashed(round)
}
