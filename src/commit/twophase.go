package commit

import (
	"fmt"

	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/mosaicnetworks/warroom/src/sim"
	"github.com/sirupsen/logrus"
)

// TwoPhaseCoordinator drives one transaction through two-phase commit:
// PREPARE out, votes in, one global verdict out. The verdict is recorded the
// round it is broadcast, not when the acknowledgements come back.
type TwoPhaseCoordinator struct {
	id           uint32
	txn          string
	participants map[uint32]bool
	voteDeadline int

	outcome common.Trilean
	votes   map[uint32]bool
	done    map[uint32]bool

	logger *logrus.Entry
}

// NewTwoPhaseCoordinator instantiates the coordinator behavior for peer,
// which must hold the Coordinator role in the roster.
func NewTwoPhaseCoordinator(peer *peers.Peer, peerSet *peers.PeerSet, config CoordinatorConfig, logger *logrus.Entry) (*TwoPhaseCoordinator, error) {
	coordinator, err := peerSet.FirstWithRole(peers.Coordinator)
	if err != nil {
		return nil, err
	}
	if coordinator.ID != peer.ID {
		return nil, fmt.Errorf("peer %d is not the coordinator", peer.ID)
	}

	participants := map[uint32]bool{}
	for _, p := range peerSet.WithRole(peers.Participant) {
		participants[p.ID] = true
	}
	if len(participants) == 0 {
		return nil, common.NewSimErr("commit", common.InsufficientNodes, "no participants")
	}

	txn := config.Txn
	if txn == "" {
		txn = DefaultTxn
	}

	voteTimeout := config.VoteTimeout
	if voteTimeout <= 0 {
		voteTimeout = DefaultVoteTimeout
	}

	return &TwoPhaseCoordinator{
		id:           peer.ID,
		txn:          txn,
		participants: participants,
		// the prepare takes a round to arrive and the votes another, so
		// votes cannot land before round 2
		voteDeadline: 2 + voteTimeout,
		outcome:      common.Undefined,
		votes:        map[uint32]bool{},
		done:         map[uint32]bool{},
		logger:       logger.WithField("node", peer.ID),
	}, nil
}

// Step implements sim.Behavior.
func (c *TwoPhaseCoordinator) Step(round int, inbox []*sim.Message) ([]*sim.Message, sim.Decision, error) {
	if round == 0 {
		c.logger.WithField("txn", c.txn).Debug("Broadcasting prepare")
		return []*sim.Message{sim.NewMessage(c.id, sim.Broadcast, &PrepareMsg{Txn: c.txn})}, sim.None, nil
	}

	for _, msg := range inbox {
		if !c.participants[msg.From] {
			return nil, sim.None, common.NewSimErr("commit", common.InvalidMessage,
				fmt.Sprintf("%s from non-participant %d", msg.Payload.Kind(), msg.From))
		}

		switch m := msg.Payload.(type) {
		case *VoteMsg:
			if err := c.ingestVote(msg.From, m); err != nil {
				return nil, sim.None, err
			}
		case *DoneMsg:
			c.done[msg.From] = true
			if len(c.done) == len(c.participants) {
				c.logger.WithField("txn", c.txn).Debug("Verdict acknowledged by every participant")
			}
		default:
			return nil, sim.None, common.NewSimErr("commit", common.InvalidMessage, msg.Payload.Kind())
		}
	}

	if c.outcome.Settled() {
		return nil, verdict(c.outcome == common.True), nil
	}

	if commit, decided := c.tally(round); decided {
		return c.decide(commit)
	}

	return nil, sim.None, nil
}

// ingestVote files one vote. The first vote per participant stands;
// conflicting redeliveries are logged and dropped.
func (c *TwoPhaseCoordinator) ingestVote(from uint32, v *VoteMsg) error {
	if v.Txn != c.txn {
		return common.NewSimErr("commit", common.InvalidMessage,
			fmt.Sprintf("vote for foreign transaction %s", v.Txn))
	}

	if c.outcome.Settled() {
		c.logger.WithField("from", from).Debug("Ignoring vote cast after the verdict")
		return nil
	}

	if prev, ok := c.votes[from]; ok {
		if prev != v.Commit {
			c.logger.WithField("from", from).Warning("Ignoring conflicting duplicate vote")
		}
		return nil
	}

	c.votes[from] = v.Commit

	return nil
}

// tally turns the votes collected so far into a verdict: abort as soon as
// one vote aborts, commit once every vote is in, abort when the deadline
// passes with votes still missing.
func (c *TwoPhaseCoordinator) tally(round int) (bool, bool) {
	for _, v := range c.votes {
		if !v {
			return false, true
		}
	}

	if len(c.votes) == len(c.participants) {
		return true, true
	}

	if round >= c.voteDeadline {
		c.logger.WithFields(logrus.Fields{
			"txn":   c.txn,
			"votes": len(c.votes),
		}).Debug("Vote deadline passed, presuming abort")
		return false, true
	}

	return false, false
}

func (c *TwoPhaseCoordinator) decide(commit bool) ([]*sim.Message, sim.Decision, error) {
	if commit {
		c.outcome = common.True
	} else {
		c.outcome = common.False
	}

	c.logger.WithFields(logrus.Fields{
		"txn":    c.txn,
		"commit": commit,
	}).Debug("Broadcasting global verdict")

	out := []*sim.Message{sim.NewMessage(c.id, sim.Broadcast, &DecisionMsg{Txn: c.txn, Commit: commit})}

	return out, verdict(commit), nil
}

// TwoPhaseParticipant votes on the coordinator's prepare and applies the
// global verdict. Before voting it is free to abort on its own; after a
// commit vote it is locked in until the coordinator speaks, which is the
// blocking window this protocol is known for.
type TwoPhaseParticipant struct {
	id          uint32
	coordinator uint32
	txn         string
	voteAbort   bool
	delay       int
	timeout     int

	prepareRound int
	voted        bool
	verdict      sim.Decision

	logger *logrus.Entry
}

// NewTwoPhaseParticipant instantiates the participant behavior for peer.
func NewTwoPhaseParticipant(peer *peers.Peer, peerSet *peers.PeerSet, config ParticipantConfig, logger *logrus.Entry) (*TwoPhaseParticipant, error) {
	coordinator, err := peerSet.FirstWithRole(peers.Coordinator)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultDecisionTimeout
	}

	return &TwoPhaseParticipant{
		id:           peer.ID,
		coordinator:  coordinator.ID,
		voteAbort:    config.VoteAbort,
		delay:        config.Delay,
		timeout:      timeout,
		prepareRound: -1,
		verdict:      sim.None,
		logger:       logger.WithField("node", peer.ID),
	}, nil
}

// Step implements sim.Behavior.
func (p *TwoPhaseParticipant) Step(round int, inbox []*sim.Message) ([]*sim.Message, sim.Decision, error) {
	out := []*sim.Message{}

	for _, msg := range inbox {
		if msg.From != p.coordinator {
			return nil, sim.None, common.NewSimErr("commit", common.InvalidMessage,
				fmt.Sprintf("%s from non-coordinator %d", msg.Payload.Kind(), msg.From))
		}

		switch m := msg.Payload.(type) {
		case *PrepareMsg:
			if p.prepareRound < 0 {
				p.prepareRound = round
				p.txn = m.Txn
			} else if p.voted {
				// a retransmitted prepare means the vote may have been lost
				out = append(out, p.vote())
			}
		case *DecisionMsg:
			if m.Txn != p.txn {
				return nil, sim.None, common.NewSimErr("commit", common.InvalidMessage,
					fmt.Sprintf("verdict for foreign transaction %s", m.Txn))
			}

			v := verdict(m.Commit)
			if p.verdict == sim.None {
				p.verdict = v
			} else if p.verdict != v {
				p.logger.WithField("verdict", v).Warning("Ignoring conflicting verdict")
			}

			out = append(out, sim.NewMessage(p.id, p.coordinator, &DoneMsg{Txn: p.txn}))
		default:
			return nil, sim.None, common.NewSimErr("commit", common.InvalidMessage, msg.Payload.Kind())
		}
	}

	// once a verdict stands the vote stays unsent: a participant that
	// already aborted unilaterally must not hand the coordinator a yes
	if p.verdict == sim.None && p.prepareRound >= 0 && !p.voted && round >= p.prepareRound+p.delay {
		p.voted = true
		out = append(out, p.vote())
		if p.voteAbort {
			// a no vote is a verdict of its own
			p.verdict = DecideAbort
		}
	}

	if p.verdict != sim.None {
		return out, p.verdict, nil
	}

	if !p.voted && round >= p.timeout {
		p.logger.WithField("round", round).Debug("Not voted by the timeout, aborting unilaterally")
		p.verdict = DecideAbort
		return out, p.verdict, nil
	}

	return out, sim.None, nil
}

func (p *TwoPhaseParticipant) vote() *sim.Message {
	return sim.NewMessage(p.id, p.coordinator, &VoteMsg{Txn: p.txn, Commit: !p.voteAbort})
}
