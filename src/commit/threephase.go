package commit

import (
	"fmt"

	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/mosaicnetworks/warroom/src/sim"
	"github.com/sirupsen/logrus"
)

// ThreePhaseCoordinator inserts a PRE_COMMIT round between the votes and the
// verdict. Announcing the tentative commit before finalizing it is what lets
// abandoned participants terminate on their own, so once the precommit is
// out the verdict can only be commit: a missing ack closes the window, it
// does not change the outcome.
type ThreePhaseCoordinator struct {
	id           uint32
	txn          string
	participants map[uint32]bool
	voteTimeout  int
	voteDeadline int

	outcome     common.Trilean
	votes       map[uint32]bool
	preCommitAt int
	ackDeadline int
	acks        map[uint32]bool
	done        map[uint32]bool

	logger *logrus.Entry
}

// NewThreePhaseCoordinator instantiates the coordinator behavior for peer,
// which must hold the Coordinator role in the roster.
func NewThreePhaseCoordinator(peer *peers.Peer, peerSet *peers.PeerSet, config CoordinatorConfig, logger *logrus.Entry) (*ThreePhaseCoordinator, error) {
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

	return &ThreePhaseCoordinator{
		id:           peer.ID,
		txn:          txn,
		participants: participants,
		voteTimeout:  voteTimeout,
		voteDeadline: 2 + voteTimeout,
		outcome:      common.Undefined,
		votes:        map[uint32]bool{},
		preCommitAt:  -1,
		acks:         map[uint32]bool{},
		done:         map[uint32]bool{},
		logger:       logger.WithField("node", peer.ID),
	}, nil
}

// Step implements sim.Behavior.
func (c *ThreePhaseCoordinator) Step(round int, inbox []*sim.Message) ([]*sim.Message, sim.Decision, error) {
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
		case *AckMsg:
			if m.Txn != c.txn {
				return nil, sim.None, common.NewSimErr("commit", common.InvalidMessage,
					fmt.Sprintf("ack for foreign transaction %s", m.Txn))
			}
			c.acks[msg.From] = true
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

	if c.preCommitAt < 0 {
		return c.stepVoting(round)
	}

	if len(c.acks) == len(c.participants) || round >= c.ackDeadline {
		return c.decide(true)
	}

	return nil, sim.None, nil
}

// stepVoting turns the votes collected so far into the next move: abort as
// soon as one vote aborts or the deadline passes, precommit once every vote
// is in.
func (c *ThreePhaseCoordinator) stepVoting(round int) ([]*sim.Message, sim.Decision, error) {
	for _, v := range c.votes {
		if !v {
			return c.decide(false)
		}
	}

	if len(c.votes) == len(c.participants) {
		c.preCommitAt = round
		// the precommit takes a round to arrive and the acks another
		c.ackDeadline = round + 2 + c.voteTimeout

		c.logger.WithField("txn", c.txn).Debug("Broadcasting precommit")

		return []*sim.Message{sim.NewMessage(c.id, sim.Broadcast, &PreCommitMsg{Txn: c.txn})}, sim.None, nil
	}

	if round >= c.voteDeadline {
		c.logger.WithFields(logrus.Fields{
			"txn":   c.txn,
			"votes": len(c.votes),
		}).Debug("Vote deadline passed, presuming abort")
		return c.decide(false)
	}

	return nil, sim.None, nil
}

func (c *ThreePhaseCoordinator) ingestVote(from uint32, v *VoteMsg) error {
	if v.Txn != c.txn {
		return common.NewSimErr("commit", common.InvalidMessage,
			fmt.Sprintf("vote for foreign transaction %s", v.Txn))
	}

	if c.outcome.Settled() || c.preCommitAt >= 0 {
		c.logger.WithField("from", from).Debug("Ignoring vote cast after the voting phase")
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

func (c *ThreePhaseCoordinator) decide(commit bool) ([]*sim.Message, sim.Decision, error) {
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

// ThreePhaseParticipant votes on the prepare, acknowledges the precommit,
// and applies the global verdict. Unlike its two-phase counterpart it never
// blocks: left without news for too long it terminates on its own, commit if
// it was precommitted, abort otherwise.
type ThreePhaseParticipant struct {
	id          uint32
	coordinator uint32
	txn         string
	voteAbort   bool
	delay       int
	timeout     int

	prepareRound int
	voted        bool
	precommitted bool
	lastProgress int
	verdict      sim.Decision

	logger *logrus.Entry
}

// NewThreePhaseParticipant instantiates the participant behavior for peer.
func NewThreePhaseParticipant(peer *peers.Peer, peerSet *peers.PeerSet, config ParticipantConfig, logger *logrus.Entry) (*ThreePhaseParticipant, error) {
	coordinator, err := peerSet.FirstWithRole(peers.Coordinator)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultDecisionTimeout
	}

	return &ThreePhaseParticipant{
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
func (p *ThreePhaseParticipant) Step(round int, inbox []*sim.Message) ([]*sim.Message, sim.Decision, error) {
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
				p.lastProgress = round
			} else if p.voted {
				out = append(out, p.vote())
			}
		case *PreCommitMsg:
			if m.Txn != p.txn {
				return nil, sim.None, common.NewSimErr("commit", common.InvalidMessage,
					fmt.Sprintf("precommit for foreign transaction %s", m.Txn))
			}

			// a participant that already settled on abort must not
			// acknowledge commit readiness
			if p.verdict == sim.None {
				p.precommitted = true
				p.lastProgress = round

				out = append(out, sim.NewMessage(p.id, p.coordinator, &AckMsg{Txn: p.txn}))
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
		p.lastProgress = round
		out = append(out, p.vote())
		if p.voteAbort {
			p.verdict = DecideAbort
		}
	}

	if p.verdict != sim.None {
		return out, p.verdict, nil
	}

	// termination rule: with the coordinator silent for too long, a
	// precommitted participant knows the verdict could only have been
	// commit, and anyone short of that is still free to abort
	if round-p.lastProgress >= p.timeout {
		if p.precommitted {
			p.verdict = DecideCommit
		} else {
			p.verdict = DecideAbort
		}

		p.logger.WithFields(logrus.Fields{
			"round":   round,
			"verdict": p.verdict,
		}).Debug("No progress, terminating")

		return out, p.verdict, nil
	}

	return out, sim.None, nil
}

func (p *ThreePhaseParticipant) vote() *sim.Message {
	return sim.NewMessage(p.id, p.coordinator, &VoteMsg{Txn: p.txn, Commit: !p.voteAbort})
}
