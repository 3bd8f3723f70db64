package warroom

import (
	"crypto/ecdsa"
	"fmt"
	"os"

	"github.com/mosaicnetworks/warroom/src/commit"
	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/mosaicnetworks/warroom/src/config"
	"github.com/mosaicnetworks/warroom/src/crypto/keys"
	"github.com/mosaicnetworks/warroom/src/generals"
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/mosaicnetworks/warroom/src/sim"
	"github.com/sirupsen/logrus"
)

// Warroom wires a configured scenario together: the roster, the topology,
// one behavior per node, and the scheduler that runs them.
type Warroom struct {
	Config    *config.Config
	Peers     *peers.PeerSet
	Topology  *peers.Topology
	Scheduler *sim.Scheduler

	m      int
	keys   map[uint32]*ecdsa.PrivateKey
	pubs   map[uint32]*ecdsa.PublicKey
	logger *logrus.Entry
}

// NewWarroom instantiates an engine from a config object. Callers may set
// Peers or Topology before Init to override the generated roster, for
// instance to run over a partial network.
func NewWarroom(config *config.Config) *Warroom {
	engine := &Warroom{
		Config: config,
	}

	return engine
}

func (w *Warroom) isCommit() bool {
	return w.Config.Variant == config.VariantTwoPhase ||
		w.Config.Variant == config.VariantThreePhase
}

func (w *Warroom) leadRole() peers.Role {
	if w.isCommit() {
		return peers.Coordinator
	}
	return peers.Commander
}

func (w *Warroom) initPeers() error {
	if w.Topology != nil {
		w.Peers = w.Topology.PeerSet()
	}

	if w.Peers == nil {
		n := w.Config.Nodes

		moniker := "general"
		if w.isCommit() {
			moniker = "site"
		}

		lead := w.Config.Commander
		if w.isCommit() {
			lead = w.Config.Coordinator
		}
		if lead == 0 {
			lead = 1
		}
		if int(lead) > n {
			return common.NewSimErr("warroom", common.UnknownNode, fmt.Sprintf("%d", lead))
		}

		roster := []*peers.Peer{}
		for i := 1; i <= n; i++ {
			p := peers.NewPeer(uint32(i), fmt.Sprintf("%s%d", moniker, i))

			p.Role = peers.Lieutenant
			if w.isCommit() {
				p.Role = peers.Participant
			}
			if uint32(i) == lead {
				p.Role = w.leadRole()
			}

			roster = append(roster, p)
		}

		peerSet := peers.NewPeerSet(roster)

		if !w.isCommit() {
			ids := w.Config.TraitorIDs
			if len(ids) == 0 {
				// the highest ids that are not the commander
				for i := n; i >= 1 && len(ids) < w.Config.Traitors; i-- {
					if uint32(i) != lead {
						ids = append(ids, uint32(i))
					}
				}
			}

			for _, id := range ids {
				p, err := peerSet.Get(id)
				if err != nil {
					return err
				}
				p.Faulty = true
			}
		}

		w.Peers = peerSet
	}

	w.m = w.Config.Traitors
	if len(w.Config.TraitorIDs) > 0 {
		w.m = len(w.Config.TraitorIDs)
	}
	if f := len(w.Peers.Faulty()); w.m == 0 && f > 0 {
		w.m = f
	}

	return w.checkRoster()
}

// checkRoster enforces the variant's resilience bound on the assembled
// roster.
func (w *Warroom) checkRoster() error {
	if _, err := w.Peers.FirstWithRole(w.leadRole()); err != nil {
		return err
	}

	n := w.Peers.Len()

	switch w.Config.Variant {
	case config.VariantByzantine:
		if w.m > w.Peers.MaxTolerated() {
			return common.NewSimErr("warroom", common.InsufficientNodes,
				fmt.Sprintf("%d generals cannot mask %d traitors", n, w.m))
		}
	case config.VariantSigned:
		if n < w.m+2 {
			return common.NewSimErr("warroom", common.InsufficientNodes,
				fmt.Sprintf("%d generals leave fewer than two loyal ones", n))
		}
	case config.VariantTwoPhase, config.VariantThreePhase:
		if n < 2 {
			return common.NewSimErr("warroom", common.InsufficientNodes,
				fmt.Sprintf("%d sites cannot run a commit", n))
		}
	default:
		return fmt.Errorf("unknown variant: %s", w.Config.Variant)
	}

	return nil
}

func (w *Warroom) initTopology() error {
	if w.Topology == nil {
		w.Topology = peers.NewFullTopology(w.Peers)
	}

	lead, err := w.Peers.FirstWithRole(w.leadRole())
	if err != nil {
		return err
	}

	reachable, err := w.Topology.ReachableFrom(lead.ID)
	if err != nil {
		return err
	}
	if !reachable {
		return common.NewSimErr("warroom", common.Disconnected,
			fmt.Sprintf("not every node is reachable from %d", lead.ID))
	}

	return nil
}

func (w *Warroom) initKeys() error {
	if w.Config.Variant != config.VariantSigned {
		return nil
	}

	w.keys = map[uint32]*ecdsa.PrivateKey{}
	w.pubs = map[uint32]*ecdsa.PublicKey{}

	for _, p := range w.Peers.Peers {
		key, err := w.peerKey(p)
		if err != nil {
			return err
		}

		w.keys[p.ID] = key
		w.pubs[p.ID] = &key.PublicKey
		p.PubKeyHex = keys.PublicKeyHex(&key.PublicKey)

		pubBytes, err := p.PubKeyBytes()
		if err != nil {
			return err
		}

		w.logger.WithFields(logrus.Fields{
			"node":   p.ID,
			"pubkey": keys.PublicKeyID(pubBytes),
		}).Debug("Loaded key")
	}

	return nil
}

// peerKey resolves the peer's signing key. A keyfile laid down by the keygen
// command under the peer's data directory wins; without one the key is
// derived from the run's seed, which keeps signed runs reproducible out of
// the box.
func (w *Warroom) peerKey(p *peers.Peer) (*ecdsa.PrivateKey, error) {
	if p.Moniker != "" {
		keyfile := w.Config.PeerKeyfile(p.Moniker)
		if _, err := os.Stat(keyfile); err == nil {
			key, err := keys.NewSimpleKeyfile(keyfile).ReadKey()
			if err != nil {
				return nil, fmt.Errorf("reading keyfile %s: %v", keyfile, err)
			}

			w.logger.WithFields(logrus.Fields{
				"node":    p.ID,
				"keyfile": keyfile,
			}).Debug("Using keyfile")

			return key, nil
		}
	}

	return keys.GenerateSeededECDSAKey(w.Config.Seed + int64(p.ID))
}

func (w *Warroom) initScheduler() error {
	w.Scheduler = sim.NewScheduler(w.Topology, w.logger)
	return nil
}

func (w *Warroom) initBehaviors() error {
	switch w.Config.Variant {
	case config.VariantByzantine, config.VariantSigned:
		return w.initGenerals()
	case config.VariantTwoPhase, config.VariantThreePhase:
		return w.initSites()
	}
	return fmt.Errorf("unknown variant: %s", w.Config.Variant)
}

func (w *Warroom) initGenerals() error {
	order, err := parseOrder(w.Config.Order)
	if err != nil {
		return err
	}

	name := w.Config.Policy
	if name == "" {
		name = config.DefaultPolicy
	}
	policy, err := generals.NewPolicy(name, w.Config.Seed)
	if err != nil {
		return err
	}

	for _, p := range w.Peers.Peers {
		var b sim.Behavior

		if w.Config.Variant == config.VariantSigned {
			b, err = generals.NewSignedGeneral(p, w.Peers, generals.SignedGeneralConfig{
				M:       w.m,
				Order:   order,
				Policy:  policy,
				Key:     w.keys[p.ID],
				PubKeys: w.pubs,
			}, w.logger)
		} else {
			b, err = generals.NewGeneral(p, w.Peers, generals.GeneralConfig{
				M:      w.m,
				Order:  order,
				Policy: policy,
			}, w.logger)
		}
		if err != nil {
			return err
		}

		if err := w.Scheduler.AddNode(p, b); err != nil {
			return err
		}
	}

	return nil
}

func (w *Warroom) initSites() error {
	abort := map[uint32]bool{}
	for _, id := range w.Config.AbortVoters {
		if _, err := w.Peers.Get(id); err != nil {
			return err
		}
		abort[id] = true
	}

	delays, err := w.Config.DelaySchedule()
	if err != nil {
		return err
	}
	for id := range delays {
		if _, err := w.Peers.Get(id); err != nil {
			return err
		}
	}

	coordConfig := commit.CoordinatorConfig{
		Txn:         w.Config.Txn,
		VoteTimeout: w.Config.VoteTimeout,
	}

	for _, p := range w.Peers.Peers {
		var b sim.Behavior
		var err error

		if p.Role == peers.Coordinator {
			if w.Config.Variant == config.VariantThreePhase {
				b, err = commit.NewThreePhaseCoordinator(p, w.Peers, coordConfig, w.logger)
			} else {
				b, err = commit.NewTwoPhaseCoordinator(p, w.Peers, coordConfig, w.logger)
			}
		} else {
			partConfig := commit.ParticipantConfig{
				VoteAbort: abort[p.ID],
				Delay:     delays[p.ID],
				Timeout:   w.Config.DecisionTimeout,
			}
			if w.Config.Variant == config.VariantThreePhase {
				b, err = commit.NewThreePhaseParticipant(p, w.Peers, partConfig, w.logger)
			} else {
				b, err = commit.NewTwoPhaseParticipant(p, w.Peers, partConfig, w.logger)
			}
		}
		if err != nil {
			return err
		}

		if err := w.Scheduler.AddNode(p, b); err != nil {
			return err
		}
	}

	return nil
}

func (w *Warroom) initFaults() error {
	crashes, err := w.Config.CrashSchedule()
	if err != nil {
		return err
	}

	for id, round := range crashes {
		if err := w.Scheduler.SetCrash(id, round); err != nil {
			return err
		}
	}

	return nil
}

// Init assembles the engine. After Init the scheduler is loaded and ready to
// run.
func (w *Warroom) Init() error {
	if w.logger == nil {
		w.logger = w.Config.Logger()
	}

	if err := w.initPeers(); err != nil {
		return err
	}

	if err := w.initTopology(); err != nil {
		return err
	}

	if err := w.initKeys(); err != nil {
		return err
	}

	if err := w.initScheduler(); err != nil {
		return err
	}

	if err := w.initBehaviors(); err != nil {
		return err
	}

	if err := w.initFaults(); err != nil {
		return err
	}

	return nil
}

// Run executes the scenario to completion and packages the outcome. A run
// that exhausts its round budget is a result, not an error: it comes back
// with Converged false.
func (w *Warroom) Run() (*sim.Result, error) {
	w.logger.WithFields(logrus.Fields{
		"variant": w.Config.Variant,
		"nodes":   w.Peers.Len(),
		"budget":  w.Config.MaxRounds,
	}).Info("Running scenario")

	rounds, err := w.Scheduler.Run(w.Config.MaxRounds)
	if err != nil && !common.IsSim(err, common.Timeout) {
		return nil, err
	}

	res := &sim.Result{
		Decisions: w.Scheduler.Decisions(),
		Converged: err == nil,
		Rounds:    rounds,
		Trace:     w.Scheduler.Trace(),
	}

	w.logger.WithFields(logrus.Fields{
		"rounds":    res.Rounds,
		"converged": res.Converged,
		"decisions": len(res.Decisions),
	}).Info("Scenario finished")

	return res, nil
}

func parseOrder(s string) (generals.Order, error) {
	switch s {
	case "attack", "":
		return generals.Attack, nil
	case "retreat":
		return generals.Retreat, nil
	}
	return "", fmt.Errorf("unknown order: %s", s)
}
