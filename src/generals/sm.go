package generals

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"strings"

	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/mosaicnetworks/warroom/src/crypto"
	"github.com/mosaicnetworks/warroom/src/crypto/keys"
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/mosaicnetworks/warroom/src/sim"
	"github.com/sirupsen/logrus"
)

// SignedGeneralConfig carries the protocol parameters of the signed-messages
// variant, plus the cryptographic material of the general it configures.
type SignedGeneralConfig struct {
	// M is the maximum number of traitors the run is dimensioned for. Chains
	// grow to m+1 signatures.
	M int

	// Order is the order the commander issues. Lieutenants ignore it.
	Order Order

	// Default is the order chosen when the accepted set is empty or
	// ambiguous. Empty means Retreat.
	Default Order

	// Policy governs what faulty generals send. A faulty general with a nil
	// Policy lies systematically, which the signature chain turns into
	// dropped messages.
	Policy Policy

	// Key is this general's private key.
	Key *ecdsa.PrivateKey

	// PubKeys holds the public key of every peer in the roster.
	PubKeys map[uint32]*ecdsa.PublicKey
}

// SignedGeneral runs the signed-messages agreement SM(m). Every relay is
// counter-signed; receivers verify the whole chain and discard anything that
// does not hold up, so traitors can lie only by omission or by splitting the
// orders they sign themselves.
type SignedGeneral struct {
	id          uint32
	faulty      bool
	commander   uint32
	lieutenants []uint32
	m           int
	order       Order
	dflt        Order
	policy      Policy
	key         *ecdsa.PrivateKey
	pubs        map[uint32]*ecdsa.PublicKey

	// accepted is the set V of validly signed orders seen so far.
	accepted map[Order]bool

	// seen fingerprints processed chains for duplicate suppression.
	seen map[string]bool

	logger *logrus.Entry
}

// NewSignedGeneral instantiates the behavior for peer. Every peer of the
// roster must have a public key in the config.
func NewSignedGeneral(peer *peers.Peer, peerSet *peers.PeerSet, config SignedGeneralConfig, logger *logrus.Entry) (*SignedGeneral, error) {
	if config.M < 0 {
		return nil, fmt.Errorf("negative chain depth: %d", config.M)
	}
	if config.Key == nil {
		return nil, fmt.Errorf("signed general %d needs a private key", peer.ID)
	}
	for _, p := range peerSet.Peers {
		if config.PubKeys[p.ID] == nil {
			return nil, fmt.Errorf("missing public key for peer %d", p.ID)
		}
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

	return &SignedGeneral{
		id:          peer.ID,
		faulty:      peer.Faulty,
		commander:   commander.ID,
		lieutenants: lieutenants,
		m:           config.M,
		order:       config.Order,
		dflt:        dflt,
		policy:      policy,
		key:         config.Key,
		pubs:        config.PubKeys,
		accepted:    make(map[Order]bool),
		seen:        make(map[string]bool),
		logger:      logger.WithField("node", peer.ID),
	}, nil
}

// Step implements sim.Behavior. The commander signs and issues its orders in
// round 0; lieutenants verify, extend, and relay chains until round m+1,
// where they decide on the accepted set.
func (g *SignedGeneral) Step(round int, inbox []*sim.Message) ([]*sim.Message, sim.Decision, error) {
	if g.id == g.commander {
		if round == 0 {
			out, err := g.issueSignedOrders()
			if err != nil {
				return nil, sim.None, err
			}
			return out, g.order.Decision(), nil
		}
		return nil, g.order.Decision(), nil
	}

	out := []*sim.Message{}
	for _, msg := range inbox {
		o, ok := msg.Payload.(*SignedOrderMsg)
		if !ok {
			return nil, sim.None, common.NewSimErr("generals", common.InvalidMessage, msg.Payload.Kind())
		}

		relays, err := g.ingestSigned(msg.From, o)
		if err != nil {
			return nil, sim.None, err
		}

		out = append(out, relays...)
	}

	if round >= g.m+1 {
		return out, g.choice().Decision(), nil
	}

	return out, sim.None, nil
}

// issueSignedOrders builds the commander's round-0 sends. A faulty commander
// may sign different orders for different lieutenants; they are all validly
// signed, which is exactly how a signed traitor splits the realm.
func (g *SignedGeneral) issueSignedOrders() ([]*sim.Message, error) {
	out := []*sim.Message{}

	for i, q := range g.lieutenants {
		value := g.order
		if g.faulty {
			var send bool
			if value, send = g.policy.Apply(g.order, i, len(g.lieutenants)); !send {
				continue
			}
		}

		sig, err := keys.SignEncoded(g.key, chainDigest(value, nil))
		if err != nil {
			return nil, err
		}

		out = append(out, sim.NewMessage(g.id, q, &SignedOrderMsg{
			Order: value,
			Sigs:  []OrderSig{{Signer: g.id, Sig: sig}},
		}))
	}

	return out, nil
}

// ingestSigned verifies one chain, files its order, and extends the chain to
// everyone who has not signed yet. Invalid chains are dropped, not fatal:
// tampering is part of the threat model here.
func (g *SignedGeneral) ingestSigned(from uint32, o *SignedOrderMsg) ([]*sim.Message, error) {
	if !g.verifyChain(from, o) {
		g.logger.WithField("message", o.Summary()).Debug("Discarding invalid signature chain")
		return nil, nil
	}

	fp := chainFingerprint(o)
	if g.seen[fp] {
		g.logger.WithField("chain", fp).Debug("Ignoring duplicate chain")
		return nil, nil
	}
	g.seen[fp] = true

	g.accepted[o.Order] = true

	if len(o.Sigs) >= g.m+1 {
		return nil, nil
	}

	sig, err := keys.SignEncoded(g.key, chainDigest(o.Order, o.Sigs))
	if err != nil {
		return nil, err
	}

	nextSigs := make([]OrderSig, len(o.Sigs)+1)
	copy(nextSigs, o.Sigs)
	nextSigs[len(o.Sigs)] = OrderSig{Signer: g.id, Sig: sig}

	targets := []uint32{}
	for _, q := range g.lieutenants {
		if q == g.id || chainSigned(o.Sigs, q) {
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

		// a traitor altering the order here produces a chain whose earlier
		// signatures no longer verify; receivers will discard it
		relays = append(relays, sim.NewMessage(g.id, q, &SignedOrderMsg{
			Order: value,
			Sigs:  nextSigs,
		}))
	}

	return relays, nil
}

// verifyChain checks a chain end to end: it must start at the commander, end
// at the sender, visit no signer twice, and every link must verify against
// the signer's public key.
func (g *SignedGeneral) verifyChain(from uint32, o *SignedOrderMsg) bool {
	if len(o.Sigs) == 0 || len(o.Sigs) > g.m+1 {
		return false
	}
	if o.Sigs[0].Signer != g.commander {
		return false
	}
	if o.Sigs[len(o.Sigs)-1].Signer != from {
		return false
	}

	signedBy := map[uint32]bool{}
	for i, s := range o.Sigs {
		if signedBy[s.Signer] {
			return false
		}
		signedBy[s.Signer] = true

		pub, ok := g.pubs[s.Signer]
		if !ok {
			return false
		}
		if !keys.VerifyEncoded(pub, chainDigest(o.Order, o.Sigs[:i]), s.Sig) {
			return false
		}
	}

	return true
}

// choice resolves the accepted set: a single validly signed order wins,
// anything else falls back to the default.
func (g *SignedGeneral) choice() Order {
	if len(g.accepted) == 1 {
		for o := range g.accepted {
			return o
		}
	}
	return g.dflt
}

// chainDigest hashes an order together with a signature chain prefix. Signer
// i signs chainDigest(order, sigs[:i]).
func chainDigest(order Order, sigs []OrderSig) []byte {
	var b strings.Builder
	b.WriteString(string(order))
	for _, s := range sigs {
		b.WriteString("|")
		b.WriteString(strconv.FormatUint(uint64(s.Signer), 10))
		b.WriteString(":")
		b.WriteString(s.Sig)
	}
	return crypto.Shake256([]byte(b.String()))
}

// chainFingerprint identifies a chain by its order and signer sequence. Two
// valid chains with the same order and the same signers carry the same
// information, whatever the signature bytes.
func chainFingerprint(o *SignedOrderMsg) string {
	var b strings.Builder
	b.WriteString(string(o.Order))
	for _, s := range o.Sigs {
		b.WriteString(".")
		b.WriteString(strconv.FormatUint(uint64(s.Signer), 10))
	}
	return b.String()
}

// chainSigned reports whether id already signed the chain.
func chainSigned(sigs []OrderSig, id uint32) bool {
	for _, s := range sigs {
		if s.Signer == id {
			return true
		}
	}
	return false
}
