package generals

import (
	"crypto/ecdsa"
	"testing"

	"github.com/mosaicnetworks/warroom/src/common"
	"github.com/mosaicnetworks/warroom/src/crypto/keys"
	"github.com/mosaicnetworks/warroom/src/peers"
	"github.com/mosaicnetworks/warroom/src/sim"
)

func armyKeys(t *testing.T, peerSet *peers.PeerSet) (map[uint32]*ecdsa.PrivateKey, map[uint32]*ecdsa.PublicKey) {
	t.Helper()

	privs := map[uint32]*ecdsa.PrivateKey{}
	pubs := map[uint32]*ecdsa.PublicKey{}

	for _, p := range peerSet.Peers {
		key, err := keys.GenerateSeededECDSAKey(int64(p.ID))
		if err != nil {
			t.Fatal(err)
		}
		privs[p.ID] = key
		pubs[p.ID] = &key.PublicKey
	}

	return privs, pubs
}

func signedScenario(t *testing.T, n int, config SignedGeneralConfig, faulty ...uint32) *sim.Scheduler {
	t.Helper()

	peerSet := armyPeers(n, faulty...)
	privs, pubs := armyKeys(t, peerSet)

	scheduler := sim.NewScheduler(peers.NewFullTopology(peerSet), common.NewTestEntry(t))

	for _, p := range peerSet.Peers {
		cfg := config
		cfg.Key = privs[p.ID]
		cfg.PubKeys = pubs

		g, err := NewSignedGeneral(p, peerSet, cfg, common.NewTestEntry(t))
		if err != nil {
			t.Fatal(err)
		}
		if err := scheduler.AddNode(p, g); err != nil {
			t.Fatal(err)
		}
	}

	return scheduler
}

// signChain appends one link to a chain, signing the order over the existing
// prefix the way a relaying general would.
func signChain(t *testing.T, order Order, prev []OrderSig, key *ecdsa.PrivateKey, signer uint32) []OrderSig {
	t.Helper()

	sig, err := keys.SignEncoded(key, chainDigest(order, prev))
	if err != nil {
		t.Fatal(err)
	}

	next := make([]OrderSig, len(prev)+1)
	copy(next, prev)
	next[len(prev)] = OrderSig{Signer: signer, Sig: sig}

	return next
}

func TestSignedTraitorLieutenant(t *testing.T) {
	config := SignedGeneralConfig{M: 1, Order: Attack}
	faulty := []uint32{4}

	s := signedScenario(t, 4, config, faulty...)

	rounds, err := s.Run(10)
	if err != nil {
		t.Fatal(err)
	}

	if rounds != 3 {
		t.Fatalf("expected the run to settle in 3 rounds, not %d", rounds)
	}

	// the traitor's altered relays broke their own chains and were dropped,
	// so every loyal general saw exactly one signed order
	if d := loyalVerdict(t, s, 4, faulty); d != Attack.Decision() {
		t.Fatalf("loyal lieutenants decided %s, expected %s", d, Attack.Decision())
	}

	if d := s.Decisions()[1]; d != Attack.Decision() {
		t.Fatalf("commander decided %s, expected %s", d, Attack.Decision())
	}
}

func TestSignedSplitCommander(t *testing.T) {
	// three generals are enough with signatures: the lieutenants exchange
	// the two conflicting orders the commander signed, both see the split,
	// and both fall back to the same default
	config := SignedGeneralConfig{M: 1, Order: Attack, Policy: &SplitPolicy{}}
	faulty := []uint32{1}

	s := signedScenario(t, 3, config, faulty...)

	if _, err := s.Run(10); err != nil {
		t.Fatal(err)
	}

	decisions := s.Decisions()
	for _, id := range []uint32{2, 3} {
		if d := decisions[id]; d != Retreat.Decision() {
			t.Fatalf("lieutenant %d decided %s, expected %s", id, d, Retreat.Decision())
		}
	}
}

func TestSignedBeyondOralBound(t *testing.T) {
	// two traitors among four generals would defeat the oral exchange; with
	// signatures the loyal lieutenant still follows the commander
	config := SignedGeneralConfig{M: 2, Order: Attack}
	faulty := []uint32{3, 4}

	s := signedScenario(t, 4, config, faulty...)

	if _, err := s.Run(10); err != nil {
		t.Fatal(err)
	}

	if d := s.Decisions()[2]; d != Attack.Decision() {
		t.Fatalf("lieutenant 2 decided %s, expected %s", d, Attack.Decision())
	}
}

func TestSignedTamperedChain(t *testing.T) {
	peerSet := armyPeers(4)
	privs, pubs := armyKeys(t, peerSet)

	p2, err := peerSet.Get(2)
	if err != nil {
		t.Fatal(err)
	}

	g, err := NewSignedGeneral(p2, peerSet, SignedGeneralConfig{
		M:       1,
		Key:     privs[2],
		PubKeys: pubs,
	}, common.NewTestEntry(t))
	if err != nil {
		t.Fatal(err)
	}

	// the commander signed ATTACK but the order on the wire says RETREAT
	tampered := &SignedOrderMsg{
		Order: Retreat,
		Sigs:  signChain(t, Attack, nil, privs[1], 1),
	}

	out, decision, err := g.Step(2, []*sim.Message{sim.NewMessage(1, 2, tampered)})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no relays of a tampered chain, got %d", len(out))
	}
	if decision != Retreat.Decision() {
		t.Fatalf("expected the default %s, got %s", Retreat.Decision(), decision)
	}
}

func TestSignedReplay(t *testing.T) {
	peerSet := armyPeers(4)
	privs, pubs := armyKeys(t, peerSet)

	p2, err := peerSet.Get(2)
	if err != nil {
		t.Fatal(err)
	}

	g, err := NewSignedGeneral(p2, peerSet, SignedGeneralConfig{
		M:       1,
		Key:     privs[2],
		PubKeys: pubs,
	}, common.NewTestEntry(t))
	if err != nil {
		t.Fatal(err)
	}

	order := &SignedOrderMsg{
		Order: Attack,
		Sigs:  signChain(t, Attack, nil, privs[1], 1),
	}

	out, _, err := g.Step(1, []*sim.Message{
		sim.NewMessage(1, 2, order),
		sim.NewMessage(1, 2, order),
	})
	if err != nil {
		t.Fatal(err)
	}

	// counter-signed relays to lieutenants 3 and 4, once each
	if len(out) != 2 {
		t.Fatalf("expected 2 relays, not %d", len(out))
	}
}

func TestSignedChainValidation(t *testing.T) {
	peerSet := armyPeers(4)
	privs, pubs := armyKeys(t, peerSet)

	p2, err := peerSet.Get(2)
	if err != nil {
		t.Fatal(err)
	}

	g, err := NewSignedGeneral(p2, peerSet, SignedGeneralConfig{
		M:       2,
		Key:     privs[2],
		PubKeys: pubs,
	}, common.NewTestEntry(t))
	if err != nil {
		t.Fatal(err)
	}

	commanderChain := signChain(t, Attack, nil, privs[1], 1)
	relayed := signChain(t, Attack, commanderChain, privs[3], 3)

	cases := []struct {
		name  string
		from  uint32
		msg   *SignedOrderMsg
		valid bool
	}{
		{"direct", 1, &SignedOrderMsg{Order: Attack, Sigs: commanderChain}, true},
		{"relayed", 3, &SignedOrderMsg{Order: Attack, Sigs: relayed}, true},
		{"no signatures", 1, &SignedOrderMsg{Order: Attack, Sigs: []OrderSig{}}, false},
		{"not from the commander", 3, &SignedOrderMsg{Order: Attack, Sigs: signChain(t, Attack, nil, privs[3], 3)}, false},
		{"sender did not sign last", 4, &SignedOrderMsg{Order: Attack, Sigs: relayed}, false},
		{"repeated signer", 1, &SignedOrderMsg{Order: Attack, Sigs: signChain(t, Attack, commanderChain, privs[1], 1)}, false},
		{"unknown signer", 99, &SignedOrderMsg{Order: Attack, Sigs: signChain(t, Attack, commanderChain, privs[4], 99)}, false},
		{"wrong key", 3, &SignedOrderMsg{Order: Attack, Sigs: signChain(t, Attack, commanderChain, privs[4], 3)}, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := g.verifyChain(c.from, c.msg); got != c.valid {
				t.Fatalf("expected valid=%v, got %v", c.valid, got)
			}
		})
	}
}

func TestNewSignedGeneralValidation(t *testing.T) {
	peerSet := armyPeers(4)
	privs, pubs := armyKeys(t, peerSet)

	p2, err := peerSet.Get(2)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := NewSignedGeneral(p2, peerSet, SignedGeneralConfig{
		M:       1,
		PubKeys: pubs,
	}, common.NewTestEntry(t)); err == nil {
		t.Fatal("expected an error for a missing private key")
	}

	incomplete := map[uint32]*ecdsa.PublicKey{2: pubs[2]}
	if _, err := NewSignedGeneral(p2, peerSet, SignedGeneralConfig{
		M:       1,
		Key:     privs[2],
		PubKeys: incomplete,
	}, common.NewTestEntry(t)); err == nil {
		t.Fatal("expected an error for missing public keys")
	}

	if _, err := NewSignedGeneral(p2, peerSet, SignedGeneralConfig{
		M:       -1,
		Key:     privs[2],
		PubKeys: pubs,
	}, common.NewTestEntry(t)); err == nil {
		t.Fatal("expected an error for a negative chain depth")
	}
}
