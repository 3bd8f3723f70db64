package generals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mosaicnetworks/warroom/src/sim"
)

// Order is the command a general passes down.
type Order string

const (
	// Attack ...
	Attack Order = "ATTACK"
	// Retreat is also the default order used for missing reports and ties.
	Retreat Order = "RETREAT"
)

// Decision converts the Order into the sim-level verdict.
func (o Order) Decision() sim.Decision {
	return sim.Decision(o)
}

// flip returns the opposite order.
func (o Order) flip() Order {
	if o == Attack {
		return Retreat
	}
	return Attack
}

// OrderMsg is an oral relay of an order. Path lists the generals the order
// passed through, commander first; the receiver is not on it. Grade is the
// number of relay levels still to go, so a freshly issued order carries the
// protocol's m and leaf messages carry 0.
type OrderMsg struct {
	Order Order    `json:"order"`
	Grade int      `json:"grade"`
	Path  []uint32 `json:"path"`
}

// Kind ...
func (m *OrderMsg) Kind() string {
	return "ORDER"
}

// Summary ...
func (m *OrderMsg) Summary() string {
	return fmt.Sprintf("ORDER %s grade=%d path=%s", m.Order, m.Grade, pathKey(m.Path))
}

// OrderSig is one link of a signature chain: Signer vouched for the whole
// prefix before it.
type OrderSig struct {
	Signer uint32 `json:"signer"`
	Sig    string `json:"sig"`
}

// SignedOrderMsg is an authenticated relay of an order. Sigs holds the
// signature chain, commander first; every signer signed the order together
// with all the signatures before its own.
type SignedOrderMsg struct {
	Order Order      `json:"order"`
	Sigs  []OrderSig `json:"sigs"`
}

// Kind ...
func (m *SignedOrderMsg) Kind() string {
	return "SIGNED_ORDER"
}

// Summary ...
func (m *SignedOrderMsg) Summary() string {
	signers := make([]string, len(m.Sigs))
	for i, s := range m.Sigs {
		signers[i] = strconv.FormatUint(uint64(s.Signer), 10)
	}
	return fmt.Sprintf("SIGNED_ORDER %s signers=%s", m.Order, strings.Join(signers, "."))
}

// pathKey flattens a path into a map key.
func pathKey(path []uint32) string {
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ".")
}

// onPath reports whether id appears on path.
func onPath(path []uint32, id uint32) bool {
	for _, p := range path {
		if p == id {
			return true
		}
	}
	return false
}
