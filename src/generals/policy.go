package generals

import (
	"fmt"
	"math/rand"
)

// Policy decides what a traitor actually sends. Loyal generals never consult
// a policy. Apply is called once per recipient of a send, with seq the index
// of the recipient and n the number of recipients; it returns the order to
// send, or false to omit the message entirely.
type Policy interface {
	Name() string
	Apply(order Order, seq, n int) (Order, bool)
}

// NewPolicy builds one of the bundled policies by name. Randomized policies
// draw from the given seed and nothing else, so runs stay reproducible.
func NewPolicy(name string, seed int64) (Policy, error) {
	switch name {
	case "flip":
		return &FlipPolicy{}, nil
	case "split":
		return &SplitPolicy{}, nil
	case "silent":
		return &SilentPolicy{}, nil
	case "random":
		return NewRandomPolicy(seed), nil
	}
	return nil, fmt.Errorf("unknown traitor policy: %s", name)
}

// FlipPolicy lies to everyone.
type FlipPolicy struct{}

// Name ...
func (p *FlipPolicy) Name() string { return "flip" }

// Apply ...
func (p *FlipPolicy) Apply(order Order, seq, n int) (Order, bool) {
	return order.flip(), true
}

// SplitPolicy tells the truth to the first half of the recipients, rounding
// down, and lies to the rest, sowing maximum disagreement.
type SplitPolicy struct{}

// Name ...
func (p *SplitPolicy) Name() string { return "split" }

// Apply ...
func (p *SplitPolicy) Apply(order Order, seq, n int) (Order, bool) {
	if seq < n/2 {
		return order, true
	}
	return order.flip(), true
}

// SilentPolicy never sends anything.
type SilentPolicy struct{}

// Name ...
func (p *SilentPolicy) Name() string { return "silent" }

// Apply ...
func (p *SilentPolicy) Apply(order Order, seq, n int) (Order, bool) {
	return order, false
}

// RandomPolicy flips a seeded coin per recipient.
type RandomPolicy struct {
	rnd *rand.Rand
}

// NewRandomPolicy ...
func NewRandomPolicy(seed int64) *RandomPolicy {
	return &RandomPolicy{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// Name ...
func (p *RandomPolicy) Name() string { return "random" }

// Apply ...
func (p *RandomPolicy) Apply(order Order, seq, n int) (Order, bool) {
	if p.rnd.Intn(2) == 0 {
		return order, true
	}
	return order.flip(), true
}
