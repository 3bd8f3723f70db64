package generals

import (
	"testing"
)

func TestNewPolicy(t *testing.T) {
	for _, name := range []string{"flip", "split", "silent", "random"} {
		p, err := NewPolicy(name, 1)
		if err != nil {
			t.Fatal(err)
		}
		if p.Name() != name {
			t.Fatalf("expected policy %s, got %s", name, p.Name())
		}
	}

	if _, err := NewPolicy("loyal", 1); err == nil {
		t.Fatal("expected an error for an unknown policy")
	}
}

func TestFlipPolicy(t *testing.T) {
	p := &FlipPolicy{}

	if o, send := p.Apply(Attack, 0, 3); !send || o != Retreat {
		t.Fatalf("expected %s, got %s send=%v", Retreat, o, send)
	}
	if o, send := p.Apply(Retreat, 2, 3); !send || o != Attack {
		t.Fatalf("expected %s, got %s send=%v", Attack, o, send)
	}
}

func TestSplitPolicyHalves(t *testing.T) {
	p := &SplitPolicy{}

	// the truthful half rounds down, so odd counts get one more lie
	cases := []struct {
		seq  int
		n    int
		want Order
	}{
		{0, 1, Retreat},
		{0, 3, Attack},
		{1, 3, Retreat},
		{2, 3, Retreat},
		{0, 4, Attack},
		{1, 4, Attack},
		{2, 4, Retreat},
		{3, 4, Retreat},
	}

	for _, c := range cases {
		o, send := p.Apply(Attack, c.seq, c.n)
		if !send {
			t.Fatalf("seq %d of %d: expected a send", c.seq, c.n)
		}
		if o != c.want {
			t.Fatalf("seq %d of %d: expected %s, got %s", c.seq, c.n, c.want, o)
		}
	}
}

func TestSilentPolicy(t *testing.T) {
	p := &SilentPolicy{}

	if _, send := p.Apply(Attack, 0, 3); send {
		t.Fatal("expected the silent policy to omit every send")
	}
}

func TestRandomPolicySeeding(t *testing.T) {
	draws := func(seed int64) []Order {
		p := NewRandomPolicy(seed)
		res := []Order{}
		for i := 0; i < 16; i++ {
			o, _ := p.Apply(Attack, i, 16)
			res = append(res, o)
		}
		return res
	}

	first, second := draws(3), draws(3)
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("same seed produced different draws")
		}
	}
}
