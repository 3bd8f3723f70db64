package sim

import (
	"bytes"

	"github.com/ugorji/go/codec"
)

// Result is the outcome of a simulation run. Decisions maps node ids to their
// terminal verdicts; nodes that never decided, including crashed ones, are
// absent. Converged reports whether every live node decided within the round
// budget. Rounds is the number of rounds actually executed.
type Result struct {
	Decisions map[uint32]Decision `json:"decisions"`
	Converged bool                `json:"converged"`
	Rounds    int                 `json:"rounds"`
	Trace     *Trace              `json:"trace,omitempty"`
}

// Marshal - json encoding of Result
func (r *Result) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(r); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (r *Result) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(r); err != nil {
		return err
	}

	return nil
}

// Agreement reports whether all the given nodes reached the same non-empty
// Decision, and returns that Decision when they did.
func (r *Result) Agreement(ids []uint32) (Decision, bool) {
	var agreed Decision

	for i, id := range ids {
		d, ok := r.Decisions[id]
		if !ok {
			return None, false
		}
		if i == 0 {
			agreed = d
			continue
		}
		if d != agreed {
			return None, false
		}
	}

	if agreed == None {
		return None, false
	}

	return agreed, true
}
