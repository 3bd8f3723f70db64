package sim

import (
	"bytes"

	"github.com/mosaicnetworks/warroom/src/crypto"
	"github.com/ugorji/go/codec"
)

// Action labels a trace event.
type Action string

const (
	// ActionSend records a message entering the queue.
	ActionSend Action = "send"
	// ActionDeliver records a message reaching a node's inbox.
	ActionDeliver Action = "deliver"
	// ActionDecide records a node reaching its terminal Decision.
	ActionDecide Action = "decide"
	// ActionCrash records a node going down.
	ActionCrash Action = "crash"
	// ActionDrop records a message discarded in transit, either because the
	// destination crashed or because there is no edge to it.
	ActionDrop Action = "drop"
)

// Event is one line of a simulation trace.
type Event struct {
	Round  int    `json:"round"`
	Node   uint32 `json:"node"`
	Action Action `json:"action"`
	Detail string `json:"detail,omitempty"`
}

// Trace is the ordered record of everything the scheduler did during a run.
// Events appear in execution order, which is deterministic for a given
// scenario and seed.
type Trace struct {
	Events []Event `json:"events"`
}

// NewTrace ...
func NewTrace() *Trace {
	return &Trace{
		Events: []Event{},
	}
}

// Append adds an event at the end of the trace.
func (t *Trace) Append(round int, node uint32, action Action, detail string) {
	t.Events = append(t.Events, Event{
		Round:  round,
		Node:   node,
		Action: action,
		Detail: detail,
	})
}

// Len returns the number of events.
func (t *Trace) Len() int {
	return len(t.Events)
}

// ByAction returns the events carrying the given action, in trace order.
func (t *Trace) ByAction(action Action) []Event {
	res := []Event{}
	for _, e := range t.Events {
		if e.Action == action {
			res = append(res, e)
		}
	}
	return res
}

// ByNode returns the events concerning the given node, in trace order.
func (t *Trace) ByNode(node uint32) []Event {
	res := []Event{}
	for _, e := range t.Events {
		if e.Node == node {
			res = append(res, e)
		}
	}
	return res
}

// Marshal - json encoding of Trace
func (t *Trace) Marshal() ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(t); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal ...
func (t *Trace) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(t); err != nil {
		return err
	}

	return nil
}

// Hash returns the SHA256 hash of the marshalled Trace. Two runs of the same
// scenario with the same seed hash identically.
func (t *Trace) Hash() ([]byte, error) {
	hashBytes, err := t.Marshal()
	if err != nil {
		return nil, err
	}
	return crypto.SHA256(hashBytes), nil
}
