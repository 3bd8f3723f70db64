package sim

import (
	"reflect"
	"testing"
)

func TestResultMarshal(t *testing.T) {
	trace := NewTrace()
	trace.Append(0, 1, ActionSend, "1->2 PING a")
	trace.Append(1, 2, ActionDeliver, "1->2 PING a")
	trace.Append(1, 2, ActionDecide, "done")

	result := &Result{
		Decisions: map[uint32]Decision{2: "done", 1: "done"},
		Converged: true,
		Rounds:    2,
		Trace:     trace,
	}

	first, err := result.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	second, err := result.Marshal()
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("canonical encoding should be stable")
	}

	back := new(Result)
	if err := back.Unmarshal(first); err != nil {
		t.Fatalf("err: %v", err)
	}

	if !reflect.DeepEqual(back.Decisions, result.Decisions) {
		t.Fatalf("decisions did not survive the round trip, got %v", back.Decisions)
	}
	if back.Trace.Len() != 3 {
		t.Fatalf("trace did not survive the round trip, got %d events", back.Trace.Len())
	}
}

func TestAgreement(t *testing.T) {
	result := &Result{
		Decisions: map[uint32]Decision{1: "attack", 2: "attack", 3: "retreat"},
	}

	if d, ok := result.Agreement([]uint32{1, 2}); !ok || d != "attack" {
		t.Fatalf("nodes 1 and 2 should agree on attack, got %s %v", d, ok)
	}

	if _, ok := result.Agreement([]uint32{1, 2, 3}); ok {
		t.Fatalf("node 3 disagrees, Agreement should report false")
	}

	if _, ok := result.Agreement([]uint32{1, 4}); ok {
		t.Fatalf("node 4 never decided, Agreement should report false")
	}

	if _, ok := result.Agreement([]uint32{}); ok {
		t.Fatalf("an empty id list holds no agreement")
	}
}
