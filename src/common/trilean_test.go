package common

import "testing"

func TestTrileanSettled(t *testing.T) {
	if Undefined.Settled() {
		t.Fatalf("%s should not be settled", Undefined)
	}
	if !True.Settled() {
		t.Fatalf("%s should be settled", True)
	}
	if !False.Settled() {
		t.Fatalf("%s should be settled", False)
	}
}
