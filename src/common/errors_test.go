package common

import (
	"errors"
	"strings"
	"testing"
)

func TestSimErr(t *testing.T) {
	err := NewSimErr("scheduler", UnknownNode, "42")

	if !strings.Contains(err.Error(), "Unknown Node") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "scheduler") {
		t.Fatalf("message should name the component: %s", err.Error())
	}

	if !IsSim(err, UnknownNode) {
		t.Fatal("IsSim should match the error's type")
	}
	if IsSim(err, Timeout) {
		t.Fatal("IsSim should not match another type")
	}
	if IsSim(errors.New("plain"), UnknownNode) {
		t.Fatal("IsSim should not match a plain error")
	}
}
