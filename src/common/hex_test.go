package common

import (
	"bytes"
	"strings"
	"testing"
)

func TestHexRoundTrip(t *testing.T) {
	raw := []byte{0xde, 0xad, 0xbe, 0xef}

	s := EncodeToString(raw)

	if !strings.HasPrefix(s, "0X") {
		t.Fatalf("expected 0X prefix, got %s", s)
	}

	back, err := DecodeFromString(s)
	if err != nil {
		t.Fatalf("err: %v", err)
	}

	if !bytes.Equal(back, raw) {
		t.Fatalf("expected %X, got %X", raw, back)
	}
}

func TestHash32Stable(t *testing.T) {
	a := Hash32([]byte("general1"))
	b := Hash32([]byte("general1"))

	if a != b {
		t.Fatal("same input should produce the same hash")
	}

	if a == Hash32([]byte("general2")) {
		t.Fatal("different inputs should produce different hashes")
	}
}
