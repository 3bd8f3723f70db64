package config

import (
	"testing"

	"github.com/sirupsen/logrus"
)

func TestDefaults(t *testing.T) {
	c := NewDefaultConfig()

	if c.Variant != VariantByzantine {
		t.Fatalf("expected variant %s, got %s", VariantByzantine, c.Variant)
	}
	if c.Nodes != DefaultNodes {
		t.Fatalf("expected %d nodes, got %d", DefaultNodes, c.Nodes)
	}
	if c.Traitors != DefaultTraitors {
		t.Fatalf("expected %d traitors, got %d", DefaultTraitors, c.Traitors)
	}
	if c.MaxRounds != DefaultMaxRounds {
		t.Fatalf("expected a budget of %d rounds, got %d", DefaultMaxRounds, c.MaxRounds)
	}
}

func TestParseSchedule(t *testing.T) {
	m, err := ParseSchedule([]string{"2:5", "7:0"})
	if err != nil {
		t.Fatal(err)
	}

	if len(m) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(m))
	}
	if m[2] != 5 || m[7] != 0 {
		t.Fatalf("unexpected schedule: %v", m)
	}

	for _, bad := range []string{"2", "a:1", "2:b", "1:2:3"} {
		if _, err := ParseSchedule([]string{bad}); err == nil {
			t.Fatalf("expected an error for %s", bad)
		}
	}
}

func TestLogLevel(t *testing.T) {
	if l := LogLevel("warn"); l != logrus.WarnLevel {
		t.Fatalf("expected %v, got %v", logrus.WarnLevel, l)
	}
	if l := LogLevel("nonsense"); l != logrus.DebugLevel {
		t.Fatalf("expected %v, got %v", logrus.DebugLevel, l)
	}
}

func TestTestConfigLogger(t *testing.T) {
	c := NewTestConfig(t, logrus.InfoLevel)

	entry := c.Logger()
	if entry == nil {
		t.Fatal("expected a logger")
	}

	entry.Info("configured")
}
