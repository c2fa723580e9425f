package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"error", zap.ErrorLevel},
		{"WARN", zap.WarnLevel},
		{"", zap.InfoLevel},
		{"debug", zap.DebugLevel},
		{"trace", zapcore.Level(-2)},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		log, sync, err := New(Options{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("%s: %v", format, err)
		}
		if !log.V(1).Enabled() {
			t.Errorf("%s: V(1) should be enabled at debug", format)
		}
		sync()
	}
	if _, _, err := New(Options{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestWrap_Verbosity(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := Wrap(zap.New(core))

	log.Info("kept", "k", 1)
	log.V(1).Info("debug kept")
	log.V(2).Info("dropped")

	if logs.Len() != 2 {
		t.Fatalf("recorded %d entries, want 2", logs.Len())
	}
	if e := logs.All()[1]; e.Level != zap.DebugLevel || e.Message != "debug kept" {
		t.Errorf("unexpected entry %+v", e.Entry)
	}
}
