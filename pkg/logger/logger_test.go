package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"info", slog.LevelInfo, true},
		{"WARN", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.level)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.level, got, err)
		}
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "warn")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("dropped")
	l.Warn("kept", "room", 12)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("info record written at warn level")
	}
	if !strings.Contains(out, "kept") || !strings.Contains(out, "room=12") {
		t.Errorf("output = %q", out)
	}
}

func TestGetLogger(t *testing.T) {
	globalLogger = nil
	if GetLogger() != slog.Default() {
		t.Error("GetLogger() should return slog.Default() when not initialized")
	}

	if err := InitLogger("info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if GetLogger() != globalLogger || globalLogger == nil {
		t.Error("GetLogger() should return the initialized logger")
	}
	if err := InitLogger("loud"); err == nil {
		t.Error("expected error for invalid log level")
	}
}

func TestChannel_Filtering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "debug")
	if err != nil {
		t.Fatal(err)
	}
	globalLogger = l
	defer func() { globalLogger = nil }()
	defer SetChannels(nil)

	SetChannels([]string{"script", " Costume "})

	if !ChannelEnabled("script") || !ChannelEnabled("costume") {
		t.Error("configured channels should be enabled")
	}
	if ChannelEnabled("sound") {
		t.Error("unlisted channel should be disabled")
	}

	ctx := context.Background()
	if Channel("sound").Enabled(ctx, slog.LevelDebug) {
		t.Error("disabled channel should drop debug records")
	}

	Channel("script").Debug("opcode", "op", "0x1A")
	Channel("sound").Debug("queued")
	Channel("sound").Warn("missing", "id", 42)

	out := buf.String()
	for _, want := range []string{"channel=script", "op=0x1A", "channel=sound", "id=42"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "queued") {
		t.Error("debug record of a muted channel was written")
	}

	SetChannels(nil)
	if !ChannelEnabled("sound") {
		t.Error("empty channel list should enable every channel")
	}
}
