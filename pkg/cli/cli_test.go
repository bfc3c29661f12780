package cli

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"
)

// clearEnv は環境変数の影響を受けないようにする
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SCUMM_HEADLESS", "SCUMM_TIMEOUT", "SCUMM_CONFIG", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name:     "デフォルト設定",
			args:     []string{},
			expected: Config{LogLevel: "info", LoadSlot: -1},
		},
		{
			name:     "ターゲット指定",
			args:     []string{"monkey2"},
			expected: Config{Target: "monkey2", LogLevel: "info", LoadSlot: -1},
		},
		{
			name:     "タイムアウト指定（短縮形）",
			args:     []string{"-t", "5"},
			expected: Config{Timeout: 5 * time.Second, LogLevel: "info", LoadSlot: -1},
		},
		{
			name: "ゲームとパス",
			args: []string{"-g", "tentacle", "--path", "/games/dott"},
			expected: Config{
				GameID:   "tentacle",
				GamePath: "/games/dott",
				LogLevel: "info",
				LoadSlot: -1,
			},
		},
		{
			name: "位置引数の後にフラグ（順序に関係なく動作）",
			args: []string{"samnmax", "--headless", "--timeout", "10", "--load", "3"},
			expected: Config{
				Target:   "samnmax",
				Timeout:  10 * time.Second,
				LogLevel: "info",
				Headless: true,
				LoadSlot: 3,
			},
		},
		{
			name: "= 形式の値",
			args: []string{"--boot-param=42", "--soundfont=gm.sf2", "comi"},
			expected: Config{
				Target:    "comi",
				LogLevel:  "info",
				BootParam: 42,
				SoundFont: "gm.sf2",
				LoadSlot:  -1,
			},
		},
		{
			name:     "ヘルプ表示（短縮形）",
			args:     []string{"-h"},
			expected: Config{LogLevel: "info", LoadSlot: -1, ShowHelp: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if config.Target != tt.expected.Target {
				t.Errorf("Target = %q, want %q", config.Target, tt.expected.Target)
			}
			if config.GameID != tt.expected.GameID {
				t.Errorf("GameID = %q, want %q", config.GameID, tt.expected.GameID)
			}
			if config.GamePath != tt.expected.GamePath {
				t.Errorf("GamePath = %q, want %q", config.GamePath, tt.expected.GamePath)
			}
			if config.Timeout != tt.expected.Timeout {
				t.Errorf("Timeout = %v, want %v", config.Timeout, tt.expected.Timeout)
			}
			if config.LogLevel != tt.expected.LogLevel {
				t.Errorf("LogLevel = %q, want %q", config.LogLevel, tt.expected.LogLevel)
			}
			if config.Headless != tt.expected.Headless {
				t.Errorf("Headless = %v, want %v", config.Headless, tt.expected.Headless)
			}
			if config.BootParam != tt.expected.BootParam {
				t.Errorf("BootParam = %d, want %d", config.BootParam, tt.expected.BootParam)
			}
			if config.SoundFont != tt.expected.SoundFont {
				t.Errorf("SoundFont = %q, want %q", config.SoundFont, tt.expected.SoundFont)
			}
			if config.LoadSlot != tt.expected.LoadSlot {
				t.Errorf("LoadSlot = %d, want %d", config.LoadSlot, tt.expected.LoadSlot)
			}
			if config.ShowHelp != tt.expected.ShowHelp {
				t.Errorf("ShowHelp = %v, want %v", config.ShowHelp, tt.expected.ShowHelp)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"負のタイムアウト", []string{"--timeout", "-10"}},
		{"無効なログレベル", []string{"--log-level", "invalid"}},
		{"範囲外のスロット", []string{"--load", "100"}},
		{"未知のフラグ", []string{"--fullscreen"}},
		{"位置引数が多すぎる", []string{"monkey2", "tentacle"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if _, err := ParseArgs(tt.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCUMM_HEADLESS", "true")
	t.Setenv("SCUMM_TIMEOUT", "7")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SCUMM_CONFIG", "/etc/scumm-et.ini")

	config, err := ParseArgs(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !config.Headless || config.Timeout != 7*time.Second || config.LogLevel != "debug" {
		t.Errorf("environment ignored: %+v", config)
	}
	if config.ConfigPath != "/etc/scumm-et.ini" {
		t.Errorf("ConfigPath = %q", config.ConfigPath)
	}

	// フラグが環境変数より優先される
	config, err = ParseArgs([]string{"-t", "2", "-l", "warn", "-c", "local.ini"})
	if err != nil {
		t.Fatal(err)
	}
	if config.Timeout != 2*time.Second || config.LogLevel != "warn" || config.ConfigPath != "local.ini" {
		t.Errorf("flags lost to environment: %+v", config)
	}
}

func TestParseArgs_DebugChannels(t *testing.T) {
	clearEnv(t)
	config, err := ParseArgs([]string{"--debug-channels", "script, sound,,boxes"})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"script", "sound", "boxes"}; !slices.Equal(config.DebugChannels, want) {
		t.Errorf("DebugChannels = %v, want %v", config.DebugChannels, want)
	}
}

func TestConfig_IsSet(t *testing.T) {
	clearEnv(t)
	config, err := ParseArgs([]string{"-g", "ft", "--headless"})
	if err != nil {
		t.Fatal(err)
	}
	if !config.IsSet("game") || !config.IsSet("g") || !config.IsSet("headless") {
		t.Error("given flags not reported")
	}
	if config.IsSet("path") {
		t.Error("path reported without being given")
	}
}

func TestPrintHelp(t *testing.T) {
	var buf bytes.Buffer
	PrintHelp(&buf)
	for _, flag := range []string{"--config", "--soundfont", "--save-dir", "SCUMM_HEADLESS"} {
		if !strings.Contains(buf.String(), flag) {
			t.Errorf("help does not mention %s", flag)
		}
	}
}
