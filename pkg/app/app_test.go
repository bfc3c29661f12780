package app

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zurustar/scumm-et/pkg/cli"
	"github.com/zurustar/scumm-et/pkg/config"
	"github.com/zurustar/scumm-et/pkg/fileutil"
	"github.com/zurustar/scumm-et/pkg/gamedb"
	"github.com/zurustar/scumm-et/pkg/savegame"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SCUMM_HEADLESS", "SCUMM_TIMEOUT", "SCUMM_CONFIG", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

// newTestApp は出力を捕まえるアプリケーションを作る
func newTestApp(input string) (*Application, *strings.Builder) {
	var out strings.Builder
	app := New()
	app.stdin = strings.NewReader(input)
	app.stdout = &out
	return app, &out
}

const testINI = `
[scumm-et]
subtitles = false
save_dir = /tmp/saves

[monkey2]
path = /games/monkey2
boot_param = 7

[dott]
gameid = tentacle
path = /games/dott
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func realFS(dir string) fileutil.FileSystem {
	return fileutil.NewRealFS(dir)
}

func withSettings(t *testing.T, app *Application, args ...string) {
	t.Helper()
	settings, err := config.Parse([]byte(testINI))
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := cli.ParseArgs(args)
	if err != nil {
		t.Fatal(err)
	}
	app.settings = settings
	app.config = cfg
}

func TestRun_Help(t *testing.T) {
	clearEnv(t)
	app, out := newTestApp("")
	if err := app.Run([]string{"--help"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Usage:") {
		t.Errorf("help output = %q", out.String())
	}
}

func TestRun_InvalidArgs(t *testing.T) {
	clearEnv(t)
	app, _ := newTestApp("")
	if err := app.Run([]string{"--timeout", "-5"}); err == nil {
		t.Error("expected error for negative timeout")
	}
}

func TestRun_MissingConfig(t *testing.T) {
	clearEnv(t)
	app, _ := newTestApp("")
	err := app.Run([]string{"--headless", "--config", filepath.Join(t.TempDir(), "none.ini")})
	if err == nil || !strings.Contains(err.Error(), "failed to load config") {
		t.Errorf("Run = %v", err)
	}
}

func TestRun_HeadlessUnknownDirectory(t *testing.T) {
	clearEnv(t)
	app, _ := newTestApp("")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("not a game"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := app.Run([]string{"--headless", "--log-level", "error", dir})
	if !errors.Is(err, gamedb.ErrNotDetected) {
		t.Errorf("Run = %v, want ErrNotDetected", err)
	}
}

func TestRun_HeadlessSelectionQuit(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "scumm-et.ini")
	if err := os.WriteFile(path, []byte(testINI), 0o644); err != nil {
		t.Fatal(err)
	}
	app, out := newTestApp("q\n")

	err := app.Run([]string{"--headless", "--log-level", "error", "--config", path})
	if err == nil || !strings.Contains(err.Error(), "failed to select target") {
		t.Errorf("Run = %v", err)
	}
	for _, want := range []string{"dott", "monkey2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("selection output lacks %q", want)
		}
	}
}

func TestChooseTarget(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		target    string
		wantPath  string
		wantGame  string
		wantBoot  int
		wantSubs  bool
		wantSaves string
	}{
		{
			name:      "configured target",
			target:    "monkey2",
			wantPath:  "/games/monkey2",
			wantGame:  "monkey2",
			wantBoot:  7,
			wantSaves: "/tmp/saves",
		},
		{
			name:      "gameid differs from section",
			target:    "dott",
			wantPath:  "/games/dott",
			wantGame:  "tentacle",
			wantSaves: "/tmp/saves",
		},
		{
			name:      "command line overrides",
			args:      []string{"--path", "/mnt/cd", "--boot-param", "3", "--save-dir", "/var/saves"},
			target:    "monkey2",
			wantPath:  "/mnt/cd",
			wantGame:  "monkey2",
			wantBoot:  3,
			wantSaves: "/var/saves",
		},
		{
			name:      "directory not in config",
			target:    "/games/loom",
			wantPath:  "/games/loom",
			wantSaves: "/tmp/saves",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			app, _ := newTestApp("")
			withSettings(t, app, tt.args...)

			got, err := app.chooseTarget(tt.target)
			if err != nil {
				t.Fatal(err)
			}
			if got.Path != tt.wantPath || got.GameID != tt.wantGame || got.BootParam != tt.wantBoot {
				t.Errorf("target = %+v", got)
			}
			if got.Subtitles != tt.wantSubs {
				t.Errorf("Subtitles = %v, want global default %v", got.Subtitles, tt.wantSubs)
			}
			if got.SaveDir != tt.wantSaves {
				t.Errorf("SaveDir = %q", got.SaveDir)
			}
		})
	}
}

func TestIdentify(t *testing.T) {
	clearEnv(t)
	app, _ := newTestApp("")
	withSettings(t, app)
	app.log = discardLogger()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "TENTACLE.000"), make([]byte, 16), 0o644); err != nil {
		t.Fatal(err)
	}
	fsys := realFS(dir)

	// 明示した ID が優先される
	game, err := app.identify(fsys, "samnmax")
	if err != nil || game.ID != "samnmax" {
		t.Fatalf("identify(samnmax) = %v, %v", game, err)
	}
	// 知らない ID はファイルから推定する
	game, err = app.identify(fsys, "no-such-game")
	if err != nil || game.ID != "tentacle" {
		t.Fatalf("identify(no-such-game) = %v, %v", game, err)
	}
	if _, err := app.identify(realFS(t.TempDir()), ""); !errors.Is(err, gamedb.ErrNotDetected) {
		t.Errorf("empty dir: %v", err)
	}
}

func TestStart_MissingSlot(t *testing.T) {
	clearEnv(t)
	app, _ := newTestApp("")
	withSettings(t, app, "--load", "4")
	app.log = discardLogger()

	// スロットが無ければ VM に触れる前に失敗する
	err := app.start(nil, savegame.NewMemStore(), &config.Target{})
	if err == nil || !strings.Contains(err.Error(), "slot 4") {
		t.Errorf("start = %v", err)
	}
}

func TestChooseTarget_BadGlobalSection(t *testing.T) {
	clearEnv(t)
	app, _ := newTestApp("")
	withSettings(t, app)
	settings, err := config.Parse([]byte("[scumm-et]\nsfx_volume = loud\n"))
	if err != nil {
		t.Fatal(err)
	}
	app.settings = settings

	if _, err := app.chooseTarget("/games/loom"); err == nil || !strings.Contains(err.Error(), "sfx_volume") {
		t.Errorf("chooseTarget = %v", err)
	}
}
