package gamedb

import (
	"errors"
	"testing"
	"testing/fstest"

	"golang.org/x/text/encoding/japanese"

	"github.com/zurustar/scumm-et/pkg/fileutil"
)

func TestEmbeddedTableParses(t *testing.T) {
	list, err := All()
	if err != nil {
		t.Fatal(err)
	}
	for _, g := range list {
		if _, err := g.VMConfig(); err != nil {
			t.Errorf("%s: %v", g.ID, err)
		}
	}
}

func TestLookup(t *testing.T) {
	tests := []struct {
		id       string
		version  int
		small    bool
		perRoom  bool
		indexXOR byte
	}{
		{"indy3", 3, true, true, 0xFF},
		{"monkey-floppy", 4, true, false, 0},
		{"MONKEY2", 5, false, false, 0x69},
		{"samnmax", 6, false, false, 0x69},
		{"comi", 8, false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			g, err := Lookup(tt.id)
			if err != nil {
				t.Fatal(err)
			}
			l := g.Layout()
			if l.Version != tt.version || l.SmallHeader != tt.small || l.RoomPerFile != tt.perRoom || l.IndexXOR != tt.indexXOR {
				t.Errorf("layout = %+v", l)
			}
		})
	}

	if _, err := Lookup("maniac"); !errors.Is(err, ErrUnknownGame) {
		t.Errorf("err = %v", err)
	}
}

func TestVMConfig_Overrides(t *testing.T) {
	g, err := Lookup("comi")
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := g.VMConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Version != 8 || cfg.GameID != "comi" || cfg.NumVariables != 1500 {
		t.Errorf("config = v%d %s %d vars", cfg.Version, cfg.GameID, cfg.NumVariables)
	}
	if cfg.Vars.Ego != 111 || cfg.Vars.CutsceneStartScript != 35 {
		t.Errorf("vars not applied: ego=%d", cfg.Vars.Ego)
	}
	// unmapped entries keep the generation default
	if cfg.Vars.Timer != 14 {
		t.Errorf("timer = %d", cfg.Vars.Timer)
	}

	g, _ = Lookup("tentacle")
	cfg, err = g.VMConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vars.Ego != 1 || cfg.NumActors != 30 {
		t.Errorf("tentacle: ego=%d actors=%d", cfg.Vars.Ego, cfg.NumActors)
	}
}

func TestTextEncoding(t *testing.T) {
	g, _ := Lookup("tentacle-jp")
	if g.TextEncoding() != japanese.ShiftJIS {
		t.Error("Japanese release not decoded as Shift_JIS")
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no id", "- {version: 5, index_file: a.000, disk_pattern: a.%03d}"},
		{"duplicate", "- {id: a, version: 5, index_file: a.000, disk_pattern: a.%03d}\n- {id: a, version: 5, index_file: a.000, disk_pattern: a.%03d}"},
		{"bad version", "- {id: a, version: 2, index_file: a.000, disk_pattern: a.%03d}"},
		{"no files", "- {id: a, version: 5}"},
		{"not a list", "id: a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("accepted")
			}
		})
	}
}

func TestDetect(t *testing.T) {
	fsys := fileutil.NewEmbedFS(fstest.MapFS{
		"SAMNMAX.000": {Data: []byte{0}},
		"SAMNMAX.001": {Data: []byte{0}},
	}, "")
	g, err := Detect(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != "samnmax" {
		t.Errorf("detected %s", g.ID)
	}

	empty := fileutil.NewEmbedFS(fstest.MapFS{"readme.txt": {}}, "")
	if _, err := Detect(empty); !errors.Is(err, ErrNotDetected) {
		t.Errorf("err = %v", err)
	}
}

func TestDetect_SkipsNoDetect(t *testing.T) {
	fsys := fileutil.NewEmbedFS(fstest.MapFS{"tentacle.000": {}}, "")
	g, err := Detect(fsys)
	if err != nil {
		t.Fatal(err)
	}
	if g.ID != "tentacle" {
		t.Errorf("detected %s", g.ID)
	}
}
