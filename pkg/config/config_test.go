package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/zurustar/scumm-et/pkg/cli"
)

const sample = `
[scumm-et]
soundfont = /usr/share/sounds/gm.sf2
talkspeed = 90

[monkey2]
path = /games/monkey2
boot_param = 3
subtitles = false

[dott]
gameid = tentacle
path = /games/dott
talkspeed = 30
music_volume = 100
`

func TestTarget(t *testing.T) {
	s, err := Parse([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Targets(); !slices.Equal(got, []string{"dott", "monkey2"}) {
		t.Errorf("Targets = %v", got)
	}

	m2, err := s.Target("monkey2")
	if err != nil {
		t.Fatal(err)
	}
	want := Target{
		Name: "monkey2", GameID: "monkey2", Path: "/games/monkey2", BootParam: 3,
		SoundFont: "/usr/share/sounds/gm.sf2", Subtitles: false, TalkSpeed: 90,
		MusicVolume: 192, SFXVolume: 192,
	}
	if *m2 != want {
		t.Errorf("monkey2 = %+v", *m2)
	}

	dott, err := s.Target("dott")
	if err != nil {
		t.Fatal(err)
	}
	if dott.GameID != "tentacle" || dott.TalkSpeed != 30 || dott.MusicVolume != 100 || !dott.Subtitles {
		t.Errorf("dott = %+v", *dott)
	}
}

func TestTarget_Errors(t *testing.T) {
	tests := []struct {
		name   string
		ini    string
		target string
	}{
		{"missing", sample, "samnmax"},
		{"global is not a target", sample, GlobalSection},
		{"bad number", "[a]\nboot_param = x", "a"},
		{"volume out of range", "[a]\nsfx_volume = 300", "a"},
		{"bad bool", "[a]\nsubtitles = maybe", "a"},
		{"bad global section", "[scumm-et]\ntalkspeed = fast\n[a]\npath = /x", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Parse([]byte(tt.ini))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := s.Target(tt.target); err == nil {
				t.Error("accepted")
			}
		})
	}

	s, _ := Parse([]byte(sample))
	if _, err := s.Target("samnmax"); !errors.Is(err, ErrNoTarget) {
		t.Errorf("err = %v", err)
	}
}

// 共通セクションの誤りは既定値を使う側にも伝わる
func TestDefaults_GlobalSectionErrors(t *testing.T) {
	s, err := Parse([]byte("[scumm-et]\nmusic_volume = 999\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Defaults(); err == nil || !strings.Contains(err.Error(), "[scumm-et]: music_volume") {
		t.Errorf("Defaults = %v", err)
	}

	s, _ = Parse([]byte(sample))
	d, err := s.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	if d.TalkSpeed != 90 || d.SoundFont != "/usr/share/sounds/gm.sf2" {
		t.Errorf("defaults = %+v", *d)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scumm-et.ini")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !s.HasTarget("dott") {
		t.Error("target lost")
	}
	for _, name := range []string{"", GlobalSection, "DEFAULT"} {
		if s.HasTarget(name) {
			t.Errorf("HasTarget(%q) = true", name)
		}
	}

	empty, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if d, err := empty.Defaults(); err != nil || len(empty.Targets()) != 0 || d.TalkSpeed != 60 {
		t.Errorf("empty settings not at defaults: %v", err)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.ini")); err == nil {
		t.Error("missing file loaded")
	}
}

func TestMerge(t *testing.T) {
	for _, k := range []string{"SCUMM_HEADLESS", "SCUMM_TIMEOUT", "SCUMM_CONFIG", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	s, _ := Parse([]byte(sample))
	base, _ := s.Target("monkey2")

	args, err := cli.ParseArgs([]string{"monkey2", "--path", "/mnt/cd", "--boot-param", "0"})
	if err != nil {
		t.Fatal(err)
	}
	got := Merge(base, args)
	if got.Path != "/mnt/cd" || got.BootParam != 0 {
		t.Errorf("flags not applied: %+v", *got)
	}
	if got.SoundFont != base.SoundFont || got.GameID != "monkey2" {
		t.Errorf("unset flags changed the target: %+v", *got)
	}
	if base.Path != "/games/monkey2" {
		t.Error("Merge modified its input")
	}

	args, _ = cli.ParseArgs([]string{"-g", "samnmax", "-p", "/games/sam"})
	got = Merge(nil, args)
	if got.GameID != "samnmax" || got.Path != "/games/sam" || got.TalkSpeed != 60 {
		t.Errorf("merge onto defaults = %+v", *got)
	}
}
