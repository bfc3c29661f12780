// Package config reads game targets from an INI file. Each [target]
// section names one installed game; the [scumm-et] section holds
// defaults shared by every target.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/zurustar/scumm-et/pkg/cli"
)

// GlobalSection holds defaults for every target.
const GlobalSection = "scumm-et"

// ErrNoTarget is returned for a target missing from the file.
var ErrNoTarget = errors.New("no such target")

// Target is one configured game.
type Target struct {
	Name        string
	GameID      string
	Path        string
	BootParam   int
	SoundFont   string
	Subtitles   bool
	TalkSpeed   int
	MusicVolume int
	SFXVolume   int
	SaveDir     string
	Language    string
}

// Settings is a parsed configuration file.
type Settings struct {
	file *ini.File
}

var loadOptions = ini.LoadOptions{
	Insensitive:             false,
	IgnoreInlineComment:     false,
	SkipUnrecognizableLines: true,
	AllowShadows:            false,
}

// Load parses the INI file at path. An empty path yields empty settings.
func Load(path string) (*Settings, error) {
	if path == "" {
		return &Settings{file: ini.Empty(loadOptions)}, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	f, err := ini.LoadSources(loadOptions, path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	return &Settings{file: f}, nil
}

// Parse reads settings from INI text.
func Parse(data []byte) (*Settings, error) {
	f, err := ini.LoadSources(loadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &Settings{file: f}, nil
}

// Targets lists the configured target names, sorted.
func (s *Settings) Targets() []string {
	var names []string
	for _, sec := range s.file.Sections() {
		name := sec.Name()
		if name == ini.DEFAULT_SECTION || name == GlobalSection {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// HasTarget reports whether name has a section.
func (s *Settings) HasTarget(name string) bool {
	if name == "" || name == GlobalSection || name == ini.DEFAULT_SECTION {
		return false
	}
	return s.file.HasSection(name)
}

// Target はグローバル設定を既定値とし、ターゲットのセクションで上書きした設定を返す
func (s *Settings) Target(name string) (*Target, error) {
	if !s.HasTarget(name) {
		return nil, fmt.Errorf("config: %w: %q", ErrNoTarget, name)
	}
	t, err := s.Defaults()
	if err != nil {
		return nil, err
	}
	t.Name = name
	if err := t.apply(s.file.Section(name)); err != nil {
		return nil, fmt.Errorf("config: [%s]: %w", name, err)
	}
	if t.GameID == "" {
		t.GameID = name
	}
	return t, nil
}

// Defaults returns the built-in defaults overlaid with the global section.
func (s *Settings) Defaults() (*Target, error) {
	t := defaultTarget()
	if s.file.HasSection(GlobalSection) {
		if err := t.apply(s.file.Section(GlobalSection)); err != nil {
			return nil, fmt.Errorf("config: [%s]: %w", GlobalSection, err)
		}
	}
	return t, nil
}

func defaultTarget() *Target {
	return &Target{
		Subtitles:   true,
		TalkSpeed:   60,
		MusicVolume: 192,
		SFXVolume:   192,
	}
}

func (t *Target) apply(sec *ini.Section) error {
	str := func(key string, dst *string) {
		if sec.HasKey(key) {
			*dst = strings.TrimSpace(sec.Key(key).String())
		}
	}
	num := func(key string, dst *int, lo, hi int) error {
		if !sec.HasKey(key) {
			return nil
		}
		v, err := sec.Key(key).Int()
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if v < lo || v > hi {
			return fmt.Errorf("%s: %d outside %d..%d", key, v, lo, hi)
		}
		*dst = v
		return nil
	}

	str("gameid", &t.GameID)
	str("path", &t.Path)
	str("soundfont", &t.SoundFont)
	str("save_dir", &t.SaveDir)
	str("language", &t.Language)
	if sec.HasKey("subtitles") {
		v, err := sec.Key("subtitles").Bool()
		if err != nil {
			return fmt.Errorf("subtitles: %w", err)
		}
		t.Subtitles = v
	}
	return errors.Join(
		num("boot_param", &t.BootParam, -32768, 32767),
		num("talkspeed", &t.TalkSpeed, 0, 255),
		num("music_volume", &t.MusicVolume, 0, 256),
		num("sfx_volume", &t.SFXVolume, 0, 256),
	)
}

// Merge はコマンドラインで指定された値で t を上書きした新しい Target を返す。
// t が nil の場合は既定値から始める。
func Merge(t *Target, args *cli.Config) *Target {
	var out Target
	if t != nil {
		out = *t
	} else {
		out = *defaultTarget()
	}
	if args.IsSet("path") {
		out.Path = args.GamePath
	}
	if args.IsSet("game") {
		out.GameID = args.GameID
	}
	if args.IsSet("boot-param") {
		out.BootParam = args.BootParam
	}
	if args.IsSet("soundfont") {
		out.SoundFont = args.SoundFont
	}
	if args.IsSet("save-dir") {
		out.SaveDir = args.SaveDir
	}
	return &out
}
