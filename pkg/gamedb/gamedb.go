// Package gamedb describes the known game variants: their file layout,
// bytecode generation and engine variable numbering.
package gamedb

import (
	_ "embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"gopkg.in/yaml.v3"

	"github.com/zurustar/scumm-et/pkg/fileutil"
	"github.com/zurustar/scumm-et/pkg/resource"
	"github.com/zurustar/scumm-et/pkg/vm"
)

//go:embed games.yaml
var gamesYAML []byte

// ErrUnknownGame is returned for ids missing from the table.
var ErrUnknownGame = errors.New("unknown game")

// ErrNotDetected means no known index file was found.
var ErrNotDetected = errors.New("no known game found")

// Game is one variant entry.
type Game struct {
	ID              string         `yaml:"id"`
	Name            string         `yaml:"name"`
	Version         int            `yaml:"version"`
	Features        []string       `yaml:"features"`
	IndexFile       string         `yaml:"index_file"`
	DiskPattern     string         `yaml:"disk_pattern"`
	IndexXOR        int            `yaml:"index_xor"`
	DiskXOR         int            `yaml:"disk_xor"`
	NumVariables    int            `yaml:"num_variables"`
	NumBitVariables int            `yaml:"num_bit_variables"`
	NumScriptSlots  int            `yaml:"num_script_slots"`
	NumActors       int            `yaml:"num_actors"`
	Encoding        string         `yaml:"encoding"`
	Vars            map[string]int `yaml:"vars"`
}

// Has reports whether the variant carries feature f.
func (g *Game) Has(f string) bool {
	return slices.Contains(g.Features, f)
}

// Layout returns the resource file layout.
func (g *Game) Layout() resource.Layout {
	return resource.Layout{
		Version:     g.Version,
		SmallHeader: g.Has("small_header"),
		IndexFile:   g.IndexFile,
		DiskPattern: g.DiskPattern,
		RoomPerFile: g.Has("room_per_file"),
		IndexXOR:    byte(g.IndexXOR),
		DiskXOR:     byte(g.DiskXOR),
	}
}

// VMConfig returns the interpreter configuration with the variant's
// overrides applied over the generation defaults.
func (g *Game) VMConfig() (*vm.Config, error) {
	cfg, err := vm.NewConfig(g.Version, g.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.ID, err)
	}
	if g.NumVariables > 0 {
		cfg.NumVariables = g.NumVariables
	}
	if g.NumBitVariables > 0 {
		cfg.NumBitVariables = g.NumBitVariables
	}
	if g.NumScriptSlots > 0 {
		cfg.NumSlots = g.NumScriptSlots
	}
	if g.NumActors > 0 {
		cfg.NumActors = g.NumActors
	}
	if err := cfg.Vars.Apply(g.Vars); err != nil {
		return nil, fmt.Errorf("%s: %w", g.ID, err)
	}
	return cfg, nil
}

// TextEncoding returns the code page of the game's text.
func (g *Game) TextEncoding() encoding.Encoding {
	switch strings.ToLower(g.Encoding) {
	case "shiftjis", "sjis":
		return japanese.ShiftJIS
	case "cp850":
		return charmap.CodePage850
	}
	return charmap.CodePage437
}

var (
	loadOnce sync.Once
	games    []Game
	loadErr  error
)

func load() ([]Game, error) {
	loadOnce.Do(func() {
		games, loadErr = Parse(gamesYAML)
	})
	return games, loadErr
}

// Parse reads a variant table.
func Parse(data []byte) ([]Game, error) {
	var list []Game
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("game table: %w", err)
	}
	seen := make(map[string]bool, len(list))
	for i, g := range list {
		switch {
		case g.ID == "":
			return nil, fmt.Errorf("game table: entry %d has no id", i)
		case seen[g.ID]:
			return nil, fmt.Errorf("game table: duplicate id %q", g.ID)
		case g.Version < 3 || g.Version > 8:
			return nil, fmt.Errorf("game table: %s: version %d", g.ID, g.Version)
		case g.IndexFile == "" || g.DiskPattern == "":
			return nil, fmt.Errorf("game table: %s: missing file names", g.ID)
		}
		seen[g.ID] = true
	}
	return list, nil
}

// All returns every known variant.
func All() ([]Game, error) {
	list, err := load()
	if err != nil {
		return nil, err
	}
	return slices.Clone(list), nil
}

// Lookup returns the variant with the given id.
func Lookup(id string) (*Game, error) {
	list, err := load()
	if err != nil {
		return nil, err
	}
	for i := range list {
		if strings.EqualFold(list[i].ID, id) {
			g := list[i]
			return &g, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownGame, id)
}

// Detect は fsys のルートにあるインデックスファイルからゲームを判定する。
// 同じインデックス名を持つ変種は表の先頭のものが選ばれる。
func Detect(fsys fileutil.FileSystem) (*Game, error) {
	list, err := load()
	if err != nil {
		return nil, err
	}
	for i := range list {
		g := list[i]
		if g.Has("no_detect") {
			continue
		}
		if _, err := fsys.FindFile(".", g.IndexFile); err == nil {
			return &g, nil
		}
	}
	return nil, ErrNotDetected
}
