package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
)

func TestRealFS_CaseInsensitive(t *testing.T) {
	// Create a temporary directory for testing
	tmpDir := t.TempDir()

	testFiles := []string{
		"MONKEY2.000",
		"monkey2.001",
		"Disk01.Lec",
	}
	for _, filename := range testFiles {
		if err := os.WriteFile(filepath.Join(tmpDir, filename), []byte(filename), 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "SAVES"), 0o755); err != nil {
		t.Fatal(err)
	}

	fsys := NewRealFS(tmpDir)

	tests := []struct {
		name          string
		searchName    string
		shouldFind    bool
		expectedMatch string
	}{
		{"exact match", "MONKEY2.000", true, "MONKEY2.000"},
		{"lowercase search for uppercase file", "monkey2.000", true, "MONKEY2.000"},
		{"uppercase search for lowercase file", "MONKEY2.001", true, "monkey2.001"},
		{"mixed case", "DISK01.LEC", true, "Disk01.Lec"},
		{"leading slash", "/monkey2.000", true, "MONKEY2.000"},
		{"directories are skipped", "saves", false, ""},
		{"file not found", "monkey2.002", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := fsys.ReadFile(tt.searchName)
			if !tt.shouldFind {
				if err == nil {
					t.Errorf("Expected error, got %q", data)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected to find file, but got error: %v", err)
			}
			if string(data) != tt.expectedMatch {
				t.Errorf("read %q, want contents of %s", data, tt.expectedMatch)
			}

			f, err := fsys.Open(tt.searchName)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer f.Close()
			if b, _ := io.ReadAll(f); string(b) != tt.expectedMatch {
				t.Errorf("Open read %q", b)
			}
		})
	}
}

func TestFindFile(t *testing.T) {
	mapFS := fstest.MapFS{
		"games/dott/TENTACLE.000": {Data: []byte("idx")},
		"games/dott/tentacle.001": {Data: []byte("disk")},
		"games/readme.txt":        {},
	}
	fsys := NewEmbedFS(mapFS, "games/dott")

	got, err := fsys.FindFile(".", "tentacle.000")
	if err != nil {
		t.Fatal(err)
	}
	// 返るパスは同じ FileSystem でそのまま開ける
	if got != "TENTACLE.000" {
		t.Errorf("FindFile = %q", got)
	}
	if data, err := fsys.ReadFile(got); err != nil || string(data) != "idx" {
		t.Errorf("ReadFile(%q) = %q, %v", got, data, err)
	}

	if _, err := fsys.FindFile(".", "readme.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("file outside the base found: %v", err)
	}
	if _, err := fsys.FindFile("missing", "x"); err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("missing directory: %v", err)
	}
}

func TestGlob(t *testing.T) {
	fsys := NewEmbedFS(fstest.MapFS{
		"MONKEY2.000": {},
		"monkey2.001": {},
		"MONKEY2.002": {},
		"readme.txt":  {},
		"saves/a.s00": {},
	}, "")

	tests := []struct {
		pattern string
		want    []string
	}{
		{"monkey2.00?", []string{"MONKEY2.000", "MONKEY2.002", "monkey2.001"}},
		{"*.TXT", []string{"readme.txt"}},
		{"saves/*.s??", []string{"saves/a.s00"}},
		{"*.lfl", nil},
	}
	for _, tt := range tests {
		got, err := fsys.Glob(tt.pattern)
		if err != nil {
			t.Fatalf("Glob(%q): %v", tt.pattern, err)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("Glob(%q) = %v, want %v", tt.pattern, got, tt.want)
		}
	}

	if _, err := fsys.Glob("[x"); err == nil {
		t.Error("malformed pattern accepted")
	}
}

func TestEmbedFS_ReadDir(t *testing.T) {
	fsys := NewEmbedFS(fstest.MapFS{
		"a.lfl":     {},
		"b.lfl":     {},
		"sub/c.lfl": {},
	}, "")

	entries, err := fsys.ReadDir(".")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("entries = %d", len(entries))
	}
	if data, err := fsys.ReadFile("SUB/C.LFL"); err == nil {
		t.Errorf("directory names are matched exactly, got %q", data)
	}
	if !fsys.IsEmbedded() || NewRealFS("").IsEmbedded() {
		t.Error("IsEmbedded mismatch")
	}
}

func TestBasePath(t *testing.T) {
	if got := NewRealFS("/games/ft").BasePath(); got != "/games/ft" {
		t.Errorf("RealFS BasePath = %q", got)
	}
	if got := NewEmbedFS(fstest.MapFS{}, "titles").BasePath(); got != "titles" {
		t.Errorf("EmbedFS BasePath = %q", got)
	}
}
