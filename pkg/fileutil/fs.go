// Package fileutil gives case-insensitive access to game files, either on
// disk or inside an fs.FS.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no file matches a name in any case.
var ErrNotFound = errors.New("file not found")

// FileSystem は実ファイルシステムと埋め込みファイルシステムを統一的に扱うインターフェース
type FileSystem interface {
	// Open はファイルを開く（大文字小文字を無視）
	Open(name string) (fs.File, error)
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// ReadDir はディレクトリの内容を読み込む
	ReadDir(name string) ([]fs.DirEntry, error)
	// FindFile は大文字小文字を無視してファイルを検索し、Open に渡せるパスを返す
	FindFile(dir, filename string) (string, error)
	// Glob はパターンに一致するファイルを大文字小文字を無視して列挙する
	Glob(pattern string) ([]string, error)
	// BasePath はベースパスを返す
	BasePath() string
	// IsEmbedded は埋め込みファイルシステムかどうかを返す
	IsEmbedded() bool
}

// folded は fs.FS の上で名前の大文字小文字を無視する共通実装
type folded struct {
	fsys fs.FS
	root string
	base string
}

// resolve は利用者の名前を fsys 内のパスに変換する
func (f folded) resolve(name string) string {
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	return path.Join(f.root, name)
}

// rel は fsys 内のパスを利用者から見たパスに戻す
func (f folded) rel(p string) string {
	if f.root == "." {
		return p
	}
	return strings.TrimPrefix(strings.TrimPrefix(p, f.root), "/")
}

func (f folded) find(p string) (string, error) {
	if info, err := fs.Stat(f.fsys, p); err == nil && !info.IsDir() {
		return p, nil
	}
	return FindFileCaseInsensitiveFS(f.fsys, path.Dir(p), path.Base(p))
}

func (f folded) Open(name string) (fs.File, error) {
	p, err := f.find(f.resolve(name))
	if err != nil {
		return nil, err
	}
	return f.fsys.Open(p)
}

func (f folded) ReadFile(name string) ([]byte, error) {
	p, err := f.find(f.resolve(name))
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(f.fsys, p)
}

func (f folded) ReadDir(name string) ([]fs.DirEntry, error) {
	return fs.ReadDir(f.fsys, f.resolve(name))
}

func (f folded) FindFile(dir, filename string) (string, error) {
	p, err := FindFileCaseInsensitiveFS(f.fsys, f.resolve(dir), filename)
	if err != nil {
		return "", err
	}
	return f.rel(p), nil
}

func (f folded) Glob(pattern string) ([]string, error) {
	pattern = strings.TrimLeft(filepath.ToSlash(pattern), "/")
	dir, base := path.Split(pattern)
	if _, err := path.Match(base, ""); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(f.fsys, f.resolve(dir))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	base = strings.ToLower(base)
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if ok, _ := path.Match(base, strings.ToLower(entry.Name())); ok {
			matches = append(matches, path.Join(dir, entry.Name()))
		}
	}
	return matches, nil
}

func (f folded) BasePath() string {
	return f.base
}

// RealFS はゲームディレクトリへのアクセスを提供する
type RealFS struct {
	folded
}

// NewRealFS は basePath 以下を読む FileSystem を作成する。空なら現在のディレクトリ。
func NewRealFS(basePath string) *RealFS {
	dir := basePath
	if dir == "" {
		dir = "."
	}
	return &RealFS{folded{fsys: os.DirFS(dir), root: ".", base: basePath}}
}

func (r *RealFS) IsEmbedded() bool {
	return false
}

// EmbedFS は任意の fs.FS（embed.FS やテスト用の fstest.MapFS）へのアクセスを提供する
type EmbedFS struct {
	folded
}

// NewEmbedFS は fsys 内の basePath 以下を読む FileSystem を作成する
func NewEmbedFS(fsys fs.FS, basePath string) *EmbedFS {
	root := path.Clean(filepath.ToSlash(basePath))
	if root == "" || root == "/" {
		root = "."
	}
	return &EmbedFS{folded{fsys: fsys, root: strings.TrimPrefix(root, "/"), base: basePath}}
}

func (e *EmbedFS) IsEmbedded() bool {
	return true
}

// FindFileCaseInsensitiveFS は fsys の dir から大文字小文字を無視して filename を探す
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(entry.Name(), filename) {
			return path.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}
