package app

import (
	"os"
	"path/filepath"
)

// DefaultSoundFontName is the SoundFont searched for when none is configured.
const DefaultSoundFontName = "GeneralUser-GS.sf2"

// findSoundFont は SF2 ファイルを以下の順に探し、見つからなければ空文字列を返す
//  1. 設定ファイルまたはコマンドラインで指定されたパス
//  2. ゲームディレクトリ
//  3. カレントディレクトリ
//  4. ユーザー設定ディレクトリの scumm-et
func findSoundFont(configured, gameDir string) string {
	if configured != "" {
		return configured
	}
	candidates := []string{
		filepath.Join(gameDir, DefaultSoundFontName),
		DefaultSoundFontName,
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "scumm-et", DefaultSoundFontName))
	}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// defaultSaveDir はセーブデータの既定の保存先を返す
func defaultSaveDir(gameID string) string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "scumm-et", "saves", gameID)
	}
	return filepath.Join(".", "saves", gameID)
}
