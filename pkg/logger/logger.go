package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var globalLogger *slog.Logger

var (
	channelMu sync.RWMutex
	channels  map[string]bool // nilなら全チャンネル有効
)

// ParseLevel は debug, info, warn, error のいずれかを slog.Level に変換する
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s", level)
}

// New は w に書き出すテキスト形式のロガーを作る
func New(w io.Writer, level string) (*slog.Logger, error) {
	lv, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})), nil
}

// InitLogger はグローバルロガーを標準エラー出力に向けて初期化する。
// 標準出力はヘッドレスモードのターゲット選択が使う。
func InitLogger(level string) error {
	l, err := New(os.Stderr, level)
	if err != nil {
		return err
	}
	globalLogger = l
	slog.SetDefault(l)
	return nil
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		// デフォルトロガーを返す
		return slog.Default()
	}
	return globalLogger
}

// SetChannels 有効にするデバッグチャンネルを設定する
// 空リストを渡すと全チャンネルが有効になる
func SetChannels(names []string) {
	channelMu.Lock()
	defer channelMu.Unlock()

	if len(names) == 0 {
		channels = nil
		return
	}
	channels = make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(strings.ToLower(n))
		if n != "" {
			channels[n] = true
		}
	}
}

// ChannelEnabled チャンネルが有効かどうかを返す
func ChannelEnabled(name string) bool {
	channelMu.RLock()
	defer channelMu.RUnlock()
	return channels == nil || channels[name]
}

// Channel チャンネル名付きのロガーを返す
// 無効なチャンネルはDebugレコードを捨てる
func Channel(name string) *slog.Logger {
	base := GetLogger()
	if !ChannelEnabled(name) {
		base = slog.New(&mutedDebugHandler{inner: base.Handler()})
	}
	return base.With("channel", name)
}

// mutedDebugHandler はDebugレベルのレコードだけを捨てる
type mutedDebugHandler struct {
	inner slog.Handler
}

func (h *mutedDebugHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level > slog.LevelDebug && h.inner.Enabled(ctx, level)
}

func (h *mutedDebugHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *mutedDebugHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mutedDebugHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *mutedDebugHandler) WithGroup(name string) slog.Handler {
	return &mutedDebugHandler{inner: h.inner.WithGroup(name)}
}
