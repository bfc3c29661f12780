package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	Target        string        // 設定ファイルのターゲット名、またはゲームディレクトリ
	ConfigPath    string        // INI 設定ファイル
	GamePath      string        // ゲームディレクトリ（ターゲットの path を上書き）
	GameID        string        // ゲームID（ターゲットの gameid を上書き）
	Timeout       time.Duration // タイムアウト時間（0は無制限）
	LogLevel      string        // ログレベル（debug, info, warn, error）
	Headless      bool          // ヘッドレスモード
	BootParam     int           // ブートスクリプトへの引数
	SoundFont     string        // MIDI 再生用 SF2 ファイル
	SaveDir       string        // セーブデータの保存先
	LoadSlot      int           // 起動時にロードするスロット（-1 はロードしない）
	DebugChannels []string      // 有効にするデバッグチャンネル（空は全部）
	ShowHelp      bool          // ヘルプ表示フラグ

	// set はコマンドラインで明示されたフラグ名
	set map[string]bool
}

// IsSet reports whether flag name was given on the command line.
// Short and long spellings count as the same flag.
func (c *Config) IsSet(name string) bool {
	return c.set[canonical(name)]
}

var shortNames = map[string]string{
	"c": "config",
	"p": "path",
	"g": "game",
	"t": "timeout",
	"l": "log-level",
	"h": "help",
}

func canonical(name string) string {
	if long, ok := shortNames[name]; ok {
		return long
	}
	return name
}

// boolFlags は値を取らないフラグ
var boolFlags = map[string]bool{"headless": true, "help": true}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("scumm-et", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{set: make(map[string]bool)}

	var timeoutSec int
	var channels string
	fs.StringVar(&config.ConfigPath, "config", "", "設定ファイル")
	fs.StringVar(&config.ConfigPath, "c", "", "設定ファイル（短縮形）")
	fs.StringVar(&config.GamePath, "path", "", "ゲームディレクトリ")
	fs.StringVar(&config.GamePath, "p", "", "ゲームディレクトリ（短縮形）")
	fs.StringVar(&config.GameID, "game", "", "ゲームID")
	fs.StringVar(&config.GameID, "g", "", "ゲームID（短縮形）")
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.IntVar(&config.BootParam, "boot-param", 0, "ブートパラメータ")
	fs.StringVar(&config.SoundFont, "soundfont", "", "SoundFont ファイル")
	fs.StringVar(&config.SaveDir, "save-dir", "", "セーブデータの保存先")
	fs.IntVar(&config.LoadSlot, "load", -1, "起動時にロードするスロット")
	fs.StringVar(&channels, "debug-channels", "", "デバッグチャンネル（カンマ区切り）")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { config.set[canonical(f.Name)] = true })

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("SCUMM_HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}
	if !config.IsSet("timeout") {
		if timeoutEnv := os.Getenv("SCUMM_TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}
	if !config.IsSet("log-level") {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}
	if !config.IsSet("config") {
		config.ConfigPath = os.Getenv("SCUMM_CONFIG")
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}
	if config.LoadSlot < -1 || config.LoadSlot > 99 {
		return nil, fmt.Errorf("load slot must be 0-99, got %d", config.LoadSlot)
	}

	for _, ch := range strings.Split(channels, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			config.DebugChannels = append(config.DebugChannels, ch)
		}
	}

	// 位置引数（ターゲット名またはゲームディレクトリ）
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("too many arguments: %v", fs.Args())
	}
	if fs.NArg() == 1 {
		config.Target = fs.Arg(0)
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように値が別の引数になっている場合
			name := canonical(strings.TrimLeft(arg, "-"))
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprint(w, `scumm-et - adventure script interpreter

Usage:
  scumm-et [options] [target]

Arguments:
  target        設定ファイルのターゲット名、またはゲームディレクトリ

Options:
  -c, --config <file>         INI 設定ファイル
  -p, --path <dir>            ゲームディレクトリ
  -g, --game <id>             ゲームID（monkey2, atlantis, tentacle, samnmax, ft, dig, comi など）
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし）
  --boot-param <n>            ブートスクリプトへの引数
  --soundfont <file>          MIDI 再生用 SF2 ファイル
  --save-dir <dir>            セーブデータの保存先
  --load <slot>               起動時にスロットをロード
  --debug-channels <list>     デバッグチャンネル: script,resource,costume,sound,actor,boxes
  -h, --help                  このヘルプを表示

Environment Variables:
  SCUMM_HEADLESS=1            ヘッドレスモードを有効化
  SCUMM_TIMEOUT=<seconds>     タイムアウト時間（秒）
  SCUMM_CONFIG=<file>         設定ファイル
  LOG_LEVEL=<level>           ログレベル

Examples:
  scumm-et monkey2                        設定ファイルのターゲットを起動
  scumm-et -g tentacle /games/dott        ディレクトリとゲームIDを指定
  scumm-et --headless -t 10 samnmax       10秒間ヘッドレスで実行
`)
}
