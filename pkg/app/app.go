package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/zurustar/scumm-et/pkg/cli"
	"github.com/zurustar/scumm-et/pkg/config"
	"github.com/zurustar/scumm-et/pkg/fileutil"
	"github.com/zurustar/scumm-et/pkg/gamedb"
	"github.com/zurustar/scumm-et/pkg/logger"
	"github.com/zurustar/scumm-et/pkg/resource"
	"github.com/zurustar/scumm-et/pkg/savegame"
	"github.com/zurustar/scumm-et/pkg/sound"
	"github.com/zurustar/scumm-et/pkg/vm"
	"github.com/zurustar/scumm-et/pkg/window"
)

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config   *cli.Config
	settings *config.Settings
	log      *slog.Logger

	// テスト用に差し替え可能
	stdin  io.Reader
	stdout io.Writer
	// audioCtx は GUI モードで一度だけ作成する
	audioCtx *audio.Context
}

// New Applicationを作成
func New() *Application {
	return &Application{
		stdin:  os.Stdin,
		stdout: os.Stdout,
	}
}

// session は起動済みのゲーム一式
type session struct {
	target *config.Target
	game   *gamedb.Game
	vm     *vm.VM
	screen *window.Screen
	player *sound.Player
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	cfg, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}
	app.config = cfg

	if cfg.ShowHelp {
		cli.PrintHelp(app.stdout)
		return nil
	}

	// 2. ロガーの初期化
	if err := logger.InitLogger(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetChannels(cfg.DebugChannels)
	app.log = logger.GetLogger()
	app.log.Info("Application started", "headless", cfg.Headless)

	// 3. 設定ファイルの読み込み
	app.settings, err = config.Load(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 4. ターゲットの選択と実行
	if cfg.Headless {
		return app.runHeadless()
	}
	return app.runDesktop()
}

// chooseTarget はコマンドラインのターゲット名から設定を組み立てる。
// 設定ファイルにない名前はゲームディレクトリとして扱う。
func (app *Application) chooseTarget(name string) (*config.Target, error) {
	if app.settings.HasTarget(name) {
		base, err := app.settings.Target(name)
		if err != nil {
			return nil, err
		}
		return config.Merge(base, app.config), nil
	}
	base, err := app.settings.Defaults()
	if err != nil {
		return nil, err
	}
	if name != "" {
		base.Name = name
		base.Path = name
	}
	return config.Merge(base, app.config), nil
}

// resolveTarget は引数から、なければ標準入力での選択からターゲットを決める
func (app *Application) resolveTarget() (*config.Target, error) {
	if app.config.Target != "" || app.config.IsSet("path") {
		return app.chooseTarget(app.config.Target)
	}
	name, err := window.SelectHeadless(app.settings.Targets(), app.config.Timeout, app.stdin, app.stdout)
	if err != nil {
		return nil, fmt.Errorf("failed to select target: %w", err)
	}
	return app.chooseTarget(name)
}

func (app *Application) runHeadless() error {
	target, err := app.resolveTarget()
	if err != nil {
		return err
	}
	s, err := app.openGame(target)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app.log.Info("Running headless", "game", s.game.ID, "timeout", app.config.Timeout)
	err = s.vm.Run(ctx, app.config.Timeout)
	s.player.StopAllSounds()
	switch {
	case errors.Is(err, vm.ErrQuit):
		app.log.Info("Game quit")
		return nil
	case err != nil:
		return fmt.Errorf("game stopped: %w", err)
	}
	return nil
}

func (app *Application) runDesktop() error {
	app.audioCtx = audio.NewContext(sound.SampleRate)

	var g *window.Game
	if app.config.Target != "" || app.config.IsSet("path") || len(app.settings.Targets()) == 0 {
		target, err := app.chooseTarget(app.config.Target)
		if err != nil {
			return err
		}
		s, err := app.openGame(target)
		if err != nil {
			return err
		}
		g = window.NewGame(s.vm, s.screen, app.config.Timeout)
	} else {
		g = window.NewSelection(app.settings.Targets(), app.startTarget, app.config.Timeout)
	}

	app.log.Info("Starting window")
	if err := window.Run(g, "scumm-et"); err != nil {
		if errors.Is(err, vm.ErrQuit) {
			return nil
		}
		return err
	}
	return nil
}

// startTarget は選択画面で選ばれたターゲットを起動する
func (app *Application) startTarget(name string) (window.Engine, *window.Screen, error) {
	target, err := app.chooseTarget(name)
	if err != nil {
		return nil, nil, err
	}
	s, err := app.openGame(target)
	if err != nil {
		return nil, nil, err
	}
	return s.vm, s.screen, nil
}

// openGame はゲームを識別し、リソース・音声・セーブ先を組み立てて VM を起動する
func (app *Application) openGame(target *config.Target) (*session, error) {
	path := target.Path
	if path == "" {
		path = "."
	}
	fsys := fileutil.NewRealFS(path)

	game, err := app.identify(fsys, target.GameID)
	if err != nil {
		return nil, err
	}
	app.log.Info("Game identified", "id", game.ID, "name", game.Name, "version", game.Version, "path", path)

	cfg, err := game.VMConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to configure %s: %w", game.ID, err)
	}
	res, err := resource.NewManager(fsys, game.Layout())
	if err != nil {
		return nil, fmt.Errorf("failed to open resources: %w", err)
	}

	screen := window.NewScreen(cfg.ScreenWidth, cfg.ScreenHeight)
	player := app.newPlayer(res, target, path)

	saveDir := target.SaveDir
	if saveDir == "" {
		saveDir = defaultSaveDir(game.ID)
	}
	store := savegame.NewDirStore(saveDir, game.ID)

	machine := vm.New(cfg, res,
		vm.WithLogger(logger.Channel("script")),
		vm.WithSound(player),
		vm.WithDisplay(screen),
		vm.WithTextEncoding(game.TextEncoding()),
		vm.WithSaveStore(store),
	)
	machine.InitObjects(res.Index().Objects)

	if err := app.start(machine, store, target); err != nil {
		return nil, err
	}
	if !target.Subtitles && cfg.Vars.NoSubtitles != vm.NoVar {
		if err := machine.SetVar(cfg.Vars.NoSubtitles, 1); err != nil {
			return nil, err
		}
	}

	return &session{target: target, game: game, vm: machine, screen: screen, player: player}, nil
}

// identify は指定されたゲームIDを引き、なければファイル構成から推定する
func (app *Application) identify(fsys fileutil.FileSystem, id string) (*gamedb.Game, error) {
	if id != "" {
		game, err := gamedb.Lookup(id)
		if err == nil {
			return game, nil
		}
		app.log.Warn("Unknown game id, detecting from files", "id", id, "error", err)
	}
	game, err := gamedb.Detect(fsys)
	if err != nil {
		return nil, fmt.Errorf("failed to identify game in %s: %w", fsys.BasePath(), err)
	}
	return game, nil
}

// start はセーブスロットが指定されていればロードし、そうでなければブートスクリプトを走らせる
func (app *Application) start(machine *vm.VM, store savegame.Store, target *config.Target) error {
	slot := app.config.LoadSlot
	if slot < 0 {
		if err := machine.Boot(target.BootParam); err != nil {
			return fmt.Errorf("failed to boot: %w", err)
		}
		return nil
	}
	data, err := store.Load(slot)
	if err != nil {
		return fmt.Errorf("failed to read slot %d: %w", slot, err)
	}
	if err := machine.LoadState(data); err != nil {
		return fmt.Errorf("failed to load slot %d: %w", slot, err)
	}
	app.log.Info("Save loaded", "slot", slot)
	return nil
}

// newPlayer は音声プレイヤーを作成する。SoundFont が読めない場合は MIDI を鳴らさない。
func (app *Application) newPlayer(res *resource.Manager, target *config.Target, gameDir string) *sound.Player {
	opts := []sound.Option{
		sound.WithMuted(app.config.Headless || (target.MusicVolume == 0 && target.SFXVolume == 0)),
	}
	if app.audioCtx != nil {
		opts = append(opts, sound.WithContext(app.audioCtx))
	}
	if path := findSoundFont(target.SoundFont, gameDir); path != "" {
		sf, err := sound.LoadSoundFont(nil, path)
		if err != nil {
			app.log.Warn("SoundFont unavailable, MIDI disabled", "path", path, "error", err)
		} else {
			app.log.Info("SoundFont loaded", "path", path)
			opts = append(opts, sound.WithSoundFont(sf))
		}
	}
	return sound.NewPlayer(res, opts...)
}
