package window

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/scumm-et/pkg/resource"
	"github.com/zurustar/scumm-et/pkg/vm"
)

var (
	// 選択画面の背景色
	backgroundColor = color.RGBA{0x00, 0x00, 0x40, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// 選択中のテキスト色（黄色）
	selectedTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// デバッグ表示の色
	boxColor   = color.RGBA{0x00, 0xFF, 0x00, 0xFF}
	actorColor = color.RGBA{0xFF, 0x40, 0x40, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

// Scale is the window size factor over the game resolution.
const Scale = 2

// mouse button codes delivered through KeyPress
const (
	keyLeftClick  = 0x8000
	keyRightClick = 0x4000
)

// Mode はウィンドウの表示モードを表す
type Mode int

const (
	ModeSelection Mode = iota // ターゲット選択画面
	ModeGame                  // ゲーム実行中
)

// Engine is the interpreter surface the window drives.
type Engine interface {
	Tick(delta int) error
	TickInterval() int
	SetMouse(x, y int)
	KeyPress(key int)
	Quit() bool
	Room() *resource.Room
	Actors() []vm.ActorState
	CameraX() int
	MessageText() string
}

// StartFunc prepares the engine for a selected target.
type StartFunc func(target string) (Engine, *Screen, error)

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	mode          Mode
	targets       []string
	selectedIndex int
	selected      string
	timeout       time.Duration
	startTime     time.Time

	engine Engine
	screen *Screen
	start  StartFunc

	frames int  // ティックに回していないフレーム数
	debug  bool // F1 でボックスとアクターを表示
	err    error

	frame     *ebiten.Image
	rgba      *image.RGBA
	cursor    *ebiten.Image
	cursorSrc *image.RGBA
	mu        sync.RWMutex
}

// NewGame creates a window already running engine on screen.
func NewGame(engine Engine, screen *Screen, timeout time.Duration) *Game {
	return &Game{
		mode:      ModeGame,
		engine:    engine,
		screen:    screen,
		timeout:   timeout,
		startTime: time.Now(),
	}
}

// NewSelection creates a window that lists targets and starts the chosen
// one through start.
func NewSelection(targets []string, start StartFunc, timeout time.Duration) *Game {
	return &Game{
		mode:      ModeSelection,
		targets:   targets,
		start:     start,
		timeout:   timeout,
		startTime: time.Now(),
	}
}

// Err returns the fault that ended the game loop, if any.
func (g *Game) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

func (g *Game) fail(err error) error {
	g.mu.Lock()
	g.err = err
	g.mu.Unlock()
	return ebiten.Termination
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	if g.timeout > 0 && time.Since(g.startTime) >= g.timeout {
		return ebiten.Termination
	}

	switch g.mode {
	case ModeSelection:
		return g.updateSelection()
	case ModeGame:
		return g.updateGame()
	}
	return nil
}

// updateSelection ターゲット選択画面の更新
func (g *Game) updateSelection() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyUp) && g.selectedIndex > 0 {
		g.selectedIndex--
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyDown) && g.selectedIndex < len(g.targets)-1 {
		g.selectedIndex++
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if !inpututil.IsKeyJustPressed(ebiten.KeyEnter) || len(g.targets) == 0 {
		return nil
	}

	g.selected = g.targets[g.selectedIndex]
	engine, screen, err := g.start(g.selected)
	if err != nil {
		return g.fail(err)
	}
	g.mu.Lock()
	g.engine, g.screen = engine, screen
	g.mode = ModeGame
	g.startTime = time.Now() // タイムアウトをリセット
	g.mu.Unlock()
	return nil
}

// updateGame は入力を渡し、スクリプトが要求する間隔でエンジンを進める
func (g *Game) updateGame() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) && ebiten.IsKeyPressed(ebiten.KeyShift) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF1) {
		g.debug = !g.debug
	}

	x, y := ebiten.CursorPosition()
	g.engine.SetMouse(x, y)
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.engine.KeyPress(keyLeftClick)
	}
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		g.engine.KeyPress(keyRightClick)
	}
	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if code, ok := keyCode(k); ok {
			g.engine.KeyPress(code)
		}
	}

	g.frames++
	if g.frames < g.engine.TickInterval() {
		return nil
	}
	delta := g.frames
	g.frames = 0
	if err := g.engine.Tick(delta); err != nil {
		return g.fail(err)
	}
	if g.engine.Quit() {
		return ebiten.Termination
	}
	return nil
}

// keyCodes はキーからスクリプトが期待するコードへの対応表。F1 はデバッグ表示に使う
var keyCodes = map[ebiten.Key]int{
	ebiten.KeyEscape: 27, ebiten.KeyEnter: 13, ebiten.KeySpace: ' ',
	ebiten.KeyPeriod: '.', ebiten.KeyBackspace: 8, ebiten.KeyTab: 9,
	ebiten.KeyF2: 316, ebiten.KeyF3: 317, ebiten.KeyF4: 318, ebiten.KeyF5: 319,
	ebiten.KeyF6: 320, ebiten.KeyF7: 321, ebiten.KeyF8: 322, ebiten.KeyF9: 323,
	ebiten.KeyF10: 324, ebiten.KeyF11: 325, ebiten.KeyF12: 326,
}

func init() {
	letters := []ebiten.Key{
		ebiten.KeyA, ebiten.KeyB, ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF,
		ebiten.KeyG, ebiten.KeyH, ebiten.KeyI, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyL,
		ebiten.KeyM, ebiten.KeyN, ebiten.KeyO, ebiten.KeyP, ebiten.KeyQ, ebiten.KeyR,
		ebiten.KeyS, ebiten.KeyT, ebiten.KeyU, ebiten.KeyV, ebiten.KeyW, ebiten.KeyX,
		ebiten.KeyY, ebiten.KeyZ,
	}
	for i, k := range letters {
		keyCodes[k] = 'a' + i
	}
	digits := []ebiten.Key{
		ebiten.KeyDigit0, ebiten.KeyDigit1, ebiten.KeyDigit2, ebiten.KeyDigit3, ebiten.KeyDigit4,
		ebiten.KeyDigit5, ebiten.KeyDigit6, ebiten.KeyDigit7, ebiten.KeyDigit8, ebiten.KeyDigit9,
	}
	for i, k := range digits {
		keyCodes[k] = '0' + i
	}
}

func keyCode(k ebiten.Key) (int, bool) {
	c, ok := keyCodes[k]
	return c, ok
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	switch g.mode {
	case ModeSelection:
		screen.Fill(backgroundColor)
		g.drawSelection(screen)
	case ModeGame:
		g.drawGame(screen)
	}
}

// drawSelection ターゲット選択画面の描画
func (g *Game) drawSelection(screen *ebiten.Image) {
	drawText(screen, "Select a game", 20, 20, textColor)
	for i, t := range g.targets {
		var c color.Color = textColor
		prefix := "  "
		if i == g.selectedIndex {
			prefix, c = "> ", selectedTextColor
		}
		drawText(screen, prefix+t, 30, 50+float64(i*16), c)
	}
	drawText(screen, "ENTER to start, ESC to exit", 20, 180, textColor)
}

func (g *Game) drawGame(screen *ebiten.Image) {
	b := g.screen.Bounds()
	if g.frame == nil {
		g.frame = ebiten.NewImage(b.Dx(), b.Dy())
		g.rgba = image.NewRGBA(b)
	}
	if !g.screen.TakeDirty().Empty() {
		g.screen.RGBA(g.rgba)
		g.frame.WritePixels(g.rgba.Pix)
	}
	screen.DrawImage(g.frame, nil)

	if msg := g.engine.MessageText(); msg != "" {
		drawText(screen, msg, 8, float64(b.Dy()-24), textColor)
	}
	if g.debug {
		g.drawDebug(screen, b)
	}
	if cur, hot := g.screen.Cursor(1); cur != nil {
		if cur != g.cursorSrc {
			if g.cursor != nil {
				g.cursor.Deallocate()
			}
			g.cursorSrc, g.cursor = cur, ebiten.NewImageFromImage(cur)
		}
		x, y := ebiten.CursorPosition()
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(x-hot.X), float64(y-hot.Y))
		screen.DrawImage(g.cursor, op)
	}
}

// drawDebug はルームのボックスとアクター位置を重ねて描く
func (g *Game) drawDebug(screen *ebiten.Image, b image.Rectangle) {
	ox := float32(g.engine.CameraX() - b.Dx()/2)
	if room := g.engine.Room(); room != nil {
		for _, box := range room.Boxes {
			if box.Invisible() {
				continue
			}
			pts := [4][2]float32{
				{float32(box.UL.X), float32(box.UL.Y)},
				{float32(box.UR.X), float32(box.UR.Y)},
				{float32(box.LR.X), float32(box.LR.Y)},
				{float32(box.LL.X), float32(box.LL.Y)},
			}
			for i := range pts {
				p, q := pts[i], pts[(i+1)%4]
				vector.StrokeLine(screen, p[0]-ox, p[1], q[0]-ox, q[1], 1, boxColor, false)
			}
		}
	}
	for _, a := range g.engine.Actors() {
		if !a.Visible {
			continue
		}
		x := float32(a.X) - ox
		vector.StrokeRect(screen, x-4, float32(a.Y)-24, 8, 24, 1, actorColor, false)
		drawText(screen, strconv.Itoa(a.Number), float64(x-4), float64(a.Y-38), actorColor)
	}
}

func drawText(screen *ebiten.Image, s string, x, y float64, c color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(c)
	text.Draw(screen, s, defaultFace, op)
}

// Layout はゲームの解像度を返す。ウィンドウはその Scale 倍で開く
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.screen != nil {
		b := g.screen.Bounds()
		return b.Dx(), b.Dy()
	}
	return 320, 200
}

// Selected returns the target chosen on the selection screen.
func (g *Game) Selected() string {
	return g.selected
}

// SelectHeadless はヘッドレスモードでターゲットを標準入力から選ぶ
func SelectHeadless(targets []string, timeout time.Duration, reader io.Reader, writer io.Writer) (string, error) {
	switch len(targets) {
	case 0:
		return "", errors.New("no targets configured")
	case 1:
		fmt.Fprintf(writer, "Auto-selecting target: %s\n", targets[0])
		return targets[0], nil
	}

	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fmt.Fprintln(writer, "Configured targets:")
	for i, t := range targets {
		fmt.Fprintf(writer, "  %d: %s\n", i+1, t)
	}
	fmt.Fprintln(writer)

	scanner := bufio.NewScanner(reader)
	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)

	go func() {
		for {
			fmt.Fprint(writer, "Select a target (1-", len(targets), ") or 'q' to quit: ")
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					errCh <- fmt.Errorf("failed to read input: %w", err)
				} else {
					errCh <- errors.New("input closed")
				}
				return
			}

			input := strings.TrimSpace(scanner.Text())
			if strings.EqualFold(input, "q") {
				errCh <- errors.New("user cancelled")
				return
			}
			num, err := strconv.Atoi(input)
			if err != nil {
				fmt.Fprintln(writer, "Invalid input. Please enter a number.")
				continue
			}
			if num < 1 || num > len(targets) {
				fmt.Fprintf(writer, "Invalid selection. Please enter a number between 1 and %d.\n", len(targets))
				continue
			}
			fmt.Fprintf(writer, "Selected: %s\n", targets[num-1])
			resultCh <- targets[num-1]
			return
		}
	}()

	select {
	case <-ctx.Done():
		return "", errors.New("timeout")
	case err := <-errCh:
		return "", err
	case t := <-resultCh:
		return t, nil
	}
}

// Run opens the window and runs g until it ends.
func Run(g *Game, title string) error {
	w, h := g.Layout(0, 0)
	ebiten.SetWindowSize(w*Scale, h*Scale)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return g.Err()
}
