package ebiten

import (
	"context"
	"encoding/hex"
	"fmt"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/sync/errgroup"

	"github.com/arlobrennan/chip8x/internal/chip8"
	"github.com/arlobrennan/chip8x/internal/controller"
)

var (
	buttonReleasedColor color.Color = MustDecodeColorFromHex("999999")
	buttonPressedColor  color.Color = MustDecodeColorFromHex("65f057")
)

var keyboardPosition = map[uint8]uint8{
	0x0: 0x1, 0x1: 0x2, 0x2: 0x3, 0x3: 0xC,
	0x4: 0x4, 0x5: 0x5, 0x6: 0x6, 0x7: 0xD,
	0x8: 0x7, 0x9: 0x8, 0xA: 0x9, 0xB: 0xE,
	0xC: 0xA, 0xD: 0x0, 0xE: 0xB, 0xF: 0xF,
}

// staleBeepTimeout bounds how long the tone keeps playing without
// Update refreshing lastBeepAt (watchdog in Run, below). Update
// refreshes it on every frame while the tone is on, so this only ever
// fires if the host loop stops delivering frames while the tone is on.
const staleBeepTimeout = 2 * time.Second

// Config configures window colors and the title's ROM name, adapted
// from the teacher's renderer.Config.
type Config struct {
	FgColor color.Color
	BgColor color.Color
	ROMName string
}

// Game is the ebiten.Game implementation driving a controller.Controller
// once per tick, matching the teacher's Renderer.Update/Draw/Layout
// shape. See Host's doc comment for why HostIO and ebiten.Game are
// split across two types here.
type Game struct {
	ctrl *controller.Controller
	host *Host
	beep *beeper

	fgColor color.Color
	bgColor color.Color
	romName string

	keypadMode bool
	lastBeepAt time.Time
}

// New builds a Game's HostIO half without a controller yet bound: a
// controller.Controller needs a hostio.HostIO at construction time,
// but this Game needs the controller to drive Update/Draw, so callers
// do New(conf) -> controller.New(m, game.HostIO()) -> game.BindController(ctrl).
func New(conf Config) (*Game, error) {
	beep, err := newBeeper()
	if err != nil {
		return nil, fmt.Errorf("create beeper: %w", err)
	}
	return &Game{
		host:    newHost(beep),
		beep:    beep,
		fgColor: conf.FgColor,
		bgColor: conf.BgColor,
		romName: conf.ROMName,
	}, nil
}

// HostIO exposes the hostio.HostIO half, to be passed to
// controller.New before BindController.
func (g *Game) HostIO() *Host { return g.host }

// BindController attaches the controller this Game drives. It must be
// called, with a Controller constructed over g.HostIO(), before Run.
func (g *Game) BindController(ctrl *controller.Controller) { g.ctrl = ctrl }

func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		g.ctrl.TogglePause()
		g.setWindowTitle()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyK) {
		g.keypadMode = !g.keypadMode
	}
	switch {
	case inpututil.IsKeyJustPressed(ebiten.Key0):
		g.beep.volumeUp()
	case inpututil.IsKeyJustPressed(ebiten.Key9):
		g.beep.volumeDown()
	}

	if err := g.ctrl.RunFrame(); err != nil {
		return fmt.Errorf("run frame: %w", err)
	}
	if g.beep.on {
		g.lastBeepAt = time.Now()
	}
	return nil
}

func (g *Game) Draw(screen *ebiten.Image) {
	fb := g.host.framebuffer()
	for x := 0; x < chip8.ScreenWidth; x++ {
		for y := 0; y < chip8.ScreenHeight; y++ {
			pixelColor := g.bgColor
			if fb.Get(x, y) {
				pixelColor = g.fgColor
			}
			screen.Set(x, y, pixelColor)
		}
	}

	if !g.keypadMode {
		return
	}

	buttonsInRow := 4
	buttonSize := 4
	screenOffsetX := (chip8.ScreenWidth - (buttonsInRow*buttonSize + buttonsInRow - 1)) >> 1
	screenOffsetY := chip8.ScreenHeight + 1

	keys := g.ctrl.Machine().Keys
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			pixelColor := buttonReleasedColor
			key := y<<2 | x&0xf
			if keys[keyboardPosition[uint8(key)]] {
				pixelColor = buttonPressedColor
			}

			posX := screenOffsetX + (x * (buttonSize + 1))
			posY := screenOffsetY + (y * (buttonSize + 1))

			vector.DrawFilledRect(screen,
				float32(posX), float32(posY),
				float32(buttonSize), float32(buttonSize),
				pixelColor, false,
			)
		}
	}
}

func (g *Game) Layout(int, int) (int, int) {
	if g.keypadMode {
		return chip8.ScreenWidth, chip8.ScreenHeight + 22
	}
	return chip8.ScreenWidth, chip8.ScreenHeight
}

func (g *Game) setWindowTitle() {
	_, name := g.ctrl.Backend()
	state := g.ctrl.Machine().State
	ebiten.SetWindowTitle(fmt.Sprintf("chip8x: %s [%s] %s", g.romName, name, state))
}

// Run starts the ebiten window and a beep-timeout watchdog concurrently,
// returning whichever errors first — a generalization of the teacher's
// single-goroutine Renderer.Run, using golang.org/x/sync/errgroup to
// collect the result and cancel the other side.
func (g *Game) Run() error {
	ebiten.SetTPS(chip8.DefaultTPS)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	g.setWindowTitle()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		defer cancel()
		if err := ebiten.RunGame(g); err != nil {
			return fmt.Errorf("run ebiten game loop: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return g.watchStaleBeep(ctx)
	})

	return group.Wait()
}

// watchStaleBeep force-silences a beep that has been on continuously
// for longer than staleBeepTimeout without a fresh Update refreshing
// lastBeepAt, per this file's staleBeepTimeout doc comment.
func (g *Game) watchStaleBeep(ctx context.Context) error {
	ticker := time.NewTicker(staleBeepTimeout / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if g.beep.on && now.Sub(g.lastBeepAt) > staleBeepTimeout {
				log.Println("ebiten host: beep exceeded its timeout with no refresh, forcing it off")
				g.beep.setOn(false)
			}
		}
	}
}

func MustDecodeColorFromHex(s string) color.Color {
	c, err := DecodeColorFromHex(s)
	if err != nil {
		log.Fatal(err.Error())
	}
	return c
}

func DecodeColorFromHex(s string) (color.Color, error) {
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("couldn't decode a hex string: %w", err)
	}
	if len(data) != 3 && len(data) != 4 {
		return nil, fmt.Errorf("color must be in rgb or rgba format")
	}

	c := color.RGBA{R: data[0], G: data[1], B: data[2], A: 0xff}
	if len(data) == 4 {
		c.A = data[3]
	}
	return c, nil
}
