// Package ebitenhost runs a fiber root inside an ebiten window: it feeds
// mouse and touch input to the event system, ticks the scheduler once per
// ebiten update and paints the scene objects as flat shapes.
package ebitenhost

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
)

// Config describes the window.
type Config struct {
	Title         string
	Width, Height int
	// TPS is the update rate. Zero uses ebiten's default of 60.
	TPS     int
	ShowFPS bool
	// OnUpdate runs at the start of every update, before input dispatch.
	OnUpdate func()
}

// Game implements ebiten.Game for one root.
type Game struct {
	ctx      context.Context
	rt       *fiber.Runtime
	root     fiber.RootID
	renderer *Renderer
	input    *Input
	fps      *FPSOverlay
	logger   *log.Logger
	onUpdate func()

	width, height int
	sized         bool
	tps           int
}

// NewGame installs a Renderer on root and returns the game driving it.
// The game stops when ctx is canceled.
func NewGame(ctx context.Context, rt *fiber.Runtime, root fiber.RootID, cfg Config) (*Game, error) {
	r, ok := rt.Roots.Get(root)
	if !ok {
		return nil, fmt.Errorf("ebitenhost: %w %s", fiber.ErrUnknownRoot, root)
	}
	g := &Game{
		ctx:      ctx,
		rt:       rt,
		root:     root,
		renderer: &Renderer{},
		input:    NewInput(),
		logger:   rt.Ctx.Logger.WithPrefix("ebiten"),
		width:    cfg.Width,
		height:   cfg.Height,
		tps:      cfg.TPS,
		onUpdate: cfg.OnUpdate,
	}
	if g.tps <= 0 {
		g.tps = ebiten.DefaultTPS
	}
	if cfg.ShowFPS {
		g.fps = NewFPSOverlay()
	}
	r.SetRenderer(g.renderer)
	return g, nil
}

// Renderer returns the renderer installed on the root.
func (g *Game) Renderer() *Renderer { return g.renderer }

// Update dispatches this frame's input and runs one scheduler tick.
func (g *Game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}
	if g.onUpdate != nil {
		g.onUpdate()
	}
	dt := 1 / float64(g.tps)
	events, left := g.input.Translate(readSample(g.width, g.height), dt)
	for _, p := range events {
		if err := g.rt.Events.Dispatch(g.root, p); err != nil {
			if errors.Is(err, fiber.ErrUnknownRoot) {
				return ebiten.Termination
			}
			g.logger.Warn("dispatch failed", "kind", p.Kind, "err", err)
		}
	}
	if left {
		g.rt.Events.Leave(g.root, 0)
	}
	g.rt.Scheduler.Tick(dt)
	if g.fps != nil {
		g.fps.Update(dt)
	}
	return nil
}

// Draw paints the last rendered frame.
func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
	if g.fps != nil {
		g.fps.Draw(screen)
	}
}

// Layout follows the window size and resizes the root to match.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	if !g.sized || outsideWidth != g.width || outsideHeight != g.height {
		g.width, g.height, g.sized = outsideWidth, outsideHeight, true
		scale := ebiten.Monitor().DeviceScaleFactor()
		if err := g.rt.Roots.Resize(g.root, float64(outsideWidth), float64(outsideHeight), scale); err != nil {
			g.logger.Warn("resize failed", "err", err)
		}
	}
	return outsideWidth, outsideHeight
}

// Run opens the window and blocks until it is closed or ctx is canceled.
func Run(ctx context.Context, rt *fiber.Runtime, root fiber.RootID, cfg Config) error {
	g, err := NewGame(ctx, rt, root, cfg)
	if err != nil {
		return err
	}
	if cfg.Title != "" {
		ebiten.SetWindowTitle(cfg.Title)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		ebiten.SetWindowSize(cfg.Width, cfg.Height)
	}
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(g.tps)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("ebitenhost: %w", err)
	}
	return nil
}

// readSample polls ebiten for the current pointer state.
func readSample(width, height int) Sample {
	x, y := ebiten.CursorPosition()
	_, wy := ebiten.Wheel()
	s := Sample{
		X:      float64(x),
		Y:      float64(y),
		Inside: x >= 0 && y >= 0 && x < width && y < height,
		Left:   ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft),
		Right:  ebiten.IsMouseButtonPressed(ebiten.MouseButtonRight),
		Middle: ebiten.IsMouseButtonPressed(ebiten.MouseButtonMiddle),
		// Ebiten reports wheel-up as positive; pointer events use the
		// opposite sign.
		WheelY: -wy,
		Mods:   readModifiers(),
	}
	for _, id := range ebiten.AppendTouchIDs(nil) {
		tx, ty := ebiten.TouchPosition(id)
		s.Touches = append(s.Touches, Touch{ID: int(id), X: float64(tx), Y: float64(ty)})
	}
	return s
}

// readModifiers reads the current keyboard modifier state.
func readModifiers() fiber.KeyModifiers {
	var mods fiber.KeyModifiers
	if ebiten.IsKeyPressed(ebiten.KeyShift) {
		mods |= fiber.ModShift
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) {
		mods |= fiber.ModCtrl
	}
	if ebiten.IsKeyPressed(ebiten.KeyAlt) {
		mods |= fiber.ModAlt
	}
	if ebiten.IsKeyPressed(ebiten.KeyMeta) {
		mods |= fiber.ModMeta
	}
	return mods
}
