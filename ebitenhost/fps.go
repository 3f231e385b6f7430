package ebitenhost

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
)

// fpsRefresh is how often the overlay text is redrawn, in seconds.
const fpsRefresh = 0.5

// FPSOverlay shows the measured FPS and TPS in the top-left corner.
type FPSOverlay struct {
	img     *ebiten.Image
	elapsed float64
}

// NewFPSOverlay creates an overlay that refreshes on its first update.
func NewFPSOverlay() *FPSOverlay {
	// 100x32 fits "FPS: 60.0\nTPS: 60.0".
	return &FPSOverlay{img: ebiten.NewImage(100, 32), elapsed: fpsRefresh}
}

// Update redraws the text at most every half second.
func (o *FPSOverlay) Update(dt float64) {
	o.elapsed += dt
	if o.elapsed < fpsRefresh {
		return
	}
	o.elapsed = 0
	o.img.Clear()
	o.img.Fill(color.RGBA{0, 0, 0, 128})
	ebitenutil.DebugPrint(o.img, fmt.Sprintf("FPS: %.1f\nTPS: %.1f", ebiten.ActualFPS(), ebiten.ActualTPS()))
}

// Draw paints the overlay onto screen.
func (o *FPSOverlay) Draw(screen *ebiten.Image) {
	screen.DrawImage(o.img, nil)
}
