package ebitenhost

import (
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/objects"
)

// Projector maps world points to normalized device coordinates. Both
// object cameras implement it.
type Projector interface {
	Project(p fiber.Vec3) (ndc fiber.Vec2, depth float64, ok bool)
}

// Shape is the primitive a draw item is painted with.
type Shape uint8

const (
	ShapeRect Shape = iota
	ShapeCircle
)

// Item is one projected object in screen pixels.
type Item struct {
	Name     string
	Shape    Shape
	X, Y     float64
	W, H     float64
	Rotation float64
	Depth    float64
	Order    int
	Color    fiber.Color
}

// DrawList is a flattened, ordered view of a scene.
type DrawList struct {
	Background fiber.Color
	Items      []Item
}

// BuildDrawList walks scene and projects every visible mesh and sprite
// through cam onto a width by height screen. Items are ordered by render
// order, then back to front.
func BuildDrawList(scene any, cam fiber.Camera, width, height float64) DrawList {
	var dl DrawList
	root, ok := scene.(objects.Object)
	if !ok {
		return dl
	}
	if s, ok := scene.(*objects.Scene); ok {
		dl.Background = s.Background
	}
	proj, ok := cam.(Projector)
	if !ok || width <= 0 || height <= 0 {
		return dl
	}
	toScreen := func(p fiber.Vec3) (x, y, depth float64, ok bool) {
		ndc, depth, ok := proj.Project(p)
		return (ndc.X + 1) / 2 * width, (1 - ndc.Y) / 2 * height, depth, ok
	}

	var walk func(o objects.Object)
	walk = func(o objects.Object) {
		n := o.Base()
		if !n.Visible {
			return
		}
		if it, ok := itemFor(o); ok {
			cx, cy, depth, inFront := toScreen(n.LocalToWorld(fiber.Vec3{}))
			ex, ey, _, okX := toScreen(n.LocalToWorld(fiber.Vec3{X: it.W / 2}))
			fx, fy, _, okY := toScreen(n.LocalToWorld(fiber.Vec3{Y: it.H / 2}))
			if inFront && okX && okY {
				it.X, it.Y, it.Depth = cx, cy, depth
				it.W = 2 * math.Hypot(ex-cx, ey-cy)
				it.H = 2 * math.Hypot(fx-cx, fy-cy)
				it.Rotation = math.Atan2(ey-cy, ex-cx)
				it.Order = n.Order
				it.Name = n.Name
				dl.Items = append(dl.Items, it)
			}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)

	sort.SliceStable(dl.Items, func(i, j int) bool {
		a, b := dl.Items[i], dl.Items[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.Depth > b.Depth
	})
	return dl
}

// itemFor returns the local extent and color of a drawable object.
func itemFor(o objects.Object) (Item, bool) {
	switch v := o.(type) {
	case *objects.Mesh:
		c := fiber.ColorWhite
		if v.Material != nil {
			c = v.Material.Color
			c.A *= v.Material.Opacity
		}
		switch g := v.Geometry.(type) {
		case *objects.SphereGeometry:
			return Item{Shape: ShapeCircle, W: 2 * g.Radius, H: 2 * g.Radius, Color: c}, true
		case *objects.BoxGeometry:
			return Item{W: g.Width, H: g.Height, Color: c}, true
		case *objects.PlaneGeometry:
			return Item{W: g.Width, H: g.Height, Color: c}, true
		}
	case *objects.Sprite:
		return Item{W: v.Width, H: v.Height, Color: v.Tint}, true
	}
	return Item{}, false
}

var (
	whitePixel     *ebiten.Image
	whitePixelOnce sync.Once
)

// WhitePixel is a 1x1 white image scaled and tinted to paint rectangles.
func WhitePixel() *ebiten.Image {
	whitePixelOnce.Do(func() {
		whitePixel = ebiten.NewImage(1, 1)
		whitePixel.Fill(color.White)
	})
	return whitePixel
}

func toNRGBA(c fiber.Color) color.NRGBA {
	clamp := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
	}
	return color.NRGBA{R: clamp(c.R), G: clamp(c.G), B: clamp(c.B), A: clamp(c.A)}
}

// Paint fills screen with the background and draws every item in order.
func (dl DrawList) Paint(screen *ebiten.Image) {
	screen.Fill(toNRGBA(dl.Background))
	px := WhitePixel()
	for _, it := range dl.Items {
		switch it.Shape {
		case ShapeCircle:
			vector.DrawFilledCircle(screen, float32(it.X), float32(it.Y), float32(it.W/2), toNRGBA(it.Color), true)
		default:
			var op ebiten.DrawImageOptions
			op.GeoM.Translate(-0.5, -0.5)
			op.GeoM.Scale(it.W, it.H)
			op.GeoM.Rotate(it.Rotation)
			op.GeoM.Translate(it.X, it.Y)
			op.ColorScale.ScaleWithColor(toNRGBA(it.Color))
			screen.DrawImage(px, &op)
		}
	}
}

// Renderer is the default renderer of a root hosted in an ebiten window.
// Render records the scene and camera; Draw paints them.
type Renderer struct {
	mu     sync.Mutex
	scene  any
	camera fiber.Camera
	frames int
}

// Render implements fiber.Renderer.
func (r *Renderer) Render(scene any, camera fiber.Camera) {
	r.mu.Lock()
	r.scene, r.camera = scene, camera
	r.frames++
	r.mu.Unlock()
}

// Frames returns how many times the scheduler rendered through r.
func (r *Renderer) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// List builds the draw list of the last rendered frame.
func (r *Renderer) List(width, height float64) DrawList {
	r.mu.Lock()
	scene, cam := r.scene, r.camera
	r.mu.Unlock()
	return BuildDrawList(scene, cam, width, height)
}

// Draw paints the last rendered frame onto screen.
func (r *Renderer) Draw(screen *ebiten.Image) {
	b := screen.Bounds()
	r.List(float64(b.Dx()), float64(b.Dy())).Paint(screen)
}

var _ fiber.Renderer = (*Renderer)(nil)
