package ebitenhost

import (
	"math"
	"testing"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/objects"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func drawScene() (*objects.Scene, *objects.OrthographicCamera) {
	scene := objects.NewScene()
	cam := objects.NewOrthographicCamera(-10, 10, 10, -10)
	cam.Position = fiber.Vec3{Z: 10}

	card := objects.NewSprite("card", 2, 4)
	card.Position = fiber.Vec3{X: 5}
	card.Tint = fiber.Color{G: 1, A: 1}

	ball := objects.NewMesh("ball")
	ball.Position = fiber.Vec3{X: -5, Y: 5, Z: -1}
	ball.Geometry = objects.NewSphereGeometry(1)
	ball.Material = objects.NewMaterial("meshBasicMaterial")
	ball.Material.Color = fiber.Color{R: 1, A: 1}

	hidden := objects.NewGroup("hidden")
	hidden.Visible = false
	hidden.AddChild(objects.NewSprite("ghost", 1, 1))

	for _, o := range []any{card, ball, hidden, cam} {
		scene.AddChild(o)
	}
	return scene, cam
}

func TestBuildDrawList(t *testing.T) {
	scene, cam := drawScene()
	dl := BuildDrawList(scene, cam, 200, 200)
	if len(dl.Items) != 2 {
		t.Fatalf("items = %+v, want ball and card", dl.Items)
	}
	ball, card := dl.Items[0], dl.Items[1]
	if ball.Name != "ball" || card.Name != "card" {
		t.Fatalf("order = %s, %s, want the farther ball first", ball.Name, card.Name)
	}
	if ball.Shape != ShapeCircle || !near(ball.X, 50) || !near(ball.Y, 50) || !near(ball.W, 20) {
		t.Errorf("ball = %+v", ball)
	}
	if ball.Color != (fiber.Color{R: 1, A: 1}) {
		t.Errorf("ball color = %+v", ball.Color)
	}
	if card.Shape != ShapeRect || !near(card.X, 150) || !near(card.Y, 100) ||
		!near(card.W, 20) || !near(card.H, 40) || !near(card.Rotation, 0) {
		t.Errorf("card = %+v", card)
	}
	if dl.Background != scene.Background {
		t.Errorf("background = %+v", dl.Background)
	}
}

func TestBuildDrawListRenderOrderWins(t *testing.T) {
	scene, cam := drawScene()
	for _, c := range scene.Children() {
		if c.Base().Name == "ball" {
			c.Base().Order = 1
		}
	}
	dl := BuildDrawList(scene, cam, 200, 200)
	if len(dl.Items) != 2 || dl.Items[1].Name != "ball" {
		t.Errorf("items = %+v, want ball drawn last", dl.Items)
	}
}

func TestBuildDrawListScaleAndRotation(t *testing.T) {
	scene, cam := drawScene()
	card := scene.Children()[0].Base()
	card.Scale = fiber.Vec3{X: 2, Y: 2, Z: 1}
	card.Rotation = math.Pi / 2
	dl := BuildDrawList(scene, cam, 200, 200)
	got := dl.Items[1]
	if !near(got.W, 40) || !near(got.H, 80) {
		t.Errorf("size = %vx%v, want 40x80", got.W, got.H)
	}
	// A counter-clockwise world rotation is clockwise-negative on screen.
	if !near(got.Rotation, -math.Pi/2) {
		t.Errorf("rotation = %v, want -pi/2", got.Rotation)
	}
}

func TestBuildDrawListSkipsUnprojectable(t *testing.T) {
	scene, cam := drawScene()
	behind := objects.NewSprite("behind", 1, 1)
	behind.Position = fiber.Vec3{Z: 20}
	scene.AddChild(behind)

	if dl := BuildDrawList(scene, cam, 200, 200); len(dl.Items) != 2 {
		t.Errorf("items = %d, want the sprite behind the camera culled", len(dl.Items))
	}
	if dl := BuildDrawList(scene, nil, 200, 200); len(dl.Items) != 0 {
		t.Error("a camera that cannot project draws nothing")
	}
	if dl := BuildDrawList("not a scene", cam, 200, 200); len(dl.Items) != 0 {
		t.Error("a foreign scene draws nothing")
	}
}

func TestRendererRecordsFrame(t *testing.T) {
	scene, cam := drawScene()
	var r Renderer
	r.Render(scene, cam)
	if r.Frames() != 1 {
		t.Errorf("frames = %d, want 1", r.Frames())
	}
	if dl := r.List(200, 200); len(dl.Items) != 2 {
		t.Errorf("items = %d, want 2", len(dl.Items))
	}
}
