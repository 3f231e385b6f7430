package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/script"
)

const passingScript = `
[root]
width = 200
height = 200

[[nodes]]
key = "ball"
type = "mesh"
record = ["onClick"]
  [[nodes.children]]
  type = "sphereGeometry"

[[steps]]
action = "click"
x = 100
y = 100

[[steps]]
action = "expect"
key = "ball"
event = "onClick"
count = 1
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, log.InfoLevel)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	path := writeFile(t, "scene.toml", passingScript)
	out, err := execute(t, "run", "--config", "", path)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	for _, want := range []string{"scene", "mesh", "sphereGeometry", "ball", "onClick", "passed"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommandFailure(t *testing.T) {
	path := writeFile(t, "scene.toml", strings.Replace(passingScript, "count = 1", "count = 3", 1))
	out, err := execute(t, "run", "--quiet", "--config", "", path)
	if !errors.Is(err, script.ErrExpectation) {
		t.Fatalf("err = %v, want ErrExpectation", err)
	}
	if !strings.Contains(out, "failed") || strings.Contains(out, "sphereGeometry") {
		t.Errorf("quiet output = %q", out)
	}
}

func TestRunCommandMaxFrames(t *testing.T) {
	path := writeFile(t, "scene.toml", "[[steps]]\naction = \"wait\"\nframes = 50\n")
	_, err := execute(t, "run", "--max-frames", "5", "--config", "", path)
	if !errors.Is(err, script.ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestRunCommandBadScript(t *testing.T) {
	path := writeFile(t, "scene.toml", "[[steps]]\naction = \"dance\"\n")
	if _, err := execute(t, "run", "--config", "", path); !errors.Is(err, script.ErrInvalidScript) {
		t.Errorf("err = %v, want ErrInvalidScript", err)
	}
	if _, err := execute(t, "run"); err == nil {
		t.Error("run without a script should fail")
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "fiberscene.toml", `
debug = true

[run]
tps = 30

[window]
title = "demo"
`)
	c, err := LoadConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Debug || c.Run.TPS != 30 || c.Window.Title != "demo" {
		t.Errorf("config = %+v", c)
	}
	if c.Run.MaxFrames != 600 || c.Window.Width != 800 {
		t.Errorf("unset keys should keep defaults, got %+v", c)
	}

	missing := filepath.Join(t.TempDir(), "none.toml")
	if _, err := LoadConfig(missing, false); err != nil {
		t.Errorf("optional missing config: %v", err)
	}
	if _, err := LoadConfig(missing, true); err == nil {
		t.Error("required missing config should fail")
	}

	tests := []struct {
		name string
		body string
	}{
		{"unknown key", "colour = 1\n"},
		{"zero tps", "[run]\ntps = 0\n"},
		{"bad window", "[window]\nwidth = -5\n"},
		{"bad toml", "[run\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfig(writeFile(t, "c.toml", tt.body), true); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRenderTree(t *testing.T) {
	snap := &fiber.Snapshot{Tick: 3, Roots: []fiber.RootSnapshot{{
		ID: 1, Frameloop: "always", Width: 10, Height: 20, Frame: 3,
		Nodes: []fiber.NodeSnapshot{
			{ID: "#1.1", Type: "scene", State: "ready", Attach: "none"},
			{ID: "#2.1", Type: "mesh", Depth: 1, State: "ready", Attach: "generic", Handlers: true},
			{ID: "#3.1", Type: "boxGeometry", Depth: 2, State: "fallback", Attach: "named(geometry)"},
		},
	}}}
	out := renderTree(snap)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 5 {
		t.Fatalf("lines = %d:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[4], "      ") || !strings.Contains(lines[4], "named(geometry)") || !strings.Contains(lines[4], "fallback") {
		t.Errorf("geometry line = %q", lines[4])
	}
	if !strings.Contains(lines[3], iconHandler) {
		t.Errorf("mesh line = %q, want a handler marker", lines[3])
	}
}

func TestPlayStopsWithContext(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	path := writeFile(t, "scene.toml", passingScript)
	s, err := c.load(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	ticks := make(chan time.Time)
	done := make(chan error, 1)
	go func() { done <- c.play(ctx, s, ticks) }()
	for range 10 {
		ticks <- time.Now()
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("play: %v", err)
	}
	if !s.runner.Done() || s.runner.Err() != nil {
		t.Errorf("done = %v err = %v", s.runner.Done(), s.runner.Err())
	}
	if s.rt.Snapshot().Tick != 10 {
		t.Errorf("tick = %d, want 10", s.rt.Snapshot().Tick)
	}
}
