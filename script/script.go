// Package script plays scene scripts against a fiber runtime. A script is
// a TOML document describing a root, an initial tree and a list of steps:
// tree edits, synthetic pointer input, waits and expectations. Steps run
// one per frame, and a step waits until earlier injected input drained.
//
//	[root]
//	width = 800
//	height = 600
//	camera = "cam"
//
//	[[nodes]]
//	key = "cam"
//	type = "perspectiveCamera"
//	props = { position = [0, 0, 5] }
//
//	[[nodes]]
//	key = "box"
//	type = "mesh"
//	record = ["onClick"]
//	  [[nodes.children]]
//	  type = "boxGeometry"
//	  props = { args = [1, 1, 1] }
//
//	[[steps]]
//	action = "click"
//	x = 400
//	y = 300
//
//	[[steps]]
//	action = "expect"
//	key = "box"
//	event = "onClick"
//	count = 1
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	fiber "github.com/pmndrs/react-three-fiber-sub004"
	"github.com/pmndrs/react-three-fiber-sub004/anim"
)

// ErrInvalidScript is wrapped by every validation error.
var ErrInvalidScript = errors.New("script: invalid script")

// Step actions.
const (
	ActionMount      = "mount"
	ActionUpdate     = "update"
	ActionRemove     = "remove"
	ActionReorder    = "reorder"
	ActionReparent   = "reparent"
	ActionMove       = "move"
	ActionPress      = "press"
	ActionRelease    = "release"
	ActionClick      = "click"
	ActionDrag       = "drag"
	ActionWait       = "wait"
	ActionInvalidate = "invalidate"
	ActionResize     = "resize"
	ActionExpect     = "expect"
	ActionTween      = "tween"
)

// RootSpec configures the root a script runs on.
type RootSpec struct {
	Width      float64 `toml:"width"`
	Height     float64 `toml:"height"`
	PixelRatio float64 `toml:"pixel_ratio"`
	Frameloop  string  `toml:"frameloop"`
	// Camera is the key of a node whose object becomes the root camera.
	// Empty uses a perspective camera at z = 5.
	Camera string `toml:"camera"`
}

// Node is one element of a declarative tree.
type Node struct {
	Key    string         `toml:"key"`
	Type   string         `toml:"type"`
	Attach string         `toml:"attach"`
	Props  map[string]any `toml:"props"`
	// Record lists handler keys whose events are recorded.
	Record   []string `toml:"record"`
	Children []Node   `toml:"children"`
}

// Step is a single scripted action.
type Step struct {
	Action string         `toml:"action"`
	Key    string         `toml:"key"`
	Parent string         `toml:"parent"`
	Node   *Node          `toml:"node"`
	Props  map[string]any `toml:"props"`
	Order  []string       `toml:"order"`

	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	FromX  float64 `toml:"from_x"`
	FromY  float64 `toml:"from_y"`
	ToX    float64 `toml:"to_x"`
	ToY    float64 `toml:"to_y"`
	Frames int     `toml:"frames"`
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`

	Event string `toml:"event"`
	Count int    `toml:"count"`

	// Tween fields. Kind is "float", "vec3" or "color"; empty infers it
	// from To: a number, a 3-list, or anything else as a color.
	Prop     string  `toml:"prop"`
	Kind     string  `toml:"kind"`
	From     any     `toml:"from"`
	To       any     `toml:"to"`
	Duration float64 `toml:"duration"`
	Ease     string  `toml:"ease"`
}

// Script is a parsed scene script.
type Script struct {
	Name  string   `toml:"name"`
	Root  RootSpec `toml:"root"`
	Nodes []Node   `toml:"nodes"`
	Steps []Step   `toml:"steps"`
}

// Parse decodes and validates a TOML scene script.
func Parse(data string) (*Script, error) {
	var s Script
	md, err := toml.Decode(data, &s)
	if err != nil {
		return nil, fmt.Errorf("parse scene script: %w", err)
	}
	return finish(&s, md)
}

// Load reads and validates the scene script at path.
func Load(path string) (*Script, error) {
	var s Script
	md, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("load scene script %s: %w", path, err)
	}
	return finish(&s, md)
}

func finish(s *Script, md toml.MetaData) (*Script, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parse scene script: %w: unknown keys %s", ErrInvalidScript, strings.Join(keys, ", "))
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("parse scene script: %w", err)
	}
	return s, nil
}

// Validate checks node and step shapes. It does not resolve type tags,
// which depend on the runtime's registry.
func (s *Script) Validate() error {
	if s.Root.Width < 0 || s.Root.Height < 0 {
		return fmt.Errorf("%w: negative root size", ErrInvalidScript)
	}
	if s.Root.Frameloop != "" {
		if _, ok := fiber.ParseFrameLoop(s.Root.Frameloop); !ok {
			return fmt.Errorf("%w: unknown frameloop %q", ErrInvalidScript, s.Root.Frameloop)
		}
	}
	keys := make(map[string]bool)
	for i := range s.Nodes {
		if err := validateNode(&s.Nodes[i], keys); err != nil {
			return err
		}
	}
	if s.Root.Camera != "" && !keys[s.Root.Camera] {
		return fmt.Errorf("%w: camera %q is not a node key", ErrInvalidScript, s.Root.Camera)
	}
	for i, st := range s.Steps {
		if err := validateStep(st, keys); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

func validateNode(n *Node, keys map[string]bool) error {
	if n.Type == "" {
		return fmt.Errorf("%w: node %q has no type", ErrInvalidScript, n.Key)
	}
	if n.Key != "" {
		if keys[n.Key] {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidScript, n.Key)
		}
		keys[n.Key] = true
	}
	if _, err := fiber.ParseAttach(n.Attach); err != nil {
		return fmt.Errorf("%w: node %q: %v", ErrInvalidScript, n.Key, err)
	}
	for _, r := range n.Record {
		if _, ok := fiber.ParseHandlerKind(r); !ok {
			return fmt.Errorf("%w: node %q records unknown handler %q", ErrInvalidScript, n.Key, r)
		}
	}
	for i := range n.Children {
		if err := validateNode(&n.Children[i], keys); err != nil {
			return err
		}
	}
	return nil
}

func (st Step) tweenKind() string {
	if st.Kind != "" {
		return st.Kind
	}
	switch v := st.To.(type) {
	case int64, float64:
		return "float"
	case []any:
		if len(v) == 3 {
			return "vec3"
		}
	}
	return "color"
}

func validateStep(st Step, keys map[string]bool) error {
	need := func(ok bool, what string) error {
		if !ok {
			return fmt.Errorf("%w: missing %s", ErrInvalidScript, what)
		}
		return nil
	}
	switch st.Action {
	case ActionMount:
		if err := need(st.Node != nil, "node"); err != nil {
			return err
		}
		return validateNode(st.Node, keys)
	case ActionUpdate, ActionRemove:
		return need(st.Key != "", "key")
	case ActionReorder:
		return need(len(st.Order) > 0, "order")
	case ActionReparent:
		return need(st.Key != "", "key")
	case ActionMove, ActionPress, ActionRelease, ActionClick, ActionDrag:
		return nil
	case ActionWait, ActionInvalidate:
		return need(st.Frames > 0, "frames")
	case ActionResize:
		return need(st.Width > 0 && st.Height > 0, "width and height")
	case ActionExpect:
		if err := need(st.Key != "", "key"); err != nil {
			return err
		}
		if _, ok := fiber.ParseHandlerKind(st.Event); !ok {
			return fmt.Errorf("%w: unknown event %q", ErrInvalidScript, st.Event)
		}
		return nil
	case ActionTween:
		if err := need(st.Key != "" && st.Prop != "", "key and prop"); err != nil {
			return err
		}
		if err := need(st.From != nil && st.To != nil, "from and to"); err != nil {
			return err
		}
		if err := need(st.Duration > 0, "duration"); err != nil {
			return err
		}
		if _, ok := anim.Ease(st.Ease); !ok {
			return fmt.Errorf("%w: unknown ease %q", ErrInvalidScript, st.Ease)
		}
		switch st.tweenKind() {
		case "float", "vec3", "color":
			return nil
		}
		return fmt.Errorf("%w: unknown tween kind %q", ErrInvalidScript, st.Kind)
	case "":
		return fmt.Errorf("%w: missing action", ErrInvalidScript)
	}
	return fmt.Errorf("%w: unknown action %q", ErrInvalidScript, st.Action)
}
