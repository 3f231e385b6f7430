package ebitenhost

import fiber "github.com/pmndrs/react-three-fiber-sub004"

// Mouse buttons as reported in fiber.Pointer.Button.
const (
	ButtonLeft   = 0
	ButtonRight  = 1
	ButtonMiddle = 2
)

// maxPointers is the mouse plus nine touch slots.
const maxPointers = 10

// DefaultDoubleClickTime is the longest gap between two clicks that still
// forms a double click, in seconds.
const DefaultDoubleClickTime = 0.3

// Touch is one active touch point.
type Touch struct {
	ID   int
	X, Y float64
}

// Sample is the raw pointer state of one platform frame.
type Sample struct {
	X, Y float64
	// Inside reports whether the cursor is over the window.
	Inside              bool
	Left, Right, Middle bool
	WheelY              float64
	Mods                fiber.KeyModifiers
	Touches             []Touch
}

type touchState struct {
	used bool
	id   int
	x, y float64
}

// Input turns per-frame pointer samples into discrete pointer events.
// Mouse input is pointer 0; touches take slots 1-9.
type Input struct {
	DoubleClickTime float64

	prev    Sample
	hasPrev bool
	down    bool
	button  int

	now       float64
	lastClick float64
	clicked   bool

	touches [maxPointers]touchState
}

// NewInput returns a translator with default timings.
func NewInput() *Input {
	return &Input{DoubleClickTime: DefaultDoubleClickTime}
}

// Translate consumes sample s taken dt seconds after the previous one. It
// returns the events to dispatch in order, and left is true when the
// cursor has just left the window.
func (in *Input) Translate(s Sample, dt float64) (events []fiber.Pointer, left bool) {
	in.now += dt
	events = in.mouse(s, events)
	if in.hasPrev && in.prev.Inside && !s.Inside {
		left = true
	}
	events = in.touch(s, events)
	in.prev, in.hasPrev = s, true
	return events, left
}

func (in *Input) mouse(s Sample, out []fiber.Pointer) []fiber.Pointer {
	p := fiber.Pointer{X: s.X, Y: s.Y, ID: 0, Modifiers: s.Mods}
	if s.Inside && (!in.hasPrev || s.X != in.prev.X || s.Y != in.prev.Y) {
		p.Kind = fiber.PointerMove
		p.Button = in.button
		out = append(out, p)
	}

	pressed := s.Left || s.Right || s.Middle
	switch {
	case pressed && !in.down:
		if !s.Inside {
			break
		}
		// Keep the button of the press until it is released.
		in.button = ButtonMiddle
		if s.Left {
			in.button = ButtonLeft
		} else if s.Right {
			in.button = ButtonRight
		}
		in.down = true
		p.Kind, p.Button = fiber.PointerDown, in.button
		out = append(out, p)
	case !pressed && in.down:
		in.down = false
		p.Button = in.button
		p.Kind = fiber.PointerUp
		out = append(out, p)
		switch in.button {
		case ButtonLeft:
			p.Kind = fiber.Click
			out = append(out, p)
			if in.clicked && in.now-in.lastClick <= in.DoubleClickTime {
				p.Kind = fiber.DoubleClick
				out = append(out, p)
				in.clicked = false
			} else {
				in.clicked, in.lastClick = true, in.now
			}
		case ButtonRight:
			p.Kind = fiber.ContextMenu
			out = append(out, p)
		}
	}

	if s.WheelY != 0 && s.Inside {
		out = append(out, fiber.Pointer{Kind: fiber.Wheel, X: s.X, Y: s.Y, WheelY: s.WheelY, Modifiers: s.Mods})
	}
	return out
}

func (in *Input) touch(s Sample, out []fiber.Pointer) []fiber.Pointer {
	var active [maxPointers]bool
	for _, t := range s.Touches {
		slot, fresh := in.touchSlot(t.ID)
		if slot < 0 {
			continue
		}
		active[slot] = true
		ts := &in.touches[slot]
		p := fiber.Pointer{X: t.X, Y: t.Y, ID: slot, Button: ButtonLeft, Modifiers: s.Mods}
		switch {
		case fresh:
			p.Kind = fiber.PointerMove
			out = append(out, p)
			p.Kind = fiber.PointerDown
			out = append(out, p)
		case t.X != ts.x || t.Y != ts.y:
			p.Kind = fiber.PointerMove
			out = append(out, p)
		}
		ts.x, ts.y = t.X, t.Y
	}
	for slot := 1; slot < maxPointers; slot++ {
		ts := &in.touches[slot]
		if !ts.used || active[slot] {
			continue
		}
		p := fiber.Pointer{X: ts.x, Y: ts.y, ID: slot, Button: ButtonLeft, Modifiers: s.Mods}
		p.Kind = fiber.PointerUp
		out = append(out, p)
		p.Kind = fiber.Click
		out = append(out, p)
		*ts = touchState{}
	}
	return out
}

// touchSlot returns the slot of touch id, allocating one if needed. It
// returns -1 when every slot is taken.
func (in *Input) touchSlot(id int) (slot int, fresh bool) {
	for i := 1; i < maxPointers; i++ {
		if in.touches[i].used && in.touches[i].id == id {
			return i, false
		}
	}
	for i := 1; i < maxPointers; i++ {
		if !in.touches[i].used {
			in.touches[i] = touchState{used: true, id: id}
			return i, true
		}
	}
	return -1, false
}
