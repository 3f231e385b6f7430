package fiber

import "testing"

func TestInjectClick(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	var clicks, downs int
	mustMount(t, rt, r.Instance(), "group", Props{
		"hit": true, "distance": 1,
		"onPointerDown": func(*Event) { downs++ },
		"onClick":       func(*Event) { clicks++ },
	})

	rt.Events.InjectClick(r.ID(), 50, 50)
	if rt.Events.Pending() != 3 {
		t.Fatalf("Pending = %d, want 3", rt.Events.Pending())
	}

	// Tick 1: press.
	rt.Scheduler.Tick(step64)
	if rt.Events.Pending() != 2 || downs != 1 {
		t.Fatalf("after tick 1: pending %d downs %d", rt.Events.Pending(), downs)
	}
	if clicks != 0 {
		t.Error("click should not fire on the press tick")
	}
	// Tick 2: release. Tick 3: click.
	rt.Scheduler.Tick(step64)
	if clicks != 0 {
		t.Error("click should not fire on the release tick")
	}
	rt.Scheduler.Tick(step64)
	if rt.Events.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", rt.Events.Pending())
	}
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}
}

func TestInjectDrag(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	var moves, ups int
	var last Vec2
	mustMount(t, rt, r.Instance(), "group", Props{
		"hit": true, "distance": 1,
		"onPointerMove": func(e *Event) { moves++; last = Vec2{e.Pointer.X, e.Pointer.Y} },
		"onPointerUp":   func(*Event) { ups++ },
	})

	rt.Events.InjectDrag(r.ID(), 0, 0, 40, 80, 5)
	if rt.Events.Pending() != 5 {
		t.Fatalf("Pending = %d, want 5", rt.Events.Pending())
	}
	for rt.Events.Pending() > 0 {
		rt.Scheduler.Tick(step64)
	}
	if moves != 3 {
		t.Errorf("moves = %d, want 3", moves)
	}
	if last != (Vec2{30, 60}) {
		t.Errorf("last move = %v, want (30, 60)", last)
	}
	if ups != 1 {
		t.Errorf("ups = %d, want 1", ups)
	}
}

func TestInjectDragMinimumFrames(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	rt.Events.InjectDrag(r.ID(), 0, 0, 10, 10, 0)
	if rt.Events.Pending() != 2 {
		t.Errorf("Pending = %d, want press and release only", rt.Events.Pending())
	}
}

func TestInjectedEventsDroppedWithRoot(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	rt.Events.InjectMove(r.ID(), 1, 1)
	if err := rt.Roots.DestroyRoot(r.ID()); err != nil {
		t.Fatal(err)
	}
	if rt.Events.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", rt.Events.Pending())
	}
}
