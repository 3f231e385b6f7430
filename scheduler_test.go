package fiber

import (
	"errors"
	"testing"
)

const step64 = 1.0 / 64

func TestStageOrder(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	if err := rt.Scheduler.SetFixedStep(StageFixed, step64); err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, st := range []StageID{StageAfter, StageRender, StageLate, StageUpdate, StageFixed, StageEarly} {
		name := rt.Scheduler.StageName(st)
		if _, err := rt.Scheduler.Subscribe(r.ID(), func(*Frame) { got = append(got, name) }, st, 0); err != nil {
			t.Fatal(err)
		}
	}
	rt.Scheduler.Tick(step64)
	want := []string{"early", "fixed", "update", "late", "render", "after"}
	if len(got) != len(want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestPriorityThenRegistrationOrder(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	var got []string
	sub := func(label string, prio int) {
		if _, err := rt.Scheduler.Subscribe(r.ID(), func(*Frame) { got = append(got, label) }, StageUpdate, prio); err != nil {
			t.Fatal(err)
		}
	}
	sub("b0", 0)
	sub("c1", 1)
	sub("a-1", -1)
	sub("d0", 0)
	rt.Scheduler.Tick(step64)
	want := []string{"a-1", "b0", "d0", "c1"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestRenderTakeover(t *testing.T) {
	renders := 0
	rt, r := newTestRuntime(t, RootConfig{Renderer: RendererFunc(func(any, Camera) { renders++ })})

	rt.Scheduler.Tick(step64)
	if renders != 1 {
		t.Fatalf("renders = %d, want 1", renders)
	}
	if _, err := rt.Scheduler.Subscribe(r.ID(), func(*Frame) {}, StageRender, 0); err != nil {
		t.Fatal(err)
	}
	rt.Scheduler.Tick(step64)
	if renders != 2 {
		t.Errorf("priority 0 render callback must not take over: renders = %d", renders)
	}
	owned := 0
	id, _ := rt.Scheduler.Subscribe(r.ID(), func(*Frame) { owned++ }, StageRender, 1)
	rt.Scheduler.Tick(step64)
	if renders != 2 || owned != 1 {
		t.Errorf("takeover: renders = %d owned = %d, want 2 and 1", renders, owned)
	}
	rt.Scheduler.Unsubscribe(id)
	rt.Scheduler.Tick(step64)
	if renders != 3 {
		t.Errorf("default render should resume: renders = %d", renders)
	}
}

func TestFixedStepConservation(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	if err := rt.Scheduler.SetFixedStep(StageFixed, step64); err != nil {
		t.Fatal(err)
	}
	steps := 0
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(f *Frame) {
		steps++
		if f.Delta != step64 {
			t.Errorf("fixed delta = %v, want %v", f.Delta, step64)
		}
	}, StageFixed, 0)
	var alphas []float64
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(f *Frame) { alphas = append(alphas, f.Alpha) }, StageUpdate, 0)

	dts := []float64{1.0 / 128, 3.0 / 64, 5.0 / 128, 1.0 / 32}
	wantSteps := []int{0, 3, 6, 8}
	wantAlpha := []float64{0.5, 0.5, 0, 0}
	for i, dt := range dts {
		rt.Scheduler.Tick(dt)
		if steps != wantSteps[i] {
			t.Errorf("after tick %d: steps = %d, want %d", i, steps, wantSteps[i])
		}
		if alphas[i] != wantAlpha[i] {
			t.Errorf("after tick %d: alpha = %v, want %v", i, alphas[i], wantAlpha[i])
		}
	}
	acc := rt.Scheduler.StageAlpha(r.ID(), StageFixed) * step64
	if got := float64(steps)*step64 + acc; got != r.Elapsed() {
		t.Errorf("steps*step + leftover = %v, elapsed = %v", got, r.Elapsed())
	}
}

func TestAddFixedStage(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	physics, err := rt.Scheduler.AddFixedStage("physics", 1.0/32)
	if err != nil {
		t.Fatal(err)
	}
	order := rt.Scheduler.Stages()
	idx := func(id StageID) int {
		for i, s := range order {
			if s == id {
				return i
			}
		}
		return -1
	}
	if !(idx(StageFixed) < idx(physics) && idx(physics) < idx(StageUpdate)) {
		t.Errorf("stage order = %v, physics should sit between fixed and update", order)
	}
	ran := 0
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { ran++ }, physics, 0)
	rt.Scheduler.Tick(1.0 / 16)
	if ran != 2 {
		t.Errorf("physics steps = %d, want 2", ran)
	}
	if _, err := rt.Scheduler.AddFixedStage("bad", 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("zero step: err = %v", err)
	}
	if err := rt.Scheduler.SetFixedStep(StageUpdate, 1); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("non-fixed stage: err = %v", err)
	}
}

func TestDemandFrameloop(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{Frameloop: FrameDemand})
	frames := 0
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { frames++ }, StageUpdate, 0)

	rt.Scheduler.Tick(step64) // creation invalidated once
	rt.Scheduler.Tick(step64)
	if frames != 1 {
		t.Fatalf("frames = %d, want 1", frames)
	}
	if r.State() != RootIdle {
		t.Errorf("state = %s, want idle", r.State())
	}

	r.Invalidate(3)
	if r.State() != RootScheduled {
		t.Errorf("state = %s, want scheduled", r.State())
	}
	for range 5 {
		rt.Scheduler.Tick(step64)
	}
	if frames != 4 {
		t.Errorf("frames = %d, want 4", frames)
	}

	r.Invalidate(1000)
	if r.pending != maxPendingFrames {
		t.Errorf("pending = %d, want cap %d", r.pending, maxPendingFrames)
	}

	mustMount(t, rt, r.Instance(), "group", nil)
	if r.pending != maxPendingFrames {
		t.Error("mount invalidation should keep the cap")
	}
}

func TestCommitInvalidatesDemandRoot(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{Frameloop: FrameDemand})
	rt.Scheduler.Tick(step64)
	if r.State() != RootIdle {
		t.Fatalf("state = %s, want idle", r.State())
	}
	g := mustMount(t, rt, r.Instance(), "group", nil)
	if r.State() != RootScheduled {
		t.Errorf("mount should schedule a frame, state = %s", r.State())
	}
	rt.Scheduler.Tick(step64)
	if err := rt.Reconciler.Update(g, Props{"value": 1}); err != nil {
		t.Fatal(err)
	}
	if r.State() != RootScheduled {
		t.Errorf("update should schedule a frame, state = %s", r.State())
	}
}

func TestNeverFrameloop(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{Frameloop: FrameNever})
	frames := 0
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { frames++ }, StageUpdate, 0)
	r.Invalidate(1)
	rt.Scheduler.Tick(step64)
	if frames != 0 {
		t.Errorf("never root ran on tick")
	}
	if r.State() != RootIdle {
		t.Errorf("state = %s, want idle", r.State())
	}
	if err := rt.Scheduler.Advance(r.ID(), step64); err != nil {
		t.Fatal(err)
	}
	if frames != 1 {
		t.Errorf("frames after Advance = %d, want 1", frames)
	}
	if err := rt.Scheduler.Advance(RootID(99), step64); !errors.Is(err, ErrUnknownRoot) {
		t.Errorf("unknown root: err = %v", err)
	}
}

func TestSetFrameloop(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	frames := 0
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { frames++ }, StageUpdate, 0)
	if err := rt.Roots.SetFrameloop(r.ID(), FrameNever); err != nil {
		t.Fatal(err)
	}
	rt.Scheduler.Tick(step64)
	if frames != 0 {
		t.Error("never root should not tick")
	}
	if err := rt.Roots.SetFrameloop(r.ID(), FrameAlways); err != nil {
		t.Fatal(err)
	}
	rt.Scheduler.Tick(step64)
	rt.Scheduler.Tick(step64)
	if frames != 2 {
		t.Errorf("frames = %d, want 2", frames)
	}
}

func TestRunningStateInsideFrame(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	var seen RootState
	var running bool
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(f *Frame) {
		seen = f.Root.State()
		running = rt.Ctx.Running()
	}, StageUpdate, 0)
	rt.Scheduler.Tick(step64)
	if seen != RootRunning || !running {
		t.Errorf("inside frame: state = %s running = %v", seen, running)
	}
	if rt.Ctx.Running() || r.State() != RootScheduled {
		t.Errorf("after frame: running = %v state = %s", rt.Ctx.Running(), r.State())
	}
}

func TestUnsubscribeInsideCallback(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	var later SubscriptionID
	laterRan := 0
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { rt.Scheduler.Unsubscribe(later) }, StageUpdate, 0)
	later, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { laterRan++ }, StageUpdate, 0)
	added := 0
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) {
		if added == 0 {
			_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { added++ }, StageUpdate, 0)
		}
	}, StageUpdate, 0)

	rt.Scheduler.Tick(step64)
	if laterRan != 0 {
		t.Error("callback unsubscribed earlier in the stage must not run")
	}
	if added != 0 {
		t.Error("callback added mid-stage runs from the next frame")
	}
	rt.Scheduler.Tick(step64)
	if added != 1 {
		t.Errorf("added = %d, want 1", added)
	}
}

func TestCallbackPanicIsolated(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	ran := false
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { panic("nope") }, StageUpdate, 0)
	_, _ = rt.Scheduler.Subscribe(r.ID(), func(*Frame) { ran = true }, StageUpdate, 0)
	rt.Scheduler.Tick(step64)
	if !ran {
		t.Error("a panicking callback must not stop the stage")
	}
	if rt.Ctx.Running() {
		t.Error("running flag must be cleared")
	}
}

func TestInstanceSubscriptionLifetime(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	g := mustMount(t, rt, r.Instance(), "group", nil)
	ran := 0
	if _, err := rt.Scheduler.SubscribeInstance(g, func(*Frame) { ran++ }, StageUpdate, 0); err != nil {
		t.Fatal(err)
	}
	rt.Scheduler.Tick(step64)
	if err := rt.Reconciler.Remove(g); err != nil {
		t.Fatal(err)
	}
	rt.Scheduler.Tick(step64)
	if ran != 1 {
		t.Errorf("ran = %d, want 1", ran)
	}
	if rt.Scheduler.Len() != 0 {
		t.Errorf("subscriptions = %d, want 0", rt.Scheduler.Len())
	}
	if _, err := rt.Scheduler.SubscribeInstance(g, func(*Frame) {}, StageUpdate, 0); !errors.Is(err, ErrUnknownInstance) {
		t.Errorf("stale instance: err = %v", err)
	}
}

func TestInstanceSubscriptionFollowsRoot(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	portal, err := rt.Roots.CreateRoot(r.ID(), RootConfig{})
	if err != nil {
		t.Fatal(err)
	}
	pr, _ := rt.Roots.Get(portal)
	g := mustMount(t, rt, r.Instance(), "group", nil)
	var roots []RootID
	_, _ = rt.Scheduler.SubscribeInstance(g, func(f *Frame) { roots = append(roots, f.Root.ID()) }, StageUpdate, 0)

	rt.Scheduler.Tick(step64)
	if err := rt.Reconciler.Reparent(g, pr.Instance(), AttachHint{}); err != nil {
		t.Fatal(err)
	}
	rt.Scheduler.Tick(step64)
	if len(roots) != 2 || roots[0] != r.ID() || roots[1] != portal {
		t.Errorf("roots = %v, want [%s %s]", roots, r.ID(), portal)
	}
}

func TestSubscribeValidation(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	if _, err := rt.Scheduler.Subscribe(RootID(42), func(*Frame) {}, StageUpdate, 0); !errors.Is(err, ErrUnknownRoot) {
		t.Errorf("unknown root: err = %v", err)
	}
	if _, err := rt.Scheduler.Subscribe(r.ID(), nil, StageUpdate, 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("nil fn: err = %v", err)
	}
	if _, err := rt.Scheduler.Subscribe(r.ID(), func(*Frame) {}, StageID(77), 0); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("unknown stage: err = %v", err)
	}
}
