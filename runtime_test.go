package fiber

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSnapshotPublishedAfterTick(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	// The first snapshot is taken by NewRuntime, before any root exists.
	initial := rt.Snapshot()
	if initial == nil || initial.Tick != 0 || initial.Instances != 0 || len(initial.Roots) != 0 {
		t.Fatalf("initial snapshot = %+v", initial)
	}
	g := mustMount(t, rt, r.Instance(), "group", Props{"onClick": func(*Event) {}})
	mustMount(t, rt, g, "group", nil)
	if _, err := rt.Scheduler.Subscribe(r.ID(), func(*Frame) {}, StageUpdate, 0); err != nil {
		t.Fatal(err)
	}
	if rt.Snapshot() != initial {
		t.Error("snapshot should not change until the next tick")
	}

	rt.Scheduler.Tick(step64)
	s := rt.Snapshot()
	if s.Tick != 1 || s.Instances != 3 || s.Subscriptions != 1 {
		t.Errorf("snapshot = tick %d instances %d subs %d", s.Tick, s.Instances, s.Subscriptions)
	}
	if len(s.Roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(s.Roots))
	}
	rs := s.Roots[0]
	if rs.ID != r.ID() || rs.Frame != 1 || rs.Frameloop != "always" || rs.Width != 100 {
		t.Errorf("root snapshot = %+v", rs)
	}
	if len(rs.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(rs.Nodes))
	}
	if rs.Nodes[0].Type != "scene" || rs.Nodes[1].Depth != 1 || rs.Nodes[2].Depth != 2 {
		t.Errorf("nodes = %+v", rs.Nodes)
	}
	if !rs.Nodes[1].Handlers || rs.Nodes[2].Handlers {
		t.Error("handler flag should be set only on the group with onClick")
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"tick":1`, `"roots":`, `"type":"group"`} {
		if !strings.Contains(string(raw), key) {
			t.Errorf("json missing %s: %s", key, raw)
		}
	}
}

func TestRuntimeTickPollsSuspense(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	s, err := rt.Reconciler.Suspend(r.Instance(), nil, Resolved("x"), groupWithLabel)
	if err != nil {
		t.Fatal(err)
	}
	rt.Scheduler.Tick(step64)
	if s.State() != StateReady {
		t.Errorf("State = %s, want ready after a tick", s.State())
	}
}

func TestIndependentRuntimes(t *testing.T) {
	a, ra := newTestRuntime(t, RootConfig{})
	b, _ := newTestRuntime(t, RootConfig{})
	mustMount(t, a, ra.Instance(), "group", nil)
	if b.Ctx.Instances.Len() != 1 {
		t.Errorf("runtime b sees %d instances, want 1", b.Ctx.Instances.Len())
	}
}
