package fiber

import "testing"

// setupBenchTree mounts n hittable groups under the scene, ten per parent
// group.
func setupBenchTree(b *testing.B, n int) (*Runtime, *Root) {
	b.Helper()
	rt, r := newTestRuntime(b, RootConfig{})
	var parent InstanceID
	for i := 0; i < n; i++ {
		if i%10 == 0 {
			parent = mustMount(b, rt, r.Instance(), "group", nil)
		}
		mustMount(b, rt, parent, "group", Props{
			"hit":      true,
			"distance": float64(i),
			"onClick":  func(*Event) {},
		})
	}
	return rt, r
}

func BenchmarkMountRemove_100(b *testing.B) {
	rt, r := newTestRuntime(b, RootConfig{})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g := mustMount(b, rt, r.Instance(), "group", nil)
		for j := 0; j < 100; j++ {
			mustMount(b, rt, g, "mesh", Props{"value": j})
		}
		if err := rt.Reconciler.Remove(g); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUpdate_ChangedProp(b *testing.B) {
	rt, r := newTestRuntime(b, RootConfig{})
	id := mustMount(b, rt, r.Instance(), "group", Props{"value": 0, "label": "x"})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := rt.Reconciler.Update(id, Props{"value": i, "label": "x"}); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDispatch_1000Hittable(b *testing.B) {
	rt, r := setupBenchTree(b, 1000)
	down := Pointer{Kind: PointerDown, X: 50, Y: 50}
	click := Pointer{Kind: Click, X: 50, Y: 50}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rt.Events.Dispatch(r.ID(), down)
		rt.Events.Dispatch(r.ID(), click)
	}
}

func BenchmarkTick_100Subscribers(b *testing.B) {
	rt, r := newTestRuntime(b, RootConfig{})
	for i := 0; i < 100; i++ {
		if _, err := rt.Scheduler.Subscribe(r.ID(), func(*Frame) {}, StageUpdate, 0); err != nil {
			b.Fatal(err)
		}
	}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		rt.Scheduler.Tick(1.0 / 64)
	}
}
