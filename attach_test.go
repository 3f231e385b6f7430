package fiber

import (
	"errors"
	"testing"
)

func TestParseAttach(t *testing.T) {
	tests := []struct {
		in      any
		want    AttachHint
		wantErr bool
	}{
		{nil, AttachHint{}, false},
		{"", AttachHint{}, false},
		{"geometry", Named("geometry"), false},
		{"materials[]", Indexed("materials"), false},
		{"materials-1", IndexedAt("materials", 1), false},
		{"materials.2", IndexedAt("materials", 2), false},
		{"children", Generic(), false},
		{"GenericChild", Generic(), false},
		{"shadow-camera", Named("shadow-camera"), false},
		{Named("x"), Named("x"), false},
		{42, AttachHint{}, true},
	}
	for _, tt := range tests {
		got, err := ParseAttach(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAttach(%v) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseAttach(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	types := testTypes()
	mesh, _ := types.Lookup("mesh")
	group, _ := types.Lookup("group")
	geo, _ := types.Lookup("geometry")
	mat, _ := types.Lookup("material")

	tests := []struct {
		name    string
		parent  *TypeDef
		child   *TypeDef
		hint    AttachHint
		want    Attachment
		wantErr bool
	}{
		{"slot by category", mesh, geo, AttachHint{}, Attachment{Kind: AttachNamed, Field: "geometry"}, false},
		{"array slot by category", mesh, mat, AttachHint{}, Attachment{Kind: AttachIndexed, Field: "materials", Index: -1}, false},
		{"explicit named", mesh, group, Named("geometry"), Attachment{Kind: AttachNamed, Field: "geometry"}, false},
		{"named array field", mesh, group, Named("materials"), Attachment{Kind: AttachIndexed, Field: "materials", Index: -1}, false},
		{"explicit index", mesh, mat, IndexedAt("materials", 3), Attachment{Kind: AttachIndexed, Field: "materials", Index: 3}, false},
		{"explicit generic beats slot", mesh, geo, Generic(), Attachment{Kind: AttachGeneric}, false},
		{"no slot", group, geo, AttachHint{}, Attachment{Kind: AttachGeneric}, false},
		{"unknown field", group, geo, Named("nope"), Attachment{Kind: AttachGeneric}, true},
		{"unknown array", mesh, mat, Indexed("nope"), Attachment{Kind: AttachGeneric}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.parent, tt.child, tt.hint)
			if got != tt.want {
				t.Errorf("Resolve = %s, want %s", got, tt.want)
			}
			if tt.wantErr {
				var ae *AttachmentError
				if !errors.As(err, &ae) || !errors.Is(err, ErrUnknownAttachKey) {
					t.Errorf("err = %v, want AttachmentError", err)
				}
			} else if err != nil {
				t.Errorf("unexpected err %v", err)
			}
		})
	}
}

func TestNamedAttachRestoresPrevious(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	m := mustMount(t, rt, r.Instance(), "mesh", nil)
	mo := fake(t, rt, m)

	g1 := mustMount(t, rt, m, "geometry", nil)
	g2 := mustMount(t, rt, m, "geometry", nil)
	o1 := objectOf[*fakeGeometry](t, rt, g1)
	o2 := objectOf[*fakeGeometry](t, rt, g2)
	if mo.geometry != o2 {
		t.Fatal("last attached geometry should win the field")
	}

	// Detaching the shadowed one must not disturb the field.
	if err := rt.Reconciler.Remove(g1); err != nil {
		t.Fatal(err)
	}
	if mo.geometry != o2 {
		t.Error("field should still hold the live geometry")
	}
	if err := rt.Reconciler.Remove(g2); err != nil {
		t.Fatal(err)
	}
	if mo.geometry != nil {
		t.Errorf("field = %v, want the original nil", mo.geometry)
	}
	if o1.disposals != 1 || o2.disposals != 1 {
		t.Errorf("disposals = %d/%d, want 1/1", o1.disposals, o2.disposals)
	}
}

func TestNamedAttachLIFORestore(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	m := mustMount(t, rt, r.Instance(), "mesh", nil)
	mo := fake(t, rt, m)
	g1 := mustMount(t, rt, m, "geometry", nil)
	g2 := mustMount(t, rt, m, "geometry", nil)
	o1 := objectOf[*fakeGeometry](t, rt, g1)

	if err := rt.Reconciler.Remove(g2); err != nil {
		t.Fatal(err)
	}
	if mo.geometry != o1 {
		t.Error("removing the top attachment should restore the one below")
	}
}

func TestIndexedAttachStaysDense(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	m := mustMount(t, rt, r.Instance(), "mesh", nil)
	mo := fake(t, rt, m)
	a := mustMount(t, rt, m, "material", Props{"label": "a"})
	b := mustMount(t, rt, m, "material", Props{"label": "b"})
	c := mustMount(t, rt, m, "material", Props{"label": "c"})

	labels := func() []string {
		var out []string
		for _, x := range mo.materials {
			out = append(out, x.(*fakeMaterial).label)
		}
		return out
	}
	assertLabels := func(want ...string) {
		t.Helper()
		got := labels()
		if len(got) != len(want) {
			t.Fatalf("materials = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("materials = %v, want %v", got, want)
			}
		}
	}
	assertLabels("a", "b", "c")

	if err := rt.Reconciler.Remove(b); err != nil {
		t.Fatal(err)
	}
	assertLabels("a", "c")
	ai, _ := rt.Reconciler.Get(a)
	ci, _ := rt.Reconciler.Get(c)
	if ai.Attach.Index != 0 || ci.Attach.Index != 1 {
		t.Errorf("indices = %d, %d, want 0, 1", ai.Attach.Index, ci.Attach.Index)
	}

	if _, err := rt.Reconciler.Mount(m, "material", Props{"label": "front"}, IndexedAt("materials", 0)); err != nil {
		t.Fatal(err)
	}
	assertLabels("front", "a", "c")

	if _, err := rt.Reconciler.Mount(m, "material", Props{"label": "far", "attach": "materials-99"}, AttachHint{}); err != nil {
		t.Fatal(err)
	}
	assertLabels("front", "a", "c", "far")
}

func TestIndexedRestoresBaseArray(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	m := mustMount(t, rt, r.Instance(), "mesh", Props{"args": []any{"preset"}})
	mo := fake(t, rt, m)
	x := mustMount(t, rt, m, "material", nil)
	y := mustMount(t, rt, m, "material", nil)
	if len(mo.materials) != 3 || mo.materials[0] != "base" {
		t.Fatalf("materials = %v, want base plus two", mo.materials)
	}
	// Attach then detach in any order leaves the parent as it was.
	for _, id := range []InstanceID{x, y} {
		if err := rt.Reconciler.Remove(id); err != nil {
			t.Fatal(err)
		}
	}
	if len(mo.materials) != 1 || mo.materials[0] != "base" {
		t.Errorf("materials = %v, want [base]", mo.materials)
	}
}

func TestAttachmentRoundTripIdempotent(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	m := mustMount(t, rt, r.Instance(), "mesh", Props{"args": []any{"preset"}})
	mo := fake(t, rt, m)
	scene := fake(t, rt, r.Instance())

	for round := 0; round < 3; round++ {
		ids := []InstanceID{
			mustMount(t, rt, m, "geometry", nil),
			mustMount(t, rt, m, "material", nil),
			mustMount(t, rt, m, "geometry", nil),
			mustMount(t, rt, m, "material", nil),
			mustMount(t, rt, r.Instance(), "group", nil),
		}
		// Remove out of mount order.
		for _, i := range []int{1, 4, 0, 3, 2} {
			if err := rt.Reconciler.Remove(ids[i]); err != nil {
				t.Fatal(err)
			}
		}
		if mo.geometry != nil {
			t.Fatalf("round %d: geometry = %v, want nil", round, mo.geometry)
		}
		if len(mo.materials) != 1 || mo.materials[0] != "base" {
			t.Fatalf("round %d: materials = %v", round, mo.materials)
		}
		if len(scene.children) != 1 || scene.children[0] != mo {
			t.Fatalf("round %d: scene children = %v", round, scene.children)
		}
	}
}

func TestAttachFallbacks(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	g := mustMount(t, rt, r.Instance(), "group", nil)

	// Unknown named slot falls back to a generic child.
	child, err := rt.Reconciler.Mount(g, "group", Props{"attach": "nope"}, AttachHint{})
	if err != nil {
		t.Fatal(err)
	}
	if !containsObj(fake(t, rt, g).children, fake(t, rt, child)) {
		t.Error("unknown slot should attach generically")
	}

	// A parent that is no container keeps the child logically only.
	geo := mustMount(t, rt, g, "geometry", nil)
	under, err := rt.Reconciler.Mount(geo, "group", nil, AttachHint{})
	if err != nil {
		t.Fatal(err)
	}
	inst, _ := rt.Reconciler.Get(under)
	if inst.Attach.Kind != AttachNone || inst.Parent != geo {
		t.Errorf("attach = %s parent = %s, want logical child", inst.Attach, inst.Parent)
	}
	if err := rt.Reconciler.Remove(geo); err != nil {
		t.Fatal(err)
	}
	if _, ok := rt.Reconciler.Get(under); ok {
		t.Error("logical children are removed with their parent")
	}
}

func TestAttachPropChangeReattaches(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	m := mustMount(t, rt, r.Instance(), "mesh", nil)
	mo := fake(t, rt, m)
	g := mustMount(t, rt, m, "group", nil)
	gobj := fake(t, rt, g)
	if !containsObj(mo.children, gobj) {
		t.Fatal("group should start as generic child")
	}
	if err := rt.Reconciler.Update(g, Props{"attach": "geometry"}); err != nil {
		t.Fatal(err)
	}
	if containsObj(mo.children, gobj) || mo.geometry != gobj {
		t.Error("attach change should move the object into the field")
	}
	if err := rt.Reconciler.Update(g, Props{}); err != nil {
		t.Fatal(err)
	}
	if mo.geometry != nil || !containsObj(mo.children, gobj) {
		t.Error("removing attach should restore the field and re-add generically")
	}
}

func TestAttachedFieldPath(t *testing.T) {
	rt, r := newTestRuntime(t, RootConfig{})
	m := mustMount(t, rt, r.Instance(), "mesh", nil)
	geo := mustMount(t, rt, m, "geometry", nil)
	if err := rt.Reconciler.Update(m, Props{"geometry-radius": 4}); err != nil {
		t.Fatal(err)
	}
	if got := objectOf[*fakeGeometry](t, rt, geo).radius; got != 4 {
		t.Errorf("radius = %v, want 4 through the attached field", got)
	}
}
