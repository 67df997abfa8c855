package ecs

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/ecs/component"
)

func transformAt(x, y, z float64) *component.Transform {
	tr := component.NewTransform(mgl64.Vec3{x, y, z})
	return &tr
}

func ids(ents []Entity) []entityID {
	out := make([]entityID, 0, len(ents))
	for _, e := range ents {
		out = append(out, e.id())
	}
	return out
}

func sameIDs(got []Entity, want ...entityID) bool {
	g := ids(got)
	if len(g) != len(want) {
		return false
	}
	for i := range g {
		if g[i] != want[i] {
			return false
		}
	}
	return true
}

func TestEntityHandles(t *testing.T) {
	cases := []struct {
		name      string
		e         Entity
		wantID    entityID
		wantGen   generation
		wantStr   string
		wantValid bool
	}{
		{"zero", 0, 0, 0, "0v0", false},
		{"first", makeEntity(1, 0), 1, 0, "1v0", true},
		{"reused", makeEntity(1, 3), 1, 3, "1v3", true},
		{"high_bits", makeEntity(1<<31, 1<<31), 1 << 31, 1 << 31, "2147483648v2147483648", true},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.e.id() != c.wantID || c.e.generation() != c.wantGen {
				t.Fatalf("expected id %d gen %d, got id %d gen %d", c.wantID, c.wantGen, c.e.id(), c.e.generation())
			}
			if c.e.String() != c.wantStr {
				t.Fatalf("expected %q, got %q", c.wantStr, c.e.String())
			}
			if c.e.Valid() != c.wantValid {
				t.Fatalf("expected valid=%v", c.wantValid)
			}
		})
	}
}

func TestEntityLifecycle(t *testing.T) {
	cases := []struct {
		name    string
		create  int
		destroy []int
		want    []entityID
	}{
		{"single", 1, []int{0}, nil},
		{"destroy_middle", 3, []int{1}, []entityID{1, 3}},
		{"destroy_none", 2, nil, []entityID{1, 2}},
		{"destroy_twice", 2, []int{0, 0}, []entityID{2}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w := NewWorld()
			ents := make([]Entity, 0, c.create)
			for i := 0; i < c.create; i++ {
				ents = append(ents, CreateEntity(w))
			}
			for n, i := range c.destroy {
				first := true
				for _, prev := range c.destroy[:n] {
					if prev == i {
						first = false
					}
				}
				if got := DestroyEntity(w, ents[i]); got != first {
					t.Fatalf("DestroyEntity(%v) returned %v, want %v", ents[i], got, first)
				}
				if IsAlive(w, ents[i]) {
					t.Fatalf("%v should not be alive after destruction", ents[i])
				}
			}
			if got := Entities(w); !sameIDs(got, c.want...) {
				t.Fatalf("expected live ids %v, got %v", c.want, ids(got))
			}
		})
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	w := NewWorld()
	old := CreateEntity(w)
	if err := Add(w, old, component.MotionComponent.Kind(), &component.Motion{Mode: component.MotionChase}); err != nil {
		t.Fatalf("add motion: %v", err)
	}
	if !DestroyEntity(w, old) {
		t.Fatalf("destroy should succeed")
	}

	reused := CreateEntity(w)
	if reused.id() != old.id() || reused.generation() != old.generation()+1 {
		t.Fatalf("expected id %d at the next generation, got %v after %v", old.id(), reused, old)
	}
	if IsAlive(w, old) {
		t.Fatalf("stale handle must not be alive")
	}
	if Has(w, reused, component.MotionComponent.Kind()) {
		t.Fatalf("components must not survive destruction")
	}
	if err := Add(w, old, component.MotionComponent.Kind(), &component.Motion{}); err != component.ErrEntityNotAlive {
		t.Fatalf("expected ErrEntityNotAlive, got %v", err)
	}

	if err := Add(w, reused, component.MotionComponent.Kind(), &component.Motion{Mode: component.MotionWalkPath}); err != nil {
		t.Fatalf("add motion: %v", err)
	}
	if _, ok := Get(w, old, component.MotionComponent.Kind()); ok {
		t.Fatalf("stale handle must not read the new owner's motion")
	}
	if Remove(w, old, component.MotionComponent.Kind()) {
		t.Fatalf("stale handle must not remove the new owner's motion")
	}
	if m, ok := Get(w, reused, component.MotionComponent.Kind()); !ok || m.Mode != component.MotionWalkPath {
		t.Fatalf("expected walk_path motion on the reused entity, got %v ok=%v", m, ok)
	}
}

func TestSparseSetReplacesStaleGeneration(t *testing.T) {
	s := &SparseSet{}
	old, reused := makeEntity(2, 0), makeEntity(2, 1)
	s.Set(old, transformAt(1, 0, 0))
	s.Set(reused, transformAt(2, 0, 0))

	if s.Len() != 1 {
		t.Fatalf("expected the stale slot to be replaced, got %d values", s.Len())
	}
	if s.Has(old) || s.Get(old) != nil {
		t.Fatalf("stale generation must not match")
	}
	tr, ok := s.Get(reused).(*component.Transform)
	if !ok || tr.Position.X() != 2 {
		t.Fatalf("expected the new transform, got %v", s.Get(reused))
	}

	s.Set(0, transformAt(9, 0, 0))
	if s.Len() != 1 {
		t.Fatalf("the zero entity must never be stored")
	}
}

func TestComponentStores(t *testing.T) {
	w := NewWorld()
	e := CreateEntity(w)

	cases := []struct {
		name   string
		add    func() error
		check  func(t *testing.T)
		remove func() bool
	}{
		{
			name: "transform",
			add:  func() error { return Add(w, e, component.TransformComponent.Kind(), transformAt(1, 0, 2)) },
			check: func(t *testing.T) {
				tr, ok := Get(w, e, component.TransformComponent.Kind())
				if !ok || tr.Position != (mgl64.Vec3{1, 0, 2}) || tr.Rotation != mgl64.QuatIdent() {
					t.Fatalf("unexpected transform %+v ok=%v", tr, ok)
				}
				tr.Position = mgl64.Vec3{3, 0, 3}
				again, _ := Get(w, e, component.TransformComponent.Kind())
				if again.Position != (mgl64.Vec3{3, 0, 3}) {
					t.Fatalf("Get should return the stored pointer")
				}
			},
			remove: func() bool { return Remove(w, e, component.TransformComponent.Kind()) },
		},
		{
			name: "motion",
			add: func() error {
				return Add(w, e, component.MotionComponent.Kind(), &component.Motion{
					Mode:      component.MotionWalkPath,
					Waypoints: []mgl64.Vec3{{0, 0, 1}, {1, 0, 1}},
				})
			},
			check: func(t *testing.T) {
				m, ok := Get(w, e, component.MotionComponent.Kind())
				if !ok || m.Mode != component.MotionWalkPath || len(m.Waypoints) != 2 {
					t.Fatalf("unexpected motion %+v ok=%v", m, ok)
				}
				if err := Add(w, e, component.MotionComponent.Kind(), &component.Motion{}); err != nil {
					t.Fatalf("replace motion: %v", err)
				}
				if m, _ := Get(w, e, component.MotionComponent.Kind()); m.Mode != component.MotionIdle {
					t.Fatalf("Add should replace the stored motion, got %s", m.Mode)
				}
			},
			remove: func() bool { return Remove(w, e, component.MotionComponent.Kind()) },
		},
		{
			name: "animator",
			add: func() error {
				return Add(w, e, component.AnimatorComponent.Kind(), &component.Animator{WalkClip: "walk", Current: "walk", Walking: true})
			},
			check: func(t *testing.T) {
				anim, ok := Get(w, e, component.AnimatorComponent.Kind())
				if !ok || !anim.Walking || anim.WalkClip != "walk" {
					t.Fatalf("unexpected animator %+v ok=%v", anim, ok)
				}
				if !Has(w, e, component.TransformComponent.Kind()) {
					t.Fatalf("stores must not interfere with each other")
				}
			},
			remove: func() bool { return Remove(w, e, component.AnimatorComponent.Kind()) },
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if err := c.add(); err != nil {
				t.Fatalf("add: %v", err)
			}
			c.check(t)
		})
	}
	for i := len(cases) - 1; i >= 0; i-- {
		if !cases[i].remove() {
			t.Fatalf("remove %s failed", cases[i].name)
		}
		if cases[i].remove() {
			t.Fatalf("second remove of %s should report false", cases[i].name)
		}
	}
}

func TestAddErrors(t *testing.T) {
	w := NewWorld()
	e := CreateEntity(w)
	dead := CreateEntity(w)
	DestroyEntity(w, dead)

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"nil_world", Add(nil, e, component.TransformComponent.Kind(), transformAt(0, 0, 0)), component.ErrEntityNotAlive},
		{"dead_entity", Add(w, dead, component.TransformComponent.Kind(), transformAt(0, 0, 0)), component.ErrEntityNotAlive},
		{"zero_entity", Add(w, 0, component.TransformComponent.Kind(), transformAt(0, 0, 0)), component.ErrEntityNotAlive},
		{"invalid_kind", Add(w, e, component.ComponentKind[component.Transform]{}, transformAt(0, 0, 0)), component.ErrInvalidComponentKind},
		{"nil_value", Add[component.Motion](w, e, component.MotionComponent.Kind(), nil), component.ErrNilComponent},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if c.err != c.want {
				t.Fatalf("expected %v, got %v", c.want, c.err)
			}
		})
	}
	if Has(w, e, component.TransformComponent.Kind()) || Has(w, e, component.MotionComponent.Kind()) {
		t.Fatalf("failed adds must not store anything")
	}
}

// companionWorld builds four movers: a has transform, motion and animator;
// b has transform and motion; c has a transform only; d matches a but is
// destroyed.
func companionWorld(t *testing.T) (w *World, a, b, c Entity) {
	t.Helper()
	w = NewWorld()
	a, b, c = CreateEntity(w), CreateEntity(w), CreateEntity(w)
	d := CreateEntity(w)

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	for i, e := range []Entity{a, b, c, d} {
		must(Add(w, e, component.TransformComponent.Kind(), transformAt(float64(i), 0, 0)))
	}
	for _, e := range []Entity{a, b, d} {
		must(Add(w, e, component.MotionComponent.Kind(), &component.Motion{}))
	}
	for _, e := range []Entity{a, d} {
		must(Add(w, e, component.AnimatorComponent.Kind(), &component.Animator{}))
	}
	must(Add(w, a, component.LocomotionComponent.Kind(), &component.Locomotion{Speed: 1}))
	DestroyEntity(w, d)
	return w, a, b, c
}

func TestForEachQueries(t *testing.T) {
	cases := []struct {
		name string
		run  func(w *World) []Entity
		want func(a, b, c Entity) []Entity
	}{
		{
			name: "transform",
			run: func(w *World) []Entity {
				var out []Entity
				ForEach(w, component.TransformComponent.Kind(), func(e Entity, _ *component.Transform) { out = append(out, e) })
				return out
			},
			want: func(a, b, c Entity) []Entity { return []Entity{a, b, c} },
		},
		{
			name: "transform_motion",
			run: func(w *World) []Entity {
				var out []Entity
				ForEach2(w, component.TransformComponent.Kind(), component.MotionComponent.Kind(), func(e Entity, _ *component.Transform, _ *component.Motion) {
					out = append(out, e)
				})
				return out
			},
			want: func(a, b, c Entity) []Entity { return []Entity{a, b} },
		},
		{
			name: "motion_transform_animator",
			run: func(w *World) []Entity {
				var out []Entity
				ForEach3(w, component.MotionComponent.Kind(), component.TransformComponent.Kind(), component.AnimatorComponent.Kind(), func(e Entity, _ *component.Motion, _ *component.Transform, _ *component.Animator) {
					out = append(out, e)
				})
				return out
			},
			want: func(a, b, c Entity) []Entity { return []Entity{a} },
		},
		{
			name: "with_locomotion",
			run: func(w *World) []Entity {
				var out []Entity
				ForEach4(w, component.MotionComponent.Kind(), component.TransformComponent.Kind(), component.LocomotionComponent.Kind(), component.AnimatorComponent.Kind(), func(e Entity, _ *component.Motion, _ *component.Transform, _ *component.Locomotion, _ *component.Animator) {
					out = append(out, e)
				})
				return out
			},
			want: func(a, b, c Entity) []Entity { return []Entity{a} },
		},
		{
			name: "unused_kind",
			run: func(w *World) []Entity {
				var out []Entity
				ForEach(w, component.FocusComponent.Kind(), func(e Entity, _ *component.Focus) { out = append(out, e) })
				return out
			},
			want: func(a, b, c Entity) []Entity { return nil },
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			w, ea, eb, ec := companionWorld(t)
			got := c.run(w)
			want := c.want(ea, eb, ec)
			seen := map[Entity]bool{}
			for _, e := range got {
				seen[e] = true
			}
			if len(got) != len(want) || len(seen) != len(got) {
				t.Fatalf("expected %v, got %v", want, got)
			}
			for _, e := range want {
				if !seen[e] {
					t.Fatalf("expected %v in %v", e, got)
				}
			}
		})
	}
}

func TestForEachAllowsRemoval(t *testing.T) {
	w, a, b, _ := companionWorld(t)
	visited := 0
	ForEach2(w, component.MotionComponent.Kind(), component.TransformComponent.Kind(), func(e Entity, _ *component.Motion, _ *component.Transform) {
		visited++
		Remove(w, a, component.MotionComponent.Kind())
		Remove(w, b, component.MotionComponent.Kind())
	})
	if visited != 1 {
		t.Fatalf("removed entities should be skipped, visited %d", visited)
	}
	if Has(w, a, component.MotionComponent.Kind()) || Has(w, b, component.MotionComponent.Kind()) {
		t.Fatalf("expected motion removed from both")
	}
}

func TestFirst(t *testing.T) {
	w := NewWorld()
	if _, ok := First(w, component.ViewerTagComponent.Kind()); ok {
		t.Fatalf("no viewer yet")
	}

	a, b := CreateEntity(w), CreateEntity(w)
	for _, e := range []Entity{b, a} {
		if err := Add(w, e, component.ViewerTagComponent.Kind(), &component.ViewerTag{}); err != nil {
			t.Fatalf("add viewer tag: %v", err)
		}
	}
	if got, ok := First(w, component.ViewerTagComponent.Kind()); !ok || got != a {
		t.Fatalf("expected lowest id %v, got %v", a, got)
	}

	DestroyEntity(w, a)
	if got, ok := First(w, component.ViewerTagComponent.Kind()); !ok || got != b {
		t.Fatalf("expected %v after destroying %v, got %v", b, a, got)
	}

	// the reused slot has no tag until one is added
	reused := CreateEntity(w)
	if got, _ := First(w, component.ViewerTagComponent.Kind()); got != b {
		t.Fatalf("expected %v, got %v", b, got)
	}
	if err := Add(w, reused, component.ViewerTagComponent.Kind(), &component.ViewerTag{}); err != nil {
		t.Fatalf("add viewer tag: %v", err)
	}
	if got, _ := First(w, component.ViewerTagComponent.Kind()); got != reused {
		t.Fatalf("expected reused %v, got %v", reused, got)
	}
}
