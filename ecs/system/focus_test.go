package system

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/common"
	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
)

func TestIsFocusedStrictTolerance(t *testing.T) {
	fwd := mgl64.Vec3{1, 0, 0}
	viewer := mgl64.Vec3{}
	target := mgl64.Vec3{2, 0, 0}

	if IsFocused(fwd, viewer, target, 1) {
		t.Fatalf("dot equal to tolerance must not count as focused")
	}
	if !IsFocused(fwd, viewer, target, 0.99) {
		t.Fatalf("dot above tolerance must count as focused")
	}
	if IsFocused(mgl64.Vec3{}, viewer, target, 0.5) {
		t.Fatalf("zero gaze must not be focused")
	}
	if IsFocused(fwd, viewer, viewer, 0.5) {
		t.Fatalf("target at the viewer must not be focused")
	}
}

func TestIsFocusedSquareScenario(t *testing.T) {
	// viewer at the square's center, companion at the midpoint of an edge
	viewer := mgl64.Vec3{0, 0, 0}
	companion := mgl64.Vec3{0, 0, -2}

	cases := []struct {
		name    string
		degrees float64
		want    bool
	}{
		{"straight_on", 0, true},
		{"thirty_degrees", 30, true},
		{"thirty_six_degrees", 36, true},
		{"thirty_eight_degrees", 38, false},
		{"forty_five_degrees", 45, false},
		{"looking_away", 180, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rad := c.degrees * math.Pi / 180
			fwd := mgl64.Vec3{math.Sin(rad), 0, -math.Cos(rad)}
			if got := IsFocused(fwd, viewer, companion, 0.8); got != c.want {
				t.Fatalf("IsFocused at %v degrees = %v, want %v", c.degrees, got, c.want)
			}
		})
	}
}

func TestIsNear(t *testing.T) {
	if !IsNear(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 1) {
		t.Fatalf("distance equal to the threshold counts as near")
	}
	if IsNear(mgl64.Vec3{}, mgl64.Vec3{1.5, 0, 0}, 1) {
		t.Fatalf("expected far")
	}
	if IsNear(mgl64.Vec3{}, mgl64.Vec3{}, 0) {
		t.Fatalf("zero threshold is never near")
	}
}

func addViewer(t *testing.T, w *ecs.World, pos mgl64.Vec3, yaw float64) *component.Transform {
	t.Helper()
	v := ecs.CreateEntity(w)
	tr := &component.Transform{Position: pos, Rotation: common.YawRotation(yaw)}
	if err := ecs.Add(w, v, component.TransformComponent.Kind(), tr); err != nil {
		t.Fatalf("add viewer transform: %v", err)
	}
	if err := ecs.Add(w, v, component.ViewerTagComponent.Kind(), &component.ViewerTag{}); err != nil {
		t.Fatalf("add viewer tag: %v", err)
	}
	return tr
}

func TestFocusSystemWithoutViewer(t *testing.T) {
	w := ecs.NewWorld()
	w.AddSystem(NewFocusSystem(nil, nil))
	e := newMover(t, w, mgl64.Vec3{0, 0, 2}, 1)
	f := &component.Focus{Tolerance: 0.5, Focused: true, HasViewer: true}
	if err := ecs.Add(w, e, component.FocusComponent.Kind(), f); err != nil {
		t.Fatalf("add focus: %v", err)
	}

	w.Update(0.1)
	if f.Focused || f.HasViewer {
		t.Fatalf("expected fail-safe unfocused sample, got %+v", f)
	}
}

func TestFocusSystemStopsWalkAfterDwell(t *testing.T) {
	w := ecs.NewWorld()
	w.AddSystem(NewFocusSystem(nil, nil))
	w.AddSystem(NewMotionSystem(nil, nil))
	// yaw 0 looks down +Z
	addViewer(t, w, mgl64.Vec3{0, 0, 0}, 0)
	e := newMover(t, w, mgl64.Vec3{0, 0, 3}, 0.1)
	anim := addAnimator(t, w, e, "walk")
	f := &component.Focus{Tolerance: 0.9, TimeRequired: 0.5, NearDistance: 4, StopOnFocus: true}
	if err := ecs.Add(w, e, component.FocusComponent.Kind(), f); err != nil {
		t.Fatalf("add focus: %v", err)
	}

	StartWalk(w, e, []mgl64.Vec3{{0, 0, 4}})
	w.Update(0.25)
	if !f.Focused || !f.Near {
		t.Fatalf("expected focused and near, got %+v", f)
	}
	if !IsWalking(w, e) {
		t.Fatalf("walk should continue before focus is held long enough")
	}

	w.Update(0.25)
	if IsWalking(w, e) || anim.Walking {
		t.Fatalf("expected walk to stop after focus held for %v", f.HeldFor)
	}
	if got := countEvents(w.Events().Drain(), EventInterrupted); got != 1 {
		t.Fatalf("expected one interrupt event, got %d", got)
	}
}

func TestFocusSystemResetsDwellWhenGazeLeaves(t *testing.T) {
	w := ecs.NewWorld()
	w.AddSystem(NewFocusSystem(nil, nil))
	viewer := addViewer(t, w, mgl64.Vec3{}, 0)
	e := newMover(t, w, mgl64.Vec3{0, 0, 3}, 1)
	f := &component.Focus{Tolerance: 0.9}
	if err := ecs.Add(w, e, component.FocusComponent.Kind(), f); err != nil {
		t.Fatalf("add focus: %v", err)
	}

	w.Update(0.5)
	if f.HeldFor != 0.5 {
		t.Fatalf("expected held 0.5, got %v", f.HeldFor)
	}
	viewer.Rotation = common.YawRotation(math.Pi / 2)
	w.Update(0.5)
	if f.Focused || f.HeldFor != 0 {
		t.Fatalf("expected focus lost and dwell reset, got %+v", f)
	}
}
