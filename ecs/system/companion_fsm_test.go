package system

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
	"github.com/milk9111/companion/prefabs"
)

func embeddedFSM(t *testing.T) *CompanionFSM {
	t.Helper()
	prefabs.SetDir("")
	t.Cleanup(func() { prefabs.SetDir("prefabs") })

	spec, err := prefabs.LoadCompanionSpec()
	if err != nil {
		t.Fatalf("LoadCompanionSpec: %v", err)
	}
	fsm, err := CompileCompanionFSM(spec.FSM, nil)
	if err != nil {
		t.Fatalf("CompileCompanionFSM: %v", err)
	}
	return fsm
}

func TestCompanionFSMTransitions(t *testing.T) {
	cases := []struct {
		name   string
		from   component.CompanionState
		event  component.CompanionEvent
		want   component.CompanionState
		wantOK bool
	}{
		{"spawn_from_none", component.StateNone, component.EventSpawn, component.StateInit, true},
		{"plan_from_none_ignored", component.StateNone, component.EventPlan, component.StateNone, false},
		{"plan_from_init", component.StateInit, component.EventPlan, component.StateWalking, true},
		{"replan_while_walking", component.StateWalking, component.EventPlan, component.StateWalking, true},
		{"path_complete", component.StateWalking, component.EventPathComplete, component.StateReady, true},
		{"path_interrupted", component.StateWalking, component.EventPathInterrupted, component.StateInit, true},
		{"path_interrupted_from_ready_ignored", component.StateReady, component.EventPathInterrupted, component.StateReady, false},
		{"path_complete_from_init_ignored", component.StateInit, component.EventPathComplete, component.StateInit, false},
		{"plan_from_ready_ignored", component.StateReady, component.EventPlan, component.StateReady, false},
		{"force_from_ready", component.StateReady, component.EventForceInit, component.StateInit, true},
		{"force_from_walking", component.StateWalking, component.EventForceInit, component.StateInit, true},
		{"force_from_none", component.StateNone, component.EventForceInit, component.StateInit, true},
	}

	machines := map[string]*CompanionFSM{
		"default":  DefaultCompanionFSM(nil),
		"embedded": embeddedFSM(t),
	}

	for mname, fsm := range machines {
		for _, c := range cases {
			t.Run(mname+"/"+c.name, func(t *testing.T) {
				w := ecs.NewWorld()
				e := ecs.CreateEntity(w)
				comp := addCompanion(t, w, e, c.from)

				ok := fsm.Fire(w, e, c.event)
				if ok != c.wantOK {
					t.Fatalf("Fire returned %v, want %v", ok, c.wantOK)
				}
				if comp.State != c.want {
					t.Fatalf("expected %s, got %s", c.want, comp.State)
				}
				events := w.Events().Drain()
				wantEvents := 0
				if c.wantOK {
					wantEvents = 1
				}
				if got := countEvents(events, EventStateChanged); got != wantEvents {
					t.Fatalf("expected %d state events, got %d", wantEvents, got)
				}
			})
		}
	}
}

func TestCompanionFSMForceInitCancelsWalk(t *testing.T) {
	fsm := embeddedFSM(t)
	w := ecs.NewWorld()
	e := newMover(t, w, mgl64.Vec3{}, 1)
	anim := addAnimator(t, w, e, "walk")
	comp := addCompanion(t, w, e, component.StateWalking)
	StartWalk(w, e, []mgl64.Vec3{{1, 0, 0}})

	if !fsm.Fire(w, e, component.EventForceInit) {
		t.Fatalf("force_init should always apply")
	}
	if comp.State != component.StateInit {
		t.Fatalf("expected INIT, got %s", comp.State)
	}
	if IsWalking(w, e) || anim.Walking {
		t.Fatalf("entering INIT should cancel the walk")
	}
}

func TestCompanionFSMReadyEmits(t *testing.T) {
	fsm := embeddedFSM(t)
	w := ecs.NewWorld()
	e := ecs.CreateEntity(w)
	addCompanion(t, w, e, component.StateWalking)

	fsm.Fire(w, e, component.EventPathComplete)
	if got := countEvents(w.Events().Drain(), "companion.ready"); got != 1 {
		t.Fatalf("expected companion.ready event, got %d", got)
	}
}

func TestCompileCompanionFSMErrors(t *testing.T) {
	cases := []struct {
		name string
		spec prefabs.FSMSpec
	}{
		{"bad_initial", prefabs.FSMSpec{Initial: "FLYING"}},
		{"bad_state", prefabs.FSMSpec{States: map[string]prefabs.FSMStateSpec{"FLYING": {}}}},
		{"bad_action", prefabs.FSMSpec{States: map[string]prefabs.FSMStateSpec{
			"READY": {OnEnter: []map[string]any{{"explode": true}}},
		}}},
		{"bad_source", prefabs.FSMSpec{Transitions: map[string]map[string]string{"FLYING": {"plan": "READY"}}}},
		{"bad_target", prefabs.FSMSpec{Transitions: map[string]map[string]string{"INIT": {"plan": "FLYING"}}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := CompileCompanionFSM(c.spec, nil); err == nil {
				t.Fatalf("expected compile error")
			}
		})
	}
}

func TestFireWithoutCompanion(t *testing.T) {
	w := ecs.NewWorld()
	e := ecs.CreateEntity(w)
	if DefaultCompanionFSM(nil).Fire(w, e, component.EventSpawn) {
		t.Fatalf("Fire must be a no-op without a companion component")
	}
	var nilFSM *CompanionFSM
	if nilFSM.Fire(w, e, component.EventSpawn) {
		t.Fatalf("nil machine must not fire")
	}
}
