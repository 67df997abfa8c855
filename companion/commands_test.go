package companion

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/milk9111/companion/ecs/component"
)

func TestCommandQueueDrain(t *testing.T) {
	r := newRig(t, squarePolygon(), true)
	reg := NewRegistry(r.world, r.fsm, r.poly, nil)
	a, err := reg.Create(testConfig())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := reg.Create(testConfig())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	q := NewCommandQueue(8, nil)
	if err := q.Send(Command{Kind: CmdInit}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Send(Command{Kind: CmdFollowTarget, Target: b.ID(), Destination: mgl64.Vec3{1, 0, 1}}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Send(Command{Kind: CmdPlay, Target: uuid.New(), Animation: "wave"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 queued, got %d", q.Len())
	}

	if n := q.Drain(reg); n != 3 {
		t.Fatalf("expected 3 drained, got %d", n)
	}
	if q.Len() != 0 {
		t.Fatalf("queue should be empty")
	}
	// b abandons its pending walk for the chase
	if a.CurrentState() != component.StateWalking || b.CurrentState() != component.StateInit {
		t.Fatalf("expected a WALKING and b INIT, got %s %s", a.CurrentState(), b.CurrentState())
	}
	if sa, sb := a.Snapshot(), b.Snapshot(); sa.Mode != "idle" || sb.Mode != "chase" || !sb.Walking {
		t.Fatalf("only b should be chasing: a %s, b %s walking=%v", sa.Mode, sb.Mode, sb.Walking)
	}
}

func TestCommandQueueFull(t *testing.T) {
	q := NewCommandQueue(1, nil)
	if err := q.Send(Command{Kind: CmdInit}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if err := q.Send(Command{Kind: CmdInit}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestCommandApply(t *testing.T) {
	r := newRig(t, squarePolygon(), true)
	c := r.controller(t, testConfig())

	cases := []struct {
		name  string
		cmd   Command
		check func(t *testing.T)
	}{
		{"init", Command{Kind: CmdInit}, func(t *testing.T) {
			if c.CurrentState() != component.StateWalking {
				t.Fatalf("expected WALKING, got %s", c.CurrentState())
			}
		}},
		{"stop_on_focus", Command{Kind: CmdStopOnFocus, Enabled: true}, func(t *testing.T) {}},
		{"follow_viewer", Command{Kind: CmdFollowViewer}, func(t *testing.T) {
			if !c.Walking() {
				t.Fatalf("expected chase")
			}
		}},
		{"stop_following", Command{Kind: CmdStopFollowing}, func(t *testing.T) {
			if c.Walking() {
				t.Fatalf("expected chase stopped")
			}
		}},
		{"stop_when_focused", Command{Kind: CmdStopWhenFocused}, func(t *testing.T) {}},
		{"destroy", Command{Kind: CmdDestroy}, func(t *testing.T) {
			if c.CurrentState() != component.StateNone {
				t.Fatalf("expected NONE, got %s", c.CurrentState())
			}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.cmd.Apply(c); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			tc.check(t)
		})
	}

	if err := (Command{Kind: "dance"}).Apply(c); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestRegistry(t *testing.T) {
	r := newRig(t, nil, true)
	reg := NewRegistry(r.world, r.fsm, nil, nil)

	a, _ := reg.Create(testConfig())
	b, _ := reg.Create(testConfig())
	if _, err := reg.Create(Config{}); err == nil {
		t.Fatalf("expected invalid config to be rejected")
	}
	if reg.Len() != 2 {
		t.Fatalf("expected 2 controllers, got %d", reg.Len())
	}
	if got, ok := reg.Get(b.ID()); !ok || got != b {
		t.Fatalf("Get returned the wrong controller")
	}

	for _, c := range reg.All() {
		c.Init(false)
	}
	if a.CurrentState() != component.StateInit {
		t.Fatalf("no boundary keeps INIT, got %s", a.CurrentState())
	}

	reg.SetBoundary(squarePolygon())
	a.Init(false)
	if a.CurrentState() != component.StateWalking {
		t.Fatalf("expected WALKING after boundary swap, got %s", a.CurrentState())
	}

	snaps := reg.Snapshots()
	if len(snaps) != 2 || snaps[0].ID != a.ID().String() || snaps[1].ID != b.ID().String() {
		t.Fatalf("snapshots not in creation order: %+v", snaps)
	}

	if !reg.Remove(a.ID()) || reg.Remove(a.ID()) {
		t.Fatalf("Remove should succeed exactly once")
	}
	if a.CurrentState() != component.StateNone {
		t.Fatalf("removed companion should be destroyed")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 controller, got %d", reg.Len())
	}
}
