package system

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
	"github.com/milk9111/companion/prefabs"
)

// AnyState is the transition source that matches every state.
const AnyState = "*"

type FSMAction func(ctx *FSMContext)

type FSMContext struct {
	World     *ecs.World
	Entity    ecs.Entity
	Companion *component.Companion
	Change    StateChange
	Logger    *slog.Logger
}

type CompanionStateDef struct {
	OnEnter []FSMAction
	OnExit  []FSMAction
}

// CompanionFSM is the compiled companion state machine. Fire is the only
// code path that writes Companion.State.
type CompanionFSM struct {
	Initial     component.CompanionState
	States      map[component.CompanionState]CompanionStateDef
	Transitions map[component.CompanionState]map[component.CompanionEvent]component.CompanionState
	Any         map[component.CompanionEvent]component.CompanionState

	logger *slog.Logger
}

var fsmActionRegistry = map[string]func(any) FSMAction{
	"log": func(arg any) FSMAction {
		msg := fmt.Sprint(arg)
		return func(ctx *FSMContext) {
			ctx.Logger.Debug(msg, "entity", ctx.Entity.String(), "from", ctx.Change.From.String(), "to", ctx.Change.To.String())
		}
	},
	"trigger": func(arg any) FSMAction {
		name := fmt.Sprint(arg)
		return func(ctx *FSMContext) {
			if anim, ok := ecs.Get(ctx.World, ctx.Entity, component.AnimatorComponent.Kind()); ok {
				anim.Trigger(name)
			}
		}
	},
	"set_walking": func(arg any) FSMAction {
		walking, _ := arg.(bool)
		return func(ctx *FSMContext) {
			if anim, ok := ecs.Get(ctx.World, ctx.Entity, component.AnimatorComponent.Kind()); ok {
				anim.Walking = walking
			}
		}
	},
	"cancel_motion": func(arg any) FSMAction {
		reason := "state_change"
		if s, ok := arg.(string); ok && s != "" {
			reason = s
		}
		return func(ctx *FSMContext) {
			InterruptMotion(ctx.World, ctx.Entity, reason)
		}
	},
	"emit": func(arg any) FSMAction {
		name := fmt.Sprint(arg)
		return func(ctx *FSMContext) {
			ctx.World.Events().Push(ecs.Event{Type: name, Entity: ctx.Entity, Data: ctx.Change})
		}
	},
}

// CompileCompanionFSM turns a YAML spec into a runnable state machine.
func CompileCompanionFSM(spec prefabs.FSMSpec, logger *slog.Logger) (*CompanionFSM, error) {
	if logger == nil {
		logger = slog.Default()
	}

	initial := component.StateNone
	if spec.Initial != "" {
		s, ok := component.ParseCompanionState(spec.Initial)
		if !ok {
			return nil, fmt.Errorf("fsm: unknown initial state %q", spec.Initial)
		}
		initial = s
	}

	build := func(list []map[string]any) ([]FSMAction, error) {
		if len(list) == 0 {
			return nil, nil
		}
		out := make([]FSMAction, 0, len(list))
		for _, entry := range list {
			// map order is random; keep multi-key entries stable
			keys := make([]string, 0, len(entry))
			for k := range entry {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				makeAction, ok := fsmActionRegistry[k]
				if !ok {
					return nil, fmt.Errorf("fsm: unknown action %q", k)
				}
				out = append(out, makeAction(entry[k]))
			}
		}
		return out, nil
	}

	states := map[component.CompanionState]CompanionStateDef{}
	for name, s := range spec.States {
		id, ok := component.ParseCompanionState(name)
		if !ok {
			return nil, fmt.Errorf("fsm: unknown state %q", name)
		}
		onEnter, err := build(s.OnEnter)
		if err != nil {
			return nil, err
		}
		onExit, err := build(s.OnExit)
		if err != nil {
			return nil, err
		}
		states[id] = CompanionStateDef{OnEnter: onEnter, OnExit: onExit}
	}

	transitions := map[component.CompanionState]map[component.CompanionEvent]component.CompanionState{}
	anyState := map[component.CompanionEvent]component.CompanionState{}
	for from, events := range spec.Transitions {
		target := anyState
		if from != AnyState {
			id, ok := component.ParseCompanionState(from)
			if !ok {
				return nil, fmt.Errorf("fsm: unknown transition source %q", from)
			}
			target = map[component.CompanionEvent]component.CompanionState{}
			transitions[id] = target
		}
		for ev, to := range events {
			toID, ok := component.ParseCompanionState(to)
			if !ok {
				return nil, fmt.Errorf("fsm: unknown target state %q for %s.%s", to, from, ev)
			}
			target[component.CompanionEvent(ev)] = toID
		}
	}

	return &CompanionFSM{
		Initial:     initial,
		States:      states,
		Transitions: transitions,
		Any:         anyState,
		logger:      logger,
	}, nil
}

// DefaultCompanionFSM is the built-in machine used when no spec is loaded.
func DefaultCompanionFSM(logger *slog.Logger) *CompanionFSM {
	if logger == nil {
		logger = slog.Default()
	}
	return &CompanionFSM{
		Initial: component.StateNone,
		States: map[component.CompanionState]CompanionStateDef{
			component.StateInit: {
				OnEnter: []FSMAction{
					fsmActionRegistry["cancel_motion"]("reinit"),
					fsmActionRegistry["set_walking"](false),
				},
			},
			component.StateReady: {
				OnEnter: []FSMAction{fsmActionRegistry["set_walking"](false)},
			},
		},
		Transitions: map[component.CompanionState]map[component.CompanionEvent]component.CompanionState{
			component.StateNone:    {component.EventSpawn: component.StateInit},
			component.StateInit:    {component.EventPlan: component.StateWalking},
			component.StateWalking: {
				component.EventPlan:            component.StateWalking,
				component.EventPathComplete:    component.StateReady,
				component.EventPathInterrupted: component.StateInit,
			},
		},
		Any: map[component.CompanionEvent]component.CompanionState{
			component.EventForceInit: component.StateInit,
		},
		logger: logger,
	}
}

// Next returns the state ev leads to from from. Explicit transitions win
// over "*" ones.
func (f *CompanionFSM) Next(from component.CompanionState, ev component.CompanionEvent) (component.CompanionState, bool) {
	if f == nil {
		return from, false
	}
	if to, ok := f.Transitions[from][ev]; ok {
		return to, true
	}
	if to, ok := f.Any[ev]; ok {
		return to, true
	}
	return from, false
}

// Fire applies ev to the companion on e. Exit actions of the old state run
// before the state changes and enter actions of the new one after. Events
// with no transition are ignored.
func (f *CompanionFSM) Fire(w *ecs.World, e ecs.Entity, ev component.CompanionEvent) bool {
	if f == nil || w == nil {
		return false
	}
	c, ok := ecs.Get(w, e, component.CompanionComponent.Kind())
	if !ok {
		return false
	}

	to, ok := f.Next(c.State, ev)
	if !ok {
		f.logger.Debug("fsm: event ignored", "entity", e.String(), "state", c.State.String(), "event", string(ev))
		return false
	}

	ctx := &FSMContext{
		World:     w,
		Entity:    e,
		Companion: c,
		Change:    StateChange{From: c.State, To: to, Cause: ev},
		Logger:    f.logger,
	}
	for _, act := range f.States[c.State].OnExit {
		act(ctx)
	}
	c.State = to
	for _, act := range f.States[to].OnEnter {
		act(ctx)
	}

	f.logger.Debug("fsm: transition", "entity", e.String(), "from", ctx.Change.From.String(), "to", to.String(), "event", string(ev))
	w.Events().Push(ecs.Event{Type: EventStateChanged, Entity: e, Data: ctx.Change})
	return true
}
