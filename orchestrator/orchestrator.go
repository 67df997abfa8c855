// Package orchestrator turns game state changes into companion commands.
// The mapping lives in a tengo script so it can be tuned without rebuilding.
package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/milk9111/companion/companion"
	"github.com/milk9111/companion/prefabs"
)

type GameState string

const (
	StateMenu     GameState = "menu"
	StateTutorial GameState = "tutorial"
	StatePlaying  GameState = "playing"
	StatePaused   GameState = "paused"
	StateGameOver GameState = "game_over"
	StateWon      GameState = "won"
)

// GameStateChanged is the message the game sends when its mode changes.
type GameStateChanged struct {
	From GameState `json:"from"`
	To   GameState `json:"to"`
}

// Sender accepts commands for the simulation thread.
type Sender interface {
	Send(cmd companion.Command) error
}

var ErrNilSender = errors.New("orchestrator: nil sender")

const dispatchScript = `
on_game_state(__engine, __from, __to)
`

// Orchestrator is safe for concurrent use; script runs are serialized.
type Orchestrator struct {
	mu       sync.Mutex
	compiled *tengo.Compiled
	sender   Sender
	target   uuid.UUID
	current  GameState
	pending  []companion.Command
	logger   *slog.Logger
}

// New compiles src, which must define on_game_state(engine, from, to).
func New(src []byte, sender Sender, logger *slog.Logger) (*Orchestrator, error) {
	if sender == nil {
		return nil, ErrNilSender
	}
	if logger == nil {
		logger = slog.Default()
	}

	script := tengo.NewScript([]byte(string(src) + "\n" + dispatchScript))
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__from", "")
	_ = script.Add("__to", "")
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("orchestrator: compile: %w", err)
	}
	return &Orchestrator{
		compiled: compiled,
		sender:   sender,
		current:  StateMenu,
		logger:   logger,
	}, nil
}

// Load compiles the named script from the prefab scripts.
func Load(name string, sender Sender, logger *slog.Logger) (*Orchestrator, error) {
	src, err := prefabs.LoadScript(name)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: load %s: %w", name, err)
	}
	return New(src, sender, logger)
}

// SetTarget addresses commands to one companion; uuid.Nil means all.
func (o *Orchestrator) SetTarget(id uuid.UUID) {
	o.mu.Lock()
	o.target = id
	o.mu.Unlock()
}

func (o *Orchestrator) Current() GameState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Restore sets the current state without running the script, for a
// reloaded orchestrator taking over from an old one.
func (o *Orchestrator) Restore(state GameState) {
	o.mu.Lock()
	o.current = state
	o.mu.Unlock()
}

// SetState reports a change from the current state to to. The current state
// is read under the same lock the change runs under, so concurrent callers
// see each other's transitions.
func (o *Orchestrator) SetState(to GameState) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.change(GameStateChanged{From: o.current, To: to})
}

// OnGameStateChanged runs the script for ev and forwards the commands it
// produced. A script error sends nothing; a full queue drops the rest of
// the commands and is logged.
func (o *Orchestrator) OnGameStateChanged(ev GameStateChanged) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.change(ev)
}

// change must be called with o.mu held.
func (o *Orchestrator) change(ev GameStateChanged) error {
	o.pending = o.pending[:0]
	if err := o.run(ev); err != nil {
		o.pending = o.pending[:0]
		return fmt.Errorf("orchestrator: %s -> %s: %w", ev.From, ev.To, err)
	}
	o.current = ev.To

	for i, cmd := range o.pending {
		if err := o.sender.Send(cmd); err != nil {
			o.logger.Warn("dropping companion commands", "state", string(ev.To), "dropped", len(o.pending)-i, "err", err)
			break
		}
	}
	o.logger.Debug("game state changed", "from", string(ev.From), "to", string(ev.To), "commands", len(o.pending))
	return nil
}

func (o *Orchestrator) run(ev GameStateChanged) error {
	if err := o.compiled.Set("__engine", o.engine()); err != nil {
		return err
	}
	if err := o.compiled.Set("__from", string(ev.From)); err != nil {
		return err
	}
	if err := o.compiled.Set("__to", string(ev.To)); err != nil {
		return err
	}
	return o.compiled.Run()
}

func (o *Orchestrator) emit(cmd companion.Command) {
	cmd.Target = o.target
	o.pending = append(o.pending, cmd)
}

func (o *Orchestrator) engine() *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["init"] = &tengo.UserFunction{Name: "init", Value: func(args ...tengo.Object) (tengo.Object, error) {
		force := len(args) > 0 && !args[0].IsFalsy()
		o.emit(companion.Command{Kind: companion.CmdInit, Force: force})
		return tengo.TrueValue, nil
	}}

	values["play"] = &tengo.UserFunction{Name: "play", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		name := strings.TrimSpace(objectAsString(args[0]))
		if name == "" {
			return tengo.FalseValue, nil
		}
		o.emit(companion.Command{Kind: companion.CmdPlay, Animation: name})
		return tengo.TrueValue, nil
	}}

	values["follow"] = &tengo.UserFunction{Name: "follow", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 3 {
			return tengo.FalseValue, nil
		}
		var v mgl64.Vec3
		for i := range v {
			f, ok := tengo.ToFloat64(args[i])
			if !ok {
				return tengo.FalseValue, nil
			}
			v[i] = f
		}
		o.emit(companion.Command{Kind: companion.CmdFollowTarget, Destination: v})
		return tengo.TrueValue, nil
	}}

	values["follow_viewer"] = &tengo.UserFunction{Name: "follow_viewer", Value: func(args ...tengo.Object) (tengo.Object, error) {
		o.emit(companion.Command{Kind: companion.CmdFollowViewer})
		return tengo.TrueValue, nil
	}}

	values["stop_following"] = &tengo.UserFunction{Name: "stop_following", Value: func(args ...tengo.Object) (tengo.Object, error) {
		o.emit(companion.Command{Kind: companion.CmdStopFollowing})
		return tengo.TrueValue, nil
	}}

	values["stop_when_focused"] = &tengo.UserFunction{Name: "stop_when_focused", Value: func(args ...tengo.Object) (tengo.Object, error) {
		o.emit(companion.Command{Kind: companion.CmdStopWhenFocused})
		return tengo.TrueValue, nil
	}}

	values["stop_on_focus"] = &tengo.UserFunction{Name: "stop_on_focus", Value: func(args ...tengo.Object) (tengo.Object, error) {
		enabled := len(args) > 0 && !args[0].IsFalsy()
		o.emit(companion.Command{Kind: companion.CmdStopOnFocus, Enabled: enabled})
		return tengo.TrueValue, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		o.logger.Info("script: " + strings.Join(parts, " "))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
