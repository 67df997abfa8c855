package companion

import (
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

type CommandKind string

const (
	CmdInit            CommandKind = "init"
	CmdPlay            CommandKind = "play"
	CmdFollowTarget    CommandKind = "follow_target"
	CmdFollowViewer    CommandKind = "follow_viewer"
	CmdStopFollowing   CommandKind = "stop_following"
	CmdStopWhenFocused CommandKind = "stop_when_focused"
	CmdStopOnFocus     CommandKind = "stop_on_focus"
	CmdDestroy         CommandKind = "destroy"
)

// Command is a controller call queued from outside the simulation thread.
// A nil Target addresses every controller.
type Command struct {
	Kind        CommandKind `json:"kind"`
	Target      uuid.UUID   `json:"target"`
	Force       bool        `json:"force,omitempty"`
	Animation   string      `json:"animation,omitempty"`
	Destination mgl64.Vec3  `json:"destination"`
	Enabled     bool        `json:"enabled,omitempty"`
}

// Apply runs the command against c.
func (cmd Command) Apply(c *Controller) error {
	switch cmd.Kind {
	case CmdInit:
		c.Init(cmd.Force)
	case CmdPlay:
		c.Play(cmd.Animation)
	case CmdFollowTarget:
		c.FollowTarget(cmd.Destination)
	case CmdFollowViewer:
		c.FollowViewer()
	case CmdStopFollowing:
		c.StopFollowing()
	case CmdStopWhenFocused:
		c.StopWhenFocused()
	case CmdStopOnFocus:
		c.SetStopOnFocus(cmd.Enabled)
	case CmdDestroy:
		c.Destroy()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
	return nil
}

// CommandQueue carries commands from any goroutine to the simulation thread,
// which applies them with Drain between ticks.
type CommandQueue struct {
	ch     chan Command
	logger *slog.Logger
}

func NewCommandQueue(size int, logger *slog.Logger) *CommandQueue {
	if size <= 0 {
		size = 64
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandQueue{ch: make(chan Command, size), logger: logger}
}

// Send enqueues cmd without blocking.
func (q *CommandQueue) Send(cmd Command) error {
	select {
	case q.ch <- cmd:
		return nil
	default:
		return ErrQueueFull
	}
}

// Drain applies every queued command to r and returns how many it took off
// the queue. Failures are logged, never returned.
func (q *CommandQueue) Drain(r *Registry) int {
	n := 0
	for {
		select {
		case cmd := <-q.ch:
			n++
			q.apply(r, cmd)
		default:
			return n
		}
	}
}

func (q *CommandQueue) apply(r *Registry, cmd Command) {
	if cmd.Target == uuid.Nil {
		for _, c := range r.All() {
			if err := cmd.Apply(c); err != nil {
				q.logger.Warn("command rejected", "kind", string(cmd.Kind), "err", err)
				return
			}
		}
		return
	}
	c, ok := r.Get(cmd.Target)
	if !ok {
		q.logger.Warn("command for unknown companion", "kind", string(cmd.Kind), "target", cmd.Target.String(), "err", ErrUnknownCompanion)
		return
	}
	if err := cmd.Apply(c); err != nil {
		q.logger.Warn("command rejected", "kind", string(cmd.Kind), "target", cmd.Target.String(), "err", err)
	}
}

func (q *CommandQueue) Len() int {
	return len(q.ch)
}
