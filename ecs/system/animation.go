package system

import (
	"log/slog"

	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
)

// AnimationSystem is the reference animation player. Triggers start their
// clip immediately; a finished one-shot clip hands back to locomotion, which
// plays the walk clip while the walking flag is raised and the idle clip
// otherwise. A locomotion change waits Transition seconds and happens no
// earlier than the animation update after the flag changed.
type AnimationSystem struct {
	logger *slog.Logger
}

func NewAnimationSystem(logger *slog.Logger) *AnimationSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnimationSystem{logger: logger}
}

func (a *AnimationSystem) Update(w *ecs.World) {
	if a == nil || w == nil {
		return
	}
	dt := w.DeltaTime()

	ecs.ForEach(w, component.AnimatorComponent.Kind(), func(e ecs.Entity, anim *component.Animator) {
		if len(anim.Triggers) > 0 {
			triggers := anim.Triggers
			anim.Triggers = nil
			for _, name := range triggers {
				if _, ok := anim.Defs[name]; !ok {
					a.logger.Warn("unknown animation trigger", "entity", e.String(), "animation", name)
					continue
				}
				a.start(w, e, anim, name)
			}
			return
		}

		if anim.Playing {
			anim.Elapsed += dt
			def := anim.Defs[anim.Current]
			if !def.Loop && anim.Elapsed >= def.Duration {
				anim.Playing = false
			}
		}

		if anim.Playing && !isLocomotion(anim, anim.Current) {
			return
		}

		want := anim.IdleClip
		if anim.Walking {
			want = anim.WalkClip
		}
		if anim.Playing && anim.Current == want {
			anim.SwitchTimer = 0
			return
		}
		if !anim.Playing {
			// nothing on screen; pick locomotion up without blending
			a.start(w, e, anim, want)
			return
		}
		anim.SwitchTimer += dt
		if anim.SwitchTimer >= anim.Transition {
			a.start(w, e, anim, want)
		}
	})
}

func (a *AnimationSystem) start(w *ecs.World, e ecs.Entity, anim *component.Animator, name string) {
	if name == "" {
		return
	}
	anim.Current = name
	anim.Elapsed = 0
	anim.Playing = true
	anim.SwitchTimer = 0
	w.Events().Push(ecs.Event{Type: EventAnimationStarted, Entity: e, Data: AnimationStarted{Name: name}})
}

func isLocomotion(anim *component.Animator, clip string) bool {
	return clip == anim.IdleClip || clip == anim.WalkClip
}
