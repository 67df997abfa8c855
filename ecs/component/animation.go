package component

// AnimationDef describes one clip the animation player can run.
type AnimationDef struct {
	Name     string
	Duration float64 // seconds; ignored for looping clips
	Loop     bool
}

// Animator is the contract shared with the animation player: named triggers
// flow in, the Walking flag selects locomotion, and Current/Playing report
// what is actually on screen.
type Animator struct {
	Defs     map[string]AnimationDef
	IdleClip string
	WalkClip string

	// Transition is how long a locomotion change waits before the clip switches.
	Transition  float64
	SwitchTimer float64

	Current string
	Elapsed float64
	Playing bool

	Walking  bool
	Triggers []string
}

// IsPlaying reports whether clip is the clip currently running.
func (a *Animator) IsPlaying(clip string) bool {
	if a == nil || clip == "" {
		return false
	}
	return a.Playing && a.Current == clip
}

// Trigger queues a named animation for the next animation update.
func (a *Animator) Trigger(name string) {
	if a == nil || name == "" {
		return
	}
	a.Triggers = append(a.Triggers, name)
}

var AnimatorComponent = NewComponent[Animator]()
