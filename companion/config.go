package companion

import (
	"fmt"

	"github.com/milk9111/companion/ecs/component"
	"github.com/milk9111/companion/prefabs"
)

// Config holds the tunables of one companion. Times are simulation seconds.
// A controller never changes its config; reloads build a new controller.
type Config struct {
	Speed             float64 // units per second
	FocusTolerance    float64 // cosine threshold in [0.5, 1]
	FocusTimeRequired float64 // dwell before StopOnFocus interrupts
	NearDistance      float64

	AppearDelay float64 // appearance animation time before walking starts
	TurnBlend   float64 // per-tick slerp factor while walking a path
	SpawnOffset float64 // distance from the facing edge toward the center

	PublishDelay    float64 // first telemetry sample
	PublishInterval float64

	// PlayInterruptsWalk makes Play cancel a running walk. Off by default:
	// a gesture then only pauses the walk until the walk clip resumes.
	PlayInterruptsWalk bool
	FlattenLook        bool

	AppearAnimation     string
	WalkAnimation       string
	IdleAnimation       string
	AnimationTransition float64
	Clips               []component.AnimationDef

	GameStateScript string
}

func DefaultConfig() Config {
	return Config{
		Speed:             0.6,
		FocusTolerance:    0.9,
		FocusTimeRequired: 1.5,
		NearDistance:      1.2,

		AppearDelay: 3,
		TurnBlend:   0.1,
		SpawnOffset: 0.5,

		PublishDelay:    0.001,
		PublishInterval: 0.25,

		FlattenLook: true,

		AppearAnimation:     "appear",
		WalkAnimation:       "walk",
		IdleAnimation:       "idle",
		AnimationTransition: 0.2,
		Clips: []component.AnimationDef{
			{Name: "idle", Loop: true},
			{Name: "walk", Loop: true},
			{Name: "appear", Duration: 2.5},
		},

		GameStateScript: "game_state.tengo",
	}
}

// FromSpec overlays the non-zero fields of spec on DefaultConfig and
// validates the result.
func FromSpec(spec *prefabs.CompanionSpec) (Config, error) {
	cfg := DefaultConfig()
	if spec == nil {
		return cfg, nil
	}

	setPositive := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}
	setPositive(&cfg.Speed, spec.Speed)
	setPositive(&cfg.FocusTolerance, spec.FocusTolerance)
	setPositive(&cfg.FocusTimeRequired, spec.FocusTimeRequired)
	setPositive(&cfg.NearDistance, spec.NearDistance)
	setPositive(&cfg.AppearDelay, spec.AppearDelay)
	setPositive(&cfg.TurnBlend, spec.TurnBlend)
	setPositive(&cfg.SpawnOffset, spec.SpawnOffset)
	setPositive(&cfg.PublishDelay, spec.PublishDelay)
	setPositive(&cfg.PublishInterval, spec.PublishInterval)
	setPositive(&cfg.AnimationTransition, spec.Animation.Transition)

	if spec.PlayInterruptsWalk != nil {
		cfg.PlayInterruptsWalk = *spec.PlayInterruptsWalk
	}
	if spec.FlattenLook != nil {
		cfg.FlattenLook = *spec.FlattenLook
	}

	if spec.Animation.Appear != "" {
		cfg.AppearAnimation = spec.Animation.Appear
	}
	if spec.Animation.Walk != "" {
		cfg.WalkAnimation = spec.Animation.Walk
	}
	if spec.Animation.Idle != "" {
		cfg.IdleAnimation = spec.Animation.Idle
	}
	if len(spec.Animation.Clips) > 0 {
		cfg.Clips = make([]component.AnimationDef, 0, len(spec.Animation.Clips))
		for _, c := range spec.Animation.Clips {
			cfg.Clips = append(cfg.Clips, component.AnimationDef{Name: c.Name, Duration: c.Duration, Loop: c.Loop})
		}
	}
	if spec.GameStateScript != "" {
		cfg.GameStateScript = spec.GameStateScript
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.Speed <= 0:
		return fmt.Errorf("%w: speed must be > 0, got %v", ErrInvalidConfig, c.Speed)
	case c.FocusTolerance < 0.5 || c.FocusTolerance > 1:
		return fmt.Errorf("%w: focus tolerance must be in [0.5, 1], got %v", ErrInvalidConfig, c.FocusTolerance)
	case c.TurnBlend <= 0 || c.TurnBlend > 1:
		return fmt.Errorf("%w: turn blend must be in (0, 1], got %v", ErrInvalidConfig, c.TurnBlend)
	case c.FocusTimeRequired < 0 || c.NearDistance < 0 || c.AppearDelay < 0 || c.SpawnOffset < 0:
		return fmt.Errorf("%w: durations and distances must not be negative", ErrInvalidConfig)
	case c.PublishDelay < 0 || c.PublishInterval <= 0:
		return fmt.Errorf("%w: publish interval must be > 0 and delay >= 0", ErrInvalidConfig)
	case c.AnimationTransition < 0:
		return fmt.Errorf("%w: animation transition must not be negative", ErrInvalidConfig)
	case c.WalkAnimation == "" || c.IdleAnimation == "":
		return fmt.Errorf("%w: walk and idle animations are required", ErrInvalidConfig)
	}

	seen := make(map[string]component.AnimationDef, len(c.Clips))
	for _, clip := range c.Clips {
		if clip.Name == "" {
			return fmt.Errorf("%w: animation clip without a name", ErrInvalidConfig)
		}
		if _, dup := seen[clip.Name]; dup {
			return fmt.Errorf("%w: duplicate animation clip %q", ErrInvalidConfig, clip.Name)
		}
		seen[clip.Name] = clip
	}
	for _, name := range []string{c.WalkAnimation, c.IdleAnimation} {
		clip, ok := seen[name]
		if !ok {
			return fmt.Errorf("%w: animation clip %q not defined", ErrInvalidConfig, name)
		}
		if !clip.Loop {
			return fmt.Errorf("%w: locomotion clip %q must loop", ErrInvalidConfig, name)
		}
	}
	if c.AppearAnimation != "" {
		if _, ok := seen[c.AppearAnimation]; !ok {
			return fmt.Errorf("%w: animation clip %q not defined", ErrInvalidConfig, c.AppearAnimation)
		}
	}
	return nil
}

func (c Config) newAnimator() *component.Animator {
	defs := make(map[string]component.AnimationDef, len(c.Clips))
	for _, clip := range c.Clips {
		defs[clip.Name] = clip
	}
	return &component.Animator{
		Defs:       defs,
		IdleClip:   c.IdleAnimation,
		WalkClip:   c.WalkAnimation,
		Transition: c.AnimationTransition,
	}
}
