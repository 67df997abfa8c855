package prefabs

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// CompanionSpec is the tunable description of a companion. Zero numbers and
// nil flags fall back to defaults when turned into a runtime config.
type CompanionSpec struct {
	Name              string  `yaml:"name"`
	Speed             float64 `yaml:"speed"`
	FocusTolerance    float64 `yaml:"focus_tolerance"`
	FocusTimeRequired float64 `yaml:"focus_time_required"`
	NearDistance      float64 `yaml:"near_distance"`
	AppearDelay       float64 `yaml:"appear_delay"`
	TurnBlend         float64 `yaml:"turn_blend"`
	SpawnOffset       float64 `yaml:"spawn_offset"`
	PublishDelay      float64 `yaml:"publish_delay"`
	PublishInterval   float64 `yaml:"publish_interval"`

	PlayInterruptsWalk *bool `yaml:"play_interrupts_walk"`
	FlattenLook        *bool `yaml:"flatten_look"`

	GameStateScript string        `yaml:"game_state_script"`
	Animation       AnimationSpec `yaml:"animation"`
	FSM             FSMSpec       `yaml:"fsm"`
}

type AnimationSpec struct {
	Appear     string     `yaml:"appear"`
	Walk       string     `yaml:"walk"`
	Idle       string     `yaml:"idle"`
	Transition float64    `yaml:"transition"`
	Clips      []ClipSpec `yaml:"clips"`
}

type ClipSpec struct {
	Name     string  `yaml:"name"`
	Duration float64 `yaml:"duration"`
	Loop     bool    `yaml:"loop"`
}

// FSMSpec is the YAML form of the companion state machine. Transitions map a
// source state (or "*" for any state) to event -> target state.
type FSMSpec struct {
	Initial     string                       `yaml:"initial"`
	States      map[string]FSMStateSpec      `yaml:"states"`
	Transitions map[string]map[string]string `yaml:"transitions"`
}

type FSMStateSpec struct {
	OnEnter []map[string]any `yaml:"on_enter"`
	OnExit  []map[string]any `yaml:"on_exit"`
}

func LoadCompanionSpec() (*CompanionSpec, error) {
	spec, err := LoadSpec[CompanionSpec]("companion.yaml")
	if err != nil {
		return nil, err
	}
	return &spec, nil
}

// RoomSpec is a named play-space polygon. Points are [x, y, z] with y up.
type RoomSpec struct {
	Name   string       `yaml:"name"`
	Points [][3]float64 `yaml:"points"`
}

func (r RoomSpec) Vertices() []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(r.Points))
	for i, p := range r.Points {
		out[i] = mgl64.Vec3{p[0], p[1], p[2]}
	}
	return out
}

type RoomsSpec struct {
	Rooms []RoomSpec `yaml:"rooms"`
}

// Room returns the room called name.
func (s RoomsSpec) Room(name string) (RoomSpec, bool) {
	for _, r := range s.Rooms {
		if r.Name == name {
			return r, true
		}
	}
	return RoomSpec{}, false
}

func LoadRoomsSpec() (*RoomsSpec, error) {
	spec, err := LoadSpec[RoomsSpec]("rooms.yaml")
	if err != nil {
		return nil, err
	}
	return &spec, nil
}
