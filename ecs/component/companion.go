package component

// CompanionState is the controller's top-level state.
type CompanionState int

const (
	StateNone CompanionState = iota
	StateInit
	StateWalking
	StateReady
)

func (s CompanionState) String() string {
	switch s {
	case StateNone:
		return "NONE"
	case StateInit:
		return "INIT"
	case StateWalking:
		return "WALKING"
	case StateReady:
		return "READY"
	default:
		return "UNKNOWN"
	}
}

// ParseCompanionState accepts the names produced by String, case-insensitively.
func ParseCompanionState(s string) (CompanionState, bool) {
	switch s {
	case "NONE", "none":
		return StateNone, true
	case "INIT", "init":
		return StateInit, true
	case "WALKING", "walking":
		return StateWalking, true
	case "READY", "ready":
		return StateReady, true
	}
	return StateNone, false
}

// CompanionEvent drives companion FSM transitions.
type CompanionEvent string

const (
	EventSpawn        CompanionEvent = "spawn"
	EventForceInit    CompanionEvent = "force_init"
	EventPlan         CompanionEvent = "plan"
	EventPathComplete CompanionEvent = "path_complete"

	// EventPathInterrupted fires when a planned walk is cut short before
	// reaching READY.
	EventPathInterrupted CompanionEvent = "path_interrupted"
)

// Companion holds the FSM state. Only the companion FSM writes State.
type Companion struct {
	ID    string
	State CompanionState
}

var CompanionComponent = NewComponent[Companion]()
