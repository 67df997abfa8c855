package sim

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/companion"
	"github.com/milk9111/companion/ecs"
)

// Frame is one telemetry sample of the whole simulation.
type Frame struct {
	Tick       uint64               `json:"tick"`
	Time       float64              `json:"time"`
	Room       string               `json:"room"`
	GameState  string               `json:"game_state"`
	Viewer     ViewerPose           `json:"viewer"`
	Companions []companion.Snapshot `json:"companions"`
	Events     []EventRecord        `json:"events,omitempty"`
}

// ViewerPose is where the viewer stands and looks. Inside is filled in on
// published frames and ignored by MoveViewer.
type ViewerPose struct {
	Position mgl64.Vec3 `json:"position"`
	Forward  mgl64.Vec3 `json:"forward"`
	Inside   bool       `json:"inside"`
}

// EventRecord is a world event flattened for logs and the dashboard.
type EventRecord struct {
	Type   string `json:"type"`
	Entity string `json:"entity,omitempty"`
	Data   any    `json:"data,omitempty"`
}

func recordEvents(events []ecs.Event) []EventRecord {
	if len(events) == 0 {
		return nil
	}
	out := make([]EventRecord, 0, len(events))
	for _, ev := range events {
		rec := EventRecord{Type: ev.Type, Data: ev.Data}
		if ev.Entity.Valid() {
			rec.Entity = ev.Entity.String()
		}
		out = append(out, rec)
	}
	return out
}
