package system

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/companion/common"
	"github.com/milk9111/companion/ecs"
	"github.com/milk9111/companion/ecs/component"
)

// IsFocused reports whether the viewer is looking at target: the cosine
// between the gaze and the direction to target must be strictly greater than
// tolerance. Degenerate vectors are never focused.
func IsFocused(viewerForward, viewerPos, target mgl64.Vec3, tolerance float64) bool {
	fwd := common.Normalize(viewerForward)
	to := common.Normalize(target.Sub(viewerPos))
	if fwd == (mgl64.Vec3{}) || to == (mgl64.Vec3{}) {
		return false
	}
	return fwd.Dot(to) > tolerance
}

// IsNear reports whether target lies within distance of the viewer.
func IsNear(viewerPos, target mgl64.Vec3, distance float64) bool {
	if distance <= 0 {
		return false
	}
	return common.LenSq(target.Sub(viewerPos)) <= distance*distance
}

// ViewerPose returns the position and gaze of the first viewer entity.
func ViewerPose(w *ecs.World) (pos, forward mgl64.Vec3, ok bool) {
	viewer, found := ecs.First(w, component.ViewerTagComponent.Kind())
	if !found {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	t, found := ecs.Get(w, viewer, component.TransformComponent.Kind())
	if !found {
		return mgl64.Vec3{}, mgl64.Vec3{}, false
	}
	return t.Position, common.Forward(t.Rotation), true
}

// FocusSystem samples gaze focus for every entity with a Focus component and
// interrupts walking once focus has been held long enough with StopOnFocus
// armed. A cut-short path walk fires path_interrupted on fsm.
type FocusSystem struct {
	fsm          *CompanionFSM
	logger       *slog.Logger
	warnedViewer bool
}

func NewFocusSystem(fsm *CompanionFSM, logger *slog.Logger) *FocusSystem {
	if logger == nil {
		logger = slog.Default()
	}
	return &FocusSystem{fsm: fsm, logger: logger}
}

func (s *FocusSystem) Update(w *ecs.World) {
	if s == nil || w == nil {
		return
	}
	dt := w.DeltaTime()

	viewerPos, viewerFwd, hasViewer := ViewerPose(w)
	if !hasViewer && !s.warnedViewer {
		s.warnedViewer = true
		s.logger.Warn("no viewer entity; focus checks report false")
	}
	if hasViewer {
		s.warnedViewer = false
	}

	ecs.ForEach2(w, component.FocusComponent.Kind(), component.TransformComponent.Kind(), func(e ecs.Entity, f *component.Focus, t *component.Transform) {
		f.HasViewer = hasViewer
		if !hasViewer {
			f.Focused = false
			f.Near = false
			f.HeldFor = 0
			return
		}

		f.Focused = IsFocused(viewerFwd, viewerPos, t.Position, f.Tolerance)
		f.Near = IsNear(viewerPos, t.Position, f.NearDistance)
		if !f.Focused {
			f.HeldFor = 0
			return
		}
		f.HeldFor += dt

		if f.StopOnFocus && f.HeldFor >= f.TimeRequired && IsWalking(w, e) {
			if InterruptPath(w, e, s.fsm, "focus_held") {
				s.logger.Debug("walk interrupted by held focus", "entity", e.String(), "held_for", f.HeldFor)
			}
		}
	})
}
