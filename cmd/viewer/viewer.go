package main

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"golang.org/x/image/colornames"

	"github.com/milk9111/companion/boundary"
	"github.com/milk9111/companion/common"
	"github.com/milk9111/companion/companion"
	"github.com/milk9111/companion/orchestrator"
	"github.com/milk9111/companion/sim"
)

const (
	screenWidth  = 960
	screenHeight = 720
	margin       = 64

	walkSpeed = 1.5         // units per second
	turnSpeed = math.Pi / 2 // radians per second
	gazeLen   = 1.0
)

var gameStateKeys = []struct {
	key   ebiten.Key
	state orchestrator.GameState
}{
	{ebiten.KeyDigit1, orchestrator.StateMenu},
	{ebiten.KeyDigit2, orchestrator.StateTutorial},
	{ebiten.KeyDigit3, orchestrator.StatePlaying},
	{ebiten.KeyDigit4, orchestrator.StatePaused},
	{ebiten.KeyDigit5, orchestrator.StateGameOver},
	{ebiten.KeyDigit6, orchestrator.StateWon},
}

var stateColors = map[string]color.Color{
	"NONE":    colornames.Gray,
	"INIT":    colornames.Orange,
	"WALKING": colornames.Lightgreen,
	"READY":   colornames.Gold,
}

// viewer is a top-down debug view of the simulation. The player moves the
// viewer entity and sends companion commands from the keyboard.
type viewer struct {
	runner *sim.Runner
	frame  sim.Frame
	pose   sim.ViewerPose
	yaw    float64

	rooms       []string
	room        int
	stopOnFocus bool
	status      string
}

func newViewer(r *sim.Runner) *viewer {
	f := r.Frame()
	v := &viewer{
		runner: r,
		frame:  f,
		pose:   f.Viewer,
		yaw:    math.Atan2(f.Viewer.Forward.X(), f.Viewer.Forward.Z()),
		rooms:  r.Rooms(),
	}
	for i, name := range v.rooms {
		if name == f.Room {
			v.room = i
		}
	}
	return v
}

func (v *viewer) Update() error {
	dt := 1 / float64(ebiten.TPS())
	v.moveViewer(dt)
	v.handleCommands()
	v.runner.Step(dt)
	v.frame = v.runner.Frame()
	return nil
}

func (v *viewer) moveViewer(dt float64) {
	moved := false
	if ebiten.IsKeyPressed(ebiten.KeyQ) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft) {
		v.yaw += turnSpeed * dt
		moved = true
	}
	if ebiten.IsKeyPressed(ebiten.KeyE) || ebiten.IsKeyPressed(ebiten.KeyArrowRight) {
		v.yaw -= turnSpeed * dt
		moved = true
	}

	fwd := common.Forward(common.YawRotation(v.yaw))
	right := fwd.Cross(common.Up)
	var step mgl64.Vec3
	if ebiten.IsKeyPressed(ebiten.KeyW) || ebiten.IsKeyPressed(ebiten.KeyArrowUp) {
		step = step.Add(fwd)
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) || ebiten.IsKeyPressed(ebiten.KeyArrowDown) {
		step = step.Sub(fwd)
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		step = step.Add(right)
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		step = step.Sub(right)
	}
	if step != (mgl64.Vec3{}) {
		v.pose.Position = v.pose.Position.Add(common.Normalize(step).Mul(walkSpeed * dt))
		moved = true
	}
	if moved {
		v.pose.Forward = fwd
		v.runner.MoveViewer(v.pose)
	}
}

func (v *viewer) handleCommands() {
	send := func(cmd companion.Command) {
		if err := v.runner.Send(cmd); err != nil {
			v.status = err.Error()
			return
		}
		v.status = string(cmd.Kind)
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyI):
		send(companion.Command{Kind: companion.CmdInit})
	case inpututil.IsKeyJustPressed(ebiten.KeyO):
		send(companion.Command{Kind: companion.CmdInit, Force: true})
	case inpututil.IsKeyJustPressed(ebiten.KeyK):
		send(companion.Command{Kind: companion.CmdPlay, Animation: "wave"})
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		send(companion.Command{Kind: companion.CmdFollowViewer})
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		center := v.roomBounds().Center()
		send(companion.Command{Kind: companion.CmdFollowTarget, Destination: mgl64.Vec3{center.X, 0, center.Y}})
	case inpututil.IsKeyJustPressed(ebiten.KeyJ):
		send(companion.Command{Kind: companion.CmdStopFollowing})
	case inpututil.IsKeyJustPressed(ebiten.KeyH):
		send(companion.Command{Kind: companion.CmdStopWhenFocused})
	case inpututil.IsKeyJustPressed(ebiten.KeyG):
		v.stopOnFocus = !v.stopOnFocus
		send(companion.Command{Kind: companion.CmdStopOnFocus, Enabled: v.stopOnFocus})
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		if len(v.rooms) == 0 {
			return
		}
		v.room = (v.room + 1) % len(v.rooms)
		if err := v.runner.SetRoom(v.rooms[v.room]); err != nil {
			v.status = err.Error()
			return
		}
		v.status = "room " + v.rooms[v.room]
	}

	for _, k := range gameStateKeys {
		if inpututil.IsKeyJustPressed(k.key) {
			if err := v.runner.SetGameState(k.state); err != nil {
				v.status = err.Error()
				continue
			}
			v.status = "game state " + string(k.state)
		}
	}
}

func (v *viewer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{0x14, 0x16, 0x1c, 0xff})
	proj := newProjection(v.roomBounds(), screenWidth, screenHeight)

	segs := v.runner.Boundary()
	facing := boundary.FacingSegment(segs, v.frame.Viewer.Position, v.frame.Viewer.Forward)
	for _, seg := range segs {
		clr := colornames.Lightgrey
		if seg == facing {
			clr = colornames.Khaki
		}
		x0, y0 := proj.point(seg.V1)
		x1, y1 := proj.point(seg.V2)
		vector.StrokeLine(screen, x0, y0, x1, y1, 2, clr, true)
	}

	for _, c := range v.frame.Companions {
		if !c.Exists {
			continue
		}
		drawPath(screen, proj, c)
		drawCompanion(screen, proj, c)
	}
	drawViewer(screen, proj, v.frame.Viewer)

	ebitenutil.DebugPrint(screen, v.hud())
}

func (v *viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func (v *viewer) roomBounds() cp.BB {
	bb := v.runner.Bounds()
	if bb.R-bb.L <= 0 && bb.T-bb.B <= 0 {
		return cp.BB{L: -1, B: -1, R: 1, T: 1}
	}
	return bb
}

func (v *viewer) hud() string {
	var b strings.Builder
	f := v.frame
	fmt.Fprintf(&b, "t=%.2fs tick=%d room=%s game=%s viewer_inside=%t\n", f.Time, f.Tick, f.Room, f.GameState, f.Viewer.Inside)
	for i, c := range f.Companions {
		fmt.Fprintf(&b, "#%d %s %s anim=%s walking=%t focused=%t near=%t\n",
			i, c.State, c.Mode, c.Animation, c.Walking, c.Focused, c.Near)
	}
	b.WriteString("\nWASD/arrows move  Q/E turn  I init  O force init  K wave\n")
	b.WriteString("L follow viewer  T follow center  J stop following  H stop when focused\n")
	fmt.Fprintf(&b, "G stop on focus (%t)  R next room  1-6 game states\n", v.stopOnFocus)
	if v.status != "" {
		b.WriteString("> " + v.status + "\n")
	}
	return b.String()
}

// projection maps the floor plane onto the screen with -Z pointing up.
type projection struct {
	scale, offX, offY float64
	bb                cp.BB
}

func newProjection(bb cp.BB, w, h int) projection {
	width := math.Max(bb.R-bb.L, 1e-3)
	depth := math.Max(bb.T-bb.B, 1e-3)
	scale := math.Min(float64(w-2*margin)/width, float64(h-2*margin)/depth)
	return projection{
		scale: scale,
		offX:  (float64(w) - width*scale) / 2,
		offY:  (float64(h) - depth*scale) / 2,
		bb:    bb,
	}
}

func (p projection) point(v mgl64.Vec3) (float32, float32) {
	return float32(p.offX + (v.X()-p.bb.L)*p.scale), float32(p.offY + (v.Z()-p.bb.B)*p.scale)
}

func drawPath(screen *ebiten.Image, proj projection, c companion.Snapshot) {
	if len(c.Waypoints) == 0 {
		return
	}
	prevX, prevY := proj.point(c.Position)
	for i := c.WaypointIndex; i < len(c.Waypoints); i++ {
		x, y := proj.point(c.Waypoints[i])
		vector.StrokeLine(screen, prevX, prevY, x, y, 1, colornames.Steelblue, true)
		vector.StrokeRect(screen, x-3, y-3, 6, 6, 1, colornames.Steelblue, false)
		prevX, prevY = x, y
	}
}

func drawCompanion(screen *ebiten.Image, proj projection, c companion.Snapshot) {
	clr, ok := stateColors[c.State]
	if !ok {
		clr = colornames.White
	}
	x, y := proj.point(c.Position)
	vector.FillRect(screen, x-6, y-6, 12, 12, clr, false)
	if c.Focused {
		vector.StrokeRect(screen, x-9, y-9, 18, 18, 2, colornames.Red, false)
	}
	hx, hy := proj.point(c.Position.Add(c.Forward.Mul(0.3)))
	vector.StrokeLine(screen, x, y, hx, hy, 2, clr, true)
}

func drawViewer(screen *ebiten.Image, proj projection, pose sim.ViewerPose) {
	x, y := proj.point(pose.Position)
	vector.FillRect(screen, x-5, y-5, 10, 10, colornames.Dodgerblue, false)
	gx, gy := proj.point(pose.Position.Add(common.Normalize(common.Flatten(pose.Forward)).Mul(gazeLen)))
	vector.StrokeLine(screen, x, y, gx, gy, 1, colornames.Lightskyblue, true)
}
