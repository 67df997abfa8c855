package dashboard

import (
	"encoding/json"
	"errors"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/milk9111/companion/companion"
	"github.com/milk9111/companion/orchestrator"
	"github.com/milk9111/companion/sim"
)

// allCompanions addresses a command to every companion.
const allCompanions = "all"

type StatusResponse struct {
	Tick       uint64  `json:"tick"`
	Time       float64 `json:"time"`
	Room       string  `json:"room"`
	GameState  string  `json:"game_state"`
	Companions int     `json:"companions"`
	Clients    int     `json:"clients"`
}

type InitRequest struct {
	Force bool `json:"force"`
}

type PlayRequest struct {
	Animation string `json:"animation"`
}

// FollowRequest chases Destination, or the viewer when Viewer is set.
type FollowRequest struct {
	Destination *mgl64.Vec3 `json:"destination"`
	Viewer      bool        `json:"viewer"`
}

type StopOnFocusRequest struct {
	Enabled bool `json:"enabled"`
}

type GameStateRequest struct {
	To string `json:"to"`
}

type RoomRequest struct {
	Name string `json:"name"`
}

func errorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	f := s.backend.Latest()
	return c.JSON(StatusResponse{
		Tick:       f.Tick,
		Time:       f.Time,
		Room:       f.Room,
		GameState:  f.GameState,
		Companions: len(f.Companions),
		Clients:    s.hub.ClientCount(),
	})
}

func (s *Server) handleListCompanions(c *fiber.Ctx) error {
	snaps := s.backend.Latest().Companions
	if snaps == nil {
		snaps = []companion.Snapshot{}
	}
	return c.JSON(snaps)
}

func (s *Server) handleGetCompanion(c *fiber.Ctx) error {
	id := c.Params("id")
	for _, snap := range s.backend.Latest().Companions {
		if snap.ID == id {
			return c.JSON(snap)
		}
	}
	return errorJSON(c, fiber.StatusNotFound, companion.ErrUnknownCompanion)
}

// target parses the :id route param; "all" maps to every companion.
func target(c *fiber.Ctx) (uuid.UUID, error) {
	raw := c.Params("id")
	if raw == allCompanions {
		return uuid.Nil, nil
	}
	return uuid.Parse(raw)
}

// bind decodes an optional JSON body into v.
func bind(c *fiber.Ctx, v any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return json.Unmarshal(c.Body(), v)
}

func (s *Server) send(c *fiber.Ctx, cmd companion.Command) error {
	if err := s.backend.Send(cmd); err != nil {
		if errors.Is(err, companion.ErrQueueFull) {
			return errorJSON(c, fiber.StatusServiceUnavailable, err)
		}
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(cmd)
}

func (s *Server) command(c *fiber.Ctx, body any, build func(id uuid.UUID) companion.Command) error {
	id, err := target(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if body != nil {
		if err := bind(c, body); err != nil {
			return errorJSON(c, fiber.StatusBadRequest, err)
		}
	}
	return s.send(c, build(id))
}

func (s *Server) handleInit(c *fiber.Ctx) error {
	var req InitRequest
	return s.command(c, &req, func(id uuid.UUID) companion.Command {
		return companion.Command{Kind: companion.CmdInit, Target: id, Force: req.Force}
	})
}

func (s *Server) handlePlay(c *fiber.Ctx) error {
	var req PlayRequest
	id, err := target(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if err := bind(c, &req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if req.Animation == "" {
		return errorJSON(c, fiber.StatusBadRequest, errors.New("animation is required"))
	}
	return s.send(c, companion.Command{Kind: companion.CmdPlay, Target: id, Animation: req.Animation})
}

func (s *Server) handleFollow(c *fiber.Ctx) error {
	var req FollowRequest
	id, err := target(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if err := bind(c, &req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	switch {
	case req.Viewer:
		return s.send(c, companion.Command{Kind: companion.CmdFollowViewer, Target: id})
	case req.Destination != nil:
		return s.send(c, companion.Command{Kind: companion.CmdFollowTarget, Target: id, Destination: *req.Destination})
	default:
		return errorJSON(c, fiber.StatusBadRequest, errors.New("destination or viewer is required"))
	}
}

func (s *Server) handleSimple(kind companion.CommandKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return s.command(c, nil, func(id uuid.UUID) companion.Command {
			return companion.Command{Kind: kind, Target: id}
		})
	}
}

func (s *Server) handleStopOnFocus(c *fiber.Ctx) error {
	var req StopOnFocusRequest
	return s.command(c, &req, func(id uuid.UUID) companion.Command {
		return companion.Command{Kind: companion.CmdStopOnFocus, Target: id, Enabled: req.Enabled}
	})
}

func (s *Server) handleGameState(c *fiber.Ctx) error {
	var req GameStateRequest
	if err := bind(c, &req); err != nil || req.To == "" {
		return errorJSON(c, fiber.StatusBadRequest, errors.New("to is required"))
	}
	if err := s.backend.SetGameState(orchestrator.GameState(req.To)); err != nil {
		return errorJSON(c, fiber.StatusUnprocessableEntity, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"game_state": req.To})
}

func (s *Server) handleRooms(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"current": s.backend.Latest().Room,
		"rooms":   s.backend.Rooms(),
	})
}

func (s *Server) handleSetRoom(c *fiber.Ctx) error {
	var req RoomRequest
	if err := bind(c, &req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	if err := s.backend.SetRoom(req.Name); err != nil {
		if errors.Is(err, sim.ErrUnknownRoom) {
			return errorJSON(c, fiber.StatusNotFound, err)
		}
		return errorJSON(c, fiber.StatusInternalServerError, err)
	}
	return c.JSON(fiber.Map{"room": req.Name})
}

func (s *Server) handleViewer(c *fiber.Ctx) error {
	var pose sim.ViewerPose
	if err := bind(c, &pose); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err)
	}
	s.backend.MoveViewer(pose)
	return c.Status(fiber.StatusAccepted).JSON(pose)
}

// handleStateWS streams frames, starting with the latest one.
func (s *Server) handleStateWS(conn *websocket.Conn) {
	initial, err := json.Marshal(s.backend.Latest())
	if err != nil {
		initial = nil
	}
	NewClient(s.hub, conn, initial).Run()
}
