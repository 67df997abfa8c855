// Package dashboard serves a small HTTP API and a websocket stream for
// watching and poking companions while the simulation runs.
package dashboard

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/milk9111/companion/companion"
	"github.com/milk9111/companion/orchestrator"
	"github.com/milk9111/companion/sim"
)

// Backend is the simulation as seen by the dashboard. Everything it
// changes goes through the command queue or the runner's pending state;
// the dashboard never touches the world directly.
type Backend interface {
	Latest() sim.Frame
	Send(cmd companion.Command) error
	SetGameState(to orchestrator.GameState) error
	SetRoom(name string) error
	Rooms() []string
	MoveViewer(pose sim.ViewerPose)
	Subscribe(fn func(sim.Frame)) func()
}

type Server struct {
	app     *fiber.App
	backend Backend
	hub     *Hub
	logger  *slog.Logger
	cancel  func()
}

func NewServer(backend Backend, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		backend: backend,
		hub:     NewHub("state", logger),
		logger:  logger.With("component", "dashboard"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Companion Dashboard",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/companions", s.handleListCompanions)
	api.Get("/companions/:id", s.handleGetCompanion)
	api.Post("/companions/:id/init", s.handleInit)
	api.Post("/companions/:id/play", s.handlePlay)
	api.Post("/companions/:id/follow", s.handleFollow)
	api.Post("/companions/:id/stop-following", s.handleSimple(companion.CmdStopFollowing))
	api.Post("/companions/:id/stop-when-focused", s.handleSimple(companion.CmdStopWhenFocused))
	api.Post("/companions/:id/stop-on-focus", s.handleStopOnFocus)
	api.Post("/game-state", s.handleGameState)
	api.Get("/rooms", s.handleRooms)
	api.Post("/room", s.handleSetRoom)
	api.Post("/viewer", s.handleViewer)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/state", websocket.New(s.handleStateWS))

	s.app = app
	return s
}

// Start runs the hub, streams frames to it and blocks serving addr.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.cancel = s.backend.Subscribe(func(f sim.Frame) {
		if err := s.hub.BroadcastJSON(f); err != nil {
			s.logger.Error("encode frame", "err", err)
		}
	})
	s.logger.Info("dashboard listening", "addr", addr)
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
	}
	s.hub.Stop()
	return s.app.Shutdown()
}
