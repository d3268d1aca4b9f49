// Package web provides the local control dashboard: a small fiber server
// with a REST surface for commands and websocket feeds for live telemetry.
package web

import (
	"log/slog"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facedrive/internal/config"
	"github.com/teslashibe/go-facedrive/internal/log"
	"github.com/teslashibe/go-facedrive/pkg/hub"
)

// Status is the dashboard view of the drive session.
type Status struct {
	SessionID     string   `json:"session_id"`
	State         string   `json:"state"` // active, signal-lost, manual-pause, calibrating
	Mode          string   `json:"mode"`
	PoseConnected bool     `json:"pose_connected"`
	Calibrating   bool     `json:"calibrating"`
	HeldKeys      []string `json:"held_keys"`
	Steer         float64  `json:"steer"`
	Throttle      float64  `json:"throttle"`
	SensitivityH  float64  `json:"sensitivity_h"`
	SensitivityV  float64  `json:"sensitivity_v"`
	TicksTotal    uint64   `json:"ticks_total"`

	TremorLevel    string  `json:"tremor_level"`
	FatigueScore   float64 `json:"fatigue_score"`
	BreakSuggested bool    `json:"break_suggested"`
}

// Server is the dashboard server. Command handling is delegated to the
// drive loop through OnCommand; the server itself never touches loop state.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	status   Status
	statusMu sync.RWMutex

	telemetryHub *hub.Hub
	statusHub    *hub.Hub

	// OnCommand is invoked for POST /api/commands/:name. It must be safe to
	// call from fiber's handler goroutines.
	OnCommand func(name string) error

	// ConfigSource returns the active configuration snapshot.
	ConfigSource func() config.SessionConfig
}

// NewServer creates the dashboard server.
func NewServer(port string) *Server {
	s := &Server{
		port:         port,
		logger:       log.Component("web"),
		telemetryHub: hub.New("telemetry"),
		statusHub:    hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "facedrive dashboard",
		DisableStartupMessage: true,
	})

	// CORS for local development.
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/config", s.handleConfig)
	api.Post("/commands/:name", s.handleCommand)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/telemetry", websocket.New(s.handleTelemetryWS))
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the hubs and blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("dashboard listening", "addr", "http://localhost:"+s.port)

	go s.telemetryHub.Run()
	go s.statusHub.Run()

	return s.app.Listen(":" + s.port)
}

// StartAsync starts the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("dashboard server stopped", "error", err)
		}
	}()
}

// UpdateStatus mutates the status snapshot and broadcasts it to status
// subscribers.
func (s *Server) UpdateStatus(update func(*Status)) {
	s.statusMu.Lock()
	update(&s.status)
	status := s.status
	s.statusMu.Unlock()

	s.statusHub.BroadcastJSON(status)
}

// Status returns the current status snapshot.
func (s *Server) Status() Status {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

// PublishTelemetry broadcasts one per-tick telemetry frame. Never blocks.
func (s *Server) PublishTelemetry(v any) {
	s.telemetryHub.BroadcastJSON(v)
}

// TelemetryClients returns the number of connected telemetry subscribers,
// letting the loop skip JSON encoding when nobody is watching.
func (s *Server) TelemetryClients() int {
	return s.telemetryHub.ClientCount()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
