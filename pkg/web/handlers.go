package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facedrive/pkg/hub"
)

// Commands accepted by POST /api/commands/:name.
var knownCommands = map[string]string{
	"recalibrate":      "recapture the neutral pose",
	"pause":            "pause control and release all keys",
	"resume":           "resume control",
	"cycle-mode":       "switch to the next control mode",
	"sensitivity-up":   "increase sensitivity by 10%",
	"sensitivity-down": "decrease sensitivity by 10%",
	"quit":             "end the session",
}

// handleStatus returns the current session status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return c.JSON(s.status)
}

// handleConfig returns the active configuration snapshot.
func (s *Server) handleConfig(c *fiber.Ctx) error {
	if s.ConfigSource == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "config source not wired",
		})
	}
	return c.JSON(s.ConfigSource())
}

// handleCommand forwards a dashboard command to the drive loop.
func (s *Server) handleCommand(c *fiber.Ctx) error {
	name := c.Params("name")
	if _, ok := knownCommands[name]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":    "unknown command",
			"commands": knownCommands,
		})
	}
	if s.OnCommand == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "command handler not wired",
		})
	}
	if err := s.OnCommand(name); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"command": name, "ok": true})
}

// handleTelemetryWS streams per-tick telemetry frames.
func (s *Server) handleTelemetryWS(c *websocket.Conn) {
	hub.NewClient(s.telemetryHub, c).Run()
}

// handleStatusWS streams status snapshots, sending the current one first.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.statusMu.RLock()
	c.WriteJSON(s.status)
	s.statusMu.RUnlock()

	hub.NewClient(s.statusHub, c).Run()
}
