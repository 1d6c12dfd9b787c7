package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/service/engine"
)

type TurnHandler struct {
	engine *engine.Engine
	log    *zap.Logger
}

func NewTurnHandler(eng *engine.Engine, log *zap.Logger) *TurnHandler {
	return &TurnHandler{engine: eng, log: log}
}

type TurnRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// HandleTurn accepts one transcribed utterance and returns the spoken
// reply. An empty session_id starts a new session.
func (h *TurnHandler) HandleTurn(c *fiber.Ctx) error {
	var req TurnRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Text is required"})
	}

	reply, err := h.engine.HandleTurn(c.Context(), req.SessionID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(reply)
}
