package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/ports"
	"github.com/seu-repo/ai-waiter/internal/service/engine"
)

type SessionHandler struct {
	engine   *engine.Engine
	sessions ports.SessionRepository
	orders   ports.OrderRepository
	log      *zap.Logger
}

func NewSessionHandler(eng *engine.Engine, sessions ports.SessionRepository, orders ports.OrderRepository, log *zap.Logger) *SessionHandler {
	return &SessionHandler{engine: eng, sessions: sessions, orders: orders, log: log}
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	session, err := h.sessions.FindByID(c.Context(), c.Params("id"))
	if err != nil || session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}
	return c.JSON(session)
}

// GetOrder returns the session's active order, for the staff dashboard.
func (h *SessionHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orders.FindActiveBySessionID(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	if order == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active order"})
	}
	return c.JSON(order)
}

func (h *SessionHandler) CloseSession(c *fiber.Ctx) error {
	if err := h.engine.CloseSession(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
