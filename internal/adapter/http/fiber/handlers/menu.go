package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/adapter/queue"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

type MenuHandler struct {
	menu  ports.MenuRepository
	index ports.MenuIndex
	mq    queue.MessageQueue
	log   *zap.Logger
}

func NewMenuHandler(menu ports.MenuRepository, index ports.MenuIndex, mq queue.MessageQueue, log *zap.Logger) *MenuHandler {
	return &MenuHandler{menu: menu, index: index, mq: mq, log: log}
}

func (h *MenuHandler) ListItems(c *fiber.Ctx) error {
	items, err := h.menu.FindAll(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"items":         items,
		"index_version": h.index.Version(),
	})
}

// Reload re-embeds the menu and publishes a fresh retrieval snapshot.
// Staff call this after editing items; in-flight turns keep the previous
// snapshot.
func (h *MenuHandler) Reload(c *fiber.Ctx) error {
	start := time.Now()
	if err := h.index.Rebuild(c.Context()); err != nil {
		h.log.Error("Menu index rebuild failed", zap.Error(err))
		return err
	}
	h.log.Info("Menu index rebuilt",
		zap.Int64("version", h.index.Version()),
		zap.Duration("took", time.Since(start)),
	)
	_ = queue.PublishJSON(h.mq, queue.SubjectMenuUpdated, map[string]any{
		"version": h.index.Version(),
	})
	return c.JSON(fiber.Map{"index_version": h.index.Version()})
}
