package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/service/engine"
)

// TurnStreamHandler runs one conversation over a websocket. Each text
// frame is a transcribed utterance; a frame arriving while a turn is in
// flight interrupts that turn and starts a new one.
type TurnStreamHandler struct {
	engine *engine.Engine
	log    *zap.Logger
}

func NewTurnStreamHandler(eng *engine.Engine, log *zap.Logger) *TurnStreamHandler {
	return &TurnStreamHandler{
		engine: eng,
		log:    log,
	}
}

type streamError struct {
	Error string `json:"error"`
}

func (h *TurnStreamHandler) HandleTurnStream(c *websocket.Conn) {
	sessionID, _ := c.Locals("session_id").(string)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	send := func(v interface{}) {
		payload, err := json.Marshal(v)
		if err != nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.log.Warn("Websocket write failed", zap.String("session_id", sessionID), zap.Error(err))
		}
	}

	var turns sync.WaitGroup
	defer turns.Wait()

	for {
		messageType, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		if messageType != websocket.TextMessage {
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}

		// Each utterance runs on its own goroutine so the read loop stays
		// free to deliver the next frame. The engine cancels the in-flight
		// turn when a newer one arrives for the same session.
		turns.Add(1)
		go func(text string) {
			defer turns.Done()
			reply, err := h.engine.HandleTurn(ctx, sessionID, text)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				h.log.Warn("Turn failed", zap.String("session_id", sessionID), zap.Error(err))
				send(streamError{Error: "turn failed"})
				return
			}
			send(reply)
		}(text)
	}
}

// SetupTurnRoutes mounts the conversation stream endpoint.
func SetupTurnRoutes(app *fiber.App, handler *TurnStreamHandler) {
	app.Use("/ws/turns", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("session_id", c.Query("session_id"))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/turns", websocket.New(handler.HandleTurnStream))
}
