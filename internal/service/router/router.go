package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/observability/telemetry"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

// classifierPrompt instructs the model to either call one of the order
// tools or answer with a bare classification object. Anything else fails
// closed to general chat.
const classifierPrompt = `Bạn là "Linh", nhân viên phục vụ tại nhà hàng Việt Nam, đang phân loại câu nói của khách.

Nếu khách muốn thao tác với đơn hàng (thêm món, bớt món, sửa món, xác nhận, gửi đơn, thanh toán, hủy đơn), hãy gọi tool tương ứng. Một câu có thể cần nhiều tool theo đúng thứ tự khách nói.

Nếu không, trả về duy nhất một object JSON, không kèm chữ nào khác:
{"category": "information_query" | "general_chat", "confidence": số từ 0 đến 1}

- "information_query": khách hỏi về món ăn, giá cả, nguyên liệu, thực đơn.
- "general_chat": chào hỏi, trò chuyện, mọi trường hợp còn lại.`

var toolDefinitions = []ports.ToolDefinition{
	{
		Name:        string(domain.ActionAddItem),
		Description: "Thêm món vào đơn hàng khi khách muốn gọi món",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item":      map[string]any{"type": "string", "description": "Tên món ăn"},
				"quantity":  map[string]any{"type": "number", "description": "Số lượng", "default": 1},
				"modifiers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "Yêu cầu riêng, ví dụ: không hành"},
			},
			"required": []string{"item"},
		},
	},
	{
		Name:        string(domain.ActionRemoveItem),
		Description: "Bỏ một món ra khỏi đơn hàng",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item": map[string]any{"type": "string", "description": "Tên món ăn"},
			},
			"required": []string{"item"},
		},
	},
	{
		Name:        string(domain.ActionModifyItem),
		Description: "Đổi số lượng hoặc yêu cầu riêng của một món đã gọi",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item":      map[string]any{"type": "string", "description": "Tên món ăn"},
				"quantity":  map[string]any{"type": "number", "description": "Số lượng mới"},
				"modifiers": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
			"required": []string{"item"},
		},
	},
	{
		Name:        string(domain.ActionConfirmOrder),
		Description: "Khách xác nhận đơn hàng đúng và đầy đủ",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}},
	},
	{
		Name:        string(domain.ActionSubmitOrder),
		Description: "Gửi đơn hàng xuống bếp sau khi khách đã xác nhận",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}},
	},
	{
		Name:        string(domain.ActionInitiatePayment),
		Description: "Thanh toán đơn hàng đã gửi",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}},
	},
	{
		Name:        string(domain.ActionCancelOrder),
		Description: "Hủy đơn hàng theo yêu cầu của khách",
		Parameters:  map[string]any{"type": "object", "properties": map[string]any{}, "required": []string{}},
	},
}

// Router classifies utterances into the closed intent set and extracts
// schema-constrained action proposals. It is read-only: no order state is
// touched here.
type Router struct {
	model         ports.LanguageModel
	historyWindow int
	log           *zap.Logger
}

func NewRouter(model ports.LanguageModel, historyWindow int, log *zap.Logger) ports.IntentRouter {
	return &Router{
		model:         model,
		historyWindow: historyWindow,
		log:           log,
	}
}

func (r *Router) Classify(ctx context.Context, history []domain.Turn, text string) (*domain.Intent, error) {
	start := time.Now()
	reply, err := r.model.ChatWithTools(ctx, classifierPrompt, historyMessages(history, r.historyWindow), text, toolDefinitions)
	telemetry.ModelLatency.WithLabelValues("classify").Observe(time.Since(start).Seconds())
	if err != nil {
		// Model transport failures bubble up for the engine's retry policy.
		return nil, err
	}

	if len(reply.ToolCalls) > 0 {
		proposals, err := r.extractProposals(reply.ToolCalls)
		if err != nil {
			// The engine must never see an out-of-vocabulary proposal.
			r.log.Warn("Discarding malformed action proposal", zap.Error(err))
			return failClosed(), nil
		}
		return &domain.Intent{
			Category:   domain.IntentActionRequest,
			Confidence: 0.9,
			Proposals:  proposals,
		}, nil
	}

	return r.parseClassification(reply.Content), nil
}

func (r *Router) extractProposals(calls []ports.ToolCall) ([]domain.ActionProposal, error) {
	proposals := make([]domain.ActionProposal, 0, len(calls))
	for _, call := range calls {
		name, err := domain.ParseActionName(call.Name)
		if err != nil {
			return nil, err
		}
		p := domain.ActionProposal{
			Name:      name,
			ItemRef:   stringArg(call.Arguments, "item"),
			Quantity:  intArg(call.Arguments, "quantity"),
			Modifiers: stringSliceArg(call.Arguments, "modifiers"),
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

type classification struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

func (r *Router) parseClassification(content string) *domain.Intent {
	var c classification
	if err := json.Unmarshal([]byte(stripFences(content)), &c); err != nil {
		r.log.Warn("Classification output not parseable, failing closed",
			zap.String("content", content))
		return failClosed()
	}

	category, err := domain.ParseIntentCategory(c.Category)
	if err != nil || category == domain.IntentActionRequest {
		// action_request without tool calls has no proposals to act on
		return failClosed()
	}

	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}

	return &domain.Intent{Category: category, Confidence: c.Confidence}
}

func failClosed() *domain.Intent {
	return &domain.Intent{Category: domain.IntentGeneralChat, Confidence: 0}
}

func historyMessages(history []domain.Turn, window int) []ports.ChatMessage {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	msgs := make([]ports.ChatMessage, 0, len(history)*2)
	for _, t := range history {
		msgs = append(msgs, ports.ChatMessage{Role: "user", Content: t.UserText})
		if t.SystemText != "" {
			msgs = append(msgs, ports.ChatMessage{Role: "assistant", Content: t.SystemText})
		}
	}
	return msgs
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		var n int
		if _, err := fmt.Sscan(v, &n); err == nil {
			return n
		}
	}
	return 0
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
