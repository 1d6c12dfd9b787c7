package router

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/mocks"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func TestClassify_ToolCallsBecomeProposals(t *testing.T) {
	// Arrange
	model := &mocks.MockLanguageModel{
		ChatWithToolsFunc: func(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
			return &ports.ModelReply{
				ToolCalls: []ports.ToolCall{
					{Name: "add_item", Arguments: map[string]any{"item": "Phở bò", "quantity": float64(2)}},
					{Name: "add_item", Arguments: map[string]any{"item": "Cà phê sữa đá"}},
				},
			}, nil
		},
	}
	router := NewRouter(model, 8, newTestLogger())

	// Act
	intent, err := router.Classify(context.Background(), nil, "cho anh hai phở bò với một cà phê sữa đá")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.Category != domain.IntentActionRequest {
		t.Fatalf("expected action_request, got %s", intent.Category)
	}
	if len(intent.Proposals) != 2 {
		t.Fatalf("expected 2 proposals, got %d", len(intent.Proposals))
	}
	if intent.Proposals[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", intent.Proposals[0].Quantity)
	}
	if intent.Proposals[1].Quantity != 1 {
		t.Errorf("expected defaulted quantity 1, got %d", intent.Proposals[1].Quantity)
	}
	if intent.Proposals[1].ItemRef != "Cà phê sữa đá" {
		t.Errorf("unexpected item ref %q", intent.Proposals[1].ItemRef)
	}
}

func TestClassify_UnknownToolFailsClosed(t *testing.T) {
	// Arrange
	model := &mocks.MockLanguageModel{
		ChatWithToolsFunc: func(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
			return &ports.ModelReply{
				ToolCalls: []ports.ToolCall{
					{Name: "refund_order", Arguments: map[string]any{}},
				},
			}, nil
		},
	}
	router := NewRouter(model, 8, newTestLogger())

	// Act
	intent, err := router.Classify(context.Background(), nil, "hoàn tiền cho anh")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.Category != domain.IntentGeneralChat {
		t.Errorf("expected fail-closed general_chat, got %s", intent.Category)
	}
	if intent.Confidence != 0 {
		t.Errorf("expected confidence 0, got %v", intent.Confidence)
	}
	if len(intent.Proposals) != 0 {
		t.Errorf("expected no proposals, got %d", len(intent.Proposals))
	}
}

func TestClassify_JSONClassification(t *testing.T) {
	// Arrange
	model := &mocks.MockLanguageModel{
		ChatWithToolsFunc: func(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
			return &ports.ModelReply{Content: "```json\n{\"category\": \"information_query\", \"confidence\": 0.85}\n```"}, nil
		},
	}
	router := NewRouter(model, 8, newTestLogger())

	// Act
	intent, err := router.Classify(context.Background(), nil, "phở bò giá bao nhiêu?")

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if intent.Category != domain.IntentInformationQuery {
		t.Errorf("expected information_query, got %s", intent.Category)
	}
	if intent.Confidence != 0.85 {
		t.Errorf("expected confidence 0.85, got %v", intent.Confidence)
	}
}

func TestClassify_MalformedOutputFailsClosed(t *testing.T) {
	cases := []string{
		"xin chào quý khách",
		"{\"category\": \"place_order\"}",
		"{\"category\": \"action_request\", \"confidence\": 0.9}",
		"",
	}

	for _, content := range cases {
		model := &mocks.MockLanguageModel{
			ChatWithToolsFunc: func(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
				return &ports.ModelReply{Content: content}, nil
			},
		}
		router := NewRouter(model, 8, newTestLogger())

		intent, err := router.Classify(context.Background(), nil, "alo alo")
		if err != nil {
			t.Fatalf("content %q: expected no error, got %v", content, err)
		}
		if intent.Category != domain.IntentGeneralChat || intent.Confidence != 0 {
			t.Errorf("content %q: expected fail-closed intent, got %s/%v", content, intent.Category, intent.Confidence)
		}
	}
}

func TestClassify_ModelErrorBubblesUp(t *testing.T) {
	// Arrange
	model := &mocks.MockLanguageModel{
		ChatWithToolsFunc: func(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
			return nil, domain.ErrEngineUnavailable
		},
	}
	router := NewRouter(model, 8, newTestLogger())

	// Act
	_, err := router.Classify(context.Background(), nil, "cho anh một phở bò")

	// Assert
	if !errors.Is(err, domain.ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestClassify_HistoryWindowBounded(t *testing.T) {
	// Arrange
	var gotHistory []ports.ChatMessage
	model := &mocks.MockLanguageModel{
		ChatWithToolsFunc: func(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
			gotHistory = history
			return &ports.ModelReply{Content: "{\"category\": \"general_chat\", \"confidence\": 0.5}"}, nil
		},
	}
	router := NewRouter(model, 2, newTestLogger())

	turns := make([]domain.Turn, 5)
	for i := range turns {
		turns[i] = domain.Turn{Seq: i + 1, UserText: "câu hỏi", SystemText: "câu trả lời"}
	}

	// Act
	if _, err := router.Classify(context.Background(), turns, "xin chào"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// Assert: 2 turns, each contributing a user and an assistant message
	if len(gotHistory) != 4 {
		t.Errorf("expected 4 history messages, got %d", len(gotHistory))
	}
}
