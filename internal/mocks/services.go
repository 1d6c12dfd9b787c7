package mocks

import (
	"context"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

// MockLanguageModel is a mock implementation of LanguageModel interface
type MockLanguageModel struct {
	ChatFunc          func(ctx context.Context, system string, history []ports.ChatMessage, user string) (string, error)
	ChatWithToolsFunc func(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error)
}

func (m *MockLanguageModel) Chat(ctx context.Context, system string, history []ports.ChatMessage, user string) (string, error) {
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, system, history, user)
	}
	return "", nil
}

func (m *MockLanguageModel) ChatWithTools(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
	if m.ChatWithToolsFunc != nil {
		return m.ChatWithToolsFunc(ctx, system, history, user, tools)
	}
	return &ports.ModelReply{}, nil
}

// MockEmbedder is a mock implementation of Embedder interface
type MockEmbedder struct {
	EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, texts)
	}
	return make([][]float32, len(texts)), nil
}

// MockMenuIndex is a mock implementation of MenuIndex interface
type MockMenuIndex struct {
	SearchFunc  func(ctx context.Context, query string, topK int) ([]domain.ScoredItem, error)
	ResolveFunc func(ctx context.Context, ref string) (*domain.MenuItem, error)
	RebuildFunc func(ctx context.Context) error
	VersionFunc func() int64
}

func (m *MockMenuIndex) Search(ctx context.Context, query string, topK int) ([]domain.ScoredItem, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, topK)
	}
	return []domain.ScoredItem{}, nil
}

func (m *MockMenuIndex) Resolve(ctx context.Context, ref string) (*domain.MenuItem, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, ref)
	}
	return nil, domain.ErrUnknownMenuItem
}

func (m *MockMenuIndex) Rebuild(ctx context.Context) error {
	if m.RebuildFunc != nil {
		return m.RebuildFunc(ctx)
	}
	return nil
}

func (m *MockMenuIndex) Version() int64 {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return 0
}

// MockOrderingGateway is a mock implementation of OrderingGateway interface
type MockOrderingGateway struct {
	CreateOrderFunc func(ctx context.Context, order *domain.Order) (string, string, error)
	SubmitOrderFunc func(ctx context.Context, externalID, idempotencyKey string) (string, error)
	CancelOrderFunc func(ctx context.Context, externalID string) (string, error)
}

func (m *MockOrderingGateway) CreateOrder(ctx context.Context, order *domain.Order) (string, string, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, order)
	}
	return "ext-1", "corr-1", nil
}

func (m *MockOrderingGateway) SubmitOrder(ctx context.Context, externalID, idempotencyKey string) (string, error) {
	if m.SubmitOrderFunc != nil {
		return m.SubmitOrderFunc(ctx, externalID, idempotencyKey)
	}
	return "corr-1", nil
}

func (m *MockOrderingGateway) CancelOrder(ctx context.Context, externalID string) (string, error) {
	if m.CancelOrderFunc != nil {
		return m.CancelOrderFunc(ctx, externalID)
	}
	return "corr-1", nil
}

// MockPaymentGateway is a mock implementation of PaymentGateway interface
type MockPaymentGateway struct {
	ChargeFunc func(ctx context.Context, idempotencyKey string, amount float64, currency string, metadata map[string]string) (string, error)
}

func (m *MockPaymentGateway) Charge(ctx context.Context, idempotencyKey string, amount float64, currency string, metadata map[string]string) (string, error) {
	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, idempotencyKey, amount, currency, metadata)
	}
	return "pi-1", nil
}

// MockIntentRouter is a mock implementation of IntentRouter interface
type MockIntentRouter struct {
	ClassifyFunc func(ctx context.Context, history []domain.Turn, text string) (*domain.Intent, error)
}

func (m *MockIntentRouter) Classify(ctx context.Context, history []domain.Turn, text string) (*domain.Intent, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, history, text)
	}
	return &domain.Intent{Category: domain.IntentGeneralChat}, nil
}

// MockActionExecutor is a mock implementation of ActionExecutor interface
type MockActionExecutor struct {
	ExecuteFunc func(ctx context.Context, session *domain.Session, order *domain.Order, proposal domain.ActionProposal, turnSeq, step int) (*domain.Order, *domain.ActionResult, error)
}

func (m *MockActionExecutor) Execute(ctx context.Context, session *domain.Session, order *domain.Order, proposal domain.ActionProposal, turnSeq, step int) (*domain.Order, *domain.ActionResult, error) {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, session, order, proposal, turnSeq, step)
	}
	return order, &domain.ActionResult{Proposal: proposal}, nil
}

// MockComposer is a mock implementation of Composer interface
type MockComposer struct {
	ComposeFunc func(ctx context.Context, intent *domain.Intent, branch ports.BranchResult, history []domain.Turn, userText string) (string, error)
	PersistFunc func(ctx context.Context, session *domain.Session, order *domain.Order, turn *domain.Turn) error
}

func (m *MockComposer) Compose(ctx context.Context, intent *domain.Intent, branch ports.BranchResult, history []domain.Turn, userText string) (string, error) {
	if m.ComposeFunc != nil {
		return m.ComposeFunc(ctx, intent, branch, history, userText)
	}
	return "ok", nil
}

func (m *MockComposer) Persist(ctx context.Context, session *domain.Session, order *domain.Order, turn *domain.Turn) error {
	if m.PersistFunc != nil {
		return m.PersistFunc(ctx, session, order, turn)
	}
	return nil
}
