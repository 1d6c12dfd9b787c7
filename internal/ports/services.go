package ports

import (
	"context"
	"time"

	"github.com/seu-repo/ai-waiter/internal/domain"
)

// ChatMessage is one entry of the conversation window handed to the model.
type ChatMessage struct {
	Role    string `json:"role"` // system, user, assistant, tool
	Content string `json:"content"`
}

// ToolDefinition describes one function the model may call, in the wire
// shape the chat API expects.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCall is a raw, unvalidated function call emitted by the model.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ModelReply carries either free text, tool calls, or both.
type ModelReply struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// LanguageModel is the chat-completion surface of the underlying model.
// Implementations must honor ctx deadlines and return an error wrapping
// domain.ErrEngineUnavailable on transport failure or timeout.
type LanguageModel interface {
	Chat(ctx context.Context, system string, history []ChatMessage, user string) (string, error)
	ChatWithTools(ctx context.Context, system string, history []ChatMessage, user string, tools []ToolDefinition) (*ModelReply, error)
}

// Embedder turns texts into vectors for the retrieval index.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// MenuIndex is the published, atomically swappable retrieval snapshot.
type MenuIndex interface {
	// Search returns at most topK available items above the relevance
	// threshold, ordered by descending score, ties by ascending item id.
	// An empty result is a valid "no match", not an error.
	Search(ctx context.Context, query string, topK int) ([]domain.ScoredItem, error)
	// Resolve maps an item id or spoken dish name onto a menu item from the
	// current snapshot. Returns domain.ErrUnknownMenuItem when nothing
	// available matches.
	Resolve(ctx context.Context, ref string) (*domain.MenuItem, error)
	// Rebuild embeds the current menu content and publishes a new snapshot.
	// Concurrent readers keep seeing the previous snapshot until the swap.
	Rebuild(ctx context.Context) error
	Version() int64
}

// OrderingGateway is the external ordering API. Every call returns the
// remote correlation id. Submit is idempotent under the given key.
type OrderingGateway interface {
	CreateOrder(ctx context.Context, order *domain.Order) (externalID, correlationID string, err error)
	SubmitOrder(ctx context.Context, externalID, idempotencyKey string) (correlationID string, err error)
	CancelOrder(ctx context.Context, externalID string) (correlationID string, err error)
}

// PaymentGateway charges a submitted order. A retried Charge with the same
// idempotency key must not double-charge.
type PaymentGateway interface {
	Charge(ctx context.Context, idempotencyKey string, amount float64, currency string, metadata map[string]string) (correlationID string, err error)
}

// Cache is the shared key/value surface (session cache, turn leases).
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	Ping() error
	Close() error
}

// IntentRouter classifies one utterance against the bounded session window.
type IntentRouter interface {
	Classify(ctx context.Context, history []domain.Turn, text string) (*domain.Intent, error)
}

// ActionExecutor validates and executes one proposal against the order.
// On any failure the returned order is the unchanged input order.
type ActionExecutor interface {
	Execute(ctx context.Context, session *domain.Session, order *domain.Order, proposal domain.ActionProposal, turnSeq, step int) (*domain.Order, *domain.ActionResult, error)
}

// BranchResult is whichever branch output the composer receives for a turn.
type BranchResult struct {
	Retrieved []domain.ScoredItem
	Actions   []domain.ActionResult
	ChatText  string
}

// Composer produces the single user-facing utterance and persists the turn.
type Composer interface {
	Compose(ctx context.Context, intent *domain.Intent, branch BranchResult, history []domain.Turn, userText string) (string, error)
	Persist(ctx context.Context, session *domain.Session, order *domain.Order, turn *domain.Turn) error
}
