package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

// Client talks to an Ollama server's /api/chat endpoint, with native tool
// support for function-call extraction. All failures surface as
// domain.ErrEngineUnavailable so the engine can apply its retry policy.
type Client struct {
	baseURL    string
	model      string
	options    chatOptions
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type chatMessage struct {
	Role      string        `json:"role"`
	Content   string        `json:"content"`
	ToolCalls []rawToolCall `json:"tool_calls,omitempty"`
}

type rawToolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type toolWrapper struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []toolWrapper `json:"tools,omitempty"`
	Options  chatOptions   `json:"options"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

func NewClient(cfg config.ModelConfig, cbCfg config.CircuitBreakerConfig, log *zap.Logger) (ports.LanguageModel, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("ollama: base URL not configured")
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ollama",
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cbCfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		model:   cfg.Name,
		options: chatOptions{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			NumPredict:  cfg.MaxTokens,
		},
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		log:        log,
	}, nil
}

func (c *Client) Chat(ctx context.Context, system string, history []ports.ChatMessage, user string) (string, error) {
	reply, err := c.send(ctx, system, history, user, nil)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

func (c *Client) ChatWithTools(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []ports.ToolDefinition) (*ports.ModelReply, error) {
	wrapped := make([]toolWrapper, 0, len(tools))
	for _, t := range tools {
		var w toolWrapper
		w.Type = "function"
		w.Function.Name = t.Name
		w.Function.Description = t.Description
		w.Function.Parameters = t.Parameters
		wrapped = append(wrapped, w)
	}
	return c.send(ctx, system, history, user, wrapped)
}

func (c *Client) send(ctx context.Context, system string, history []ports.ChatMessage, user string, tools []toolWrapper) (*ports.ModelReply, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: system})
	for _, m := range history {
		messages = append(messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
		Options:  c.options,
		Stream:   false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", domain.ErrEngineUnavailable)
		}
		return nil, err
	}

	resp := result.(*chatResponse)

	reply := &ports.ModelReply{Content: resp.Message.Content}
	for _, tc := range resp.Message.ToolCalls {
		args := map[string]any{}
		if len(tc.Function.Arguments) > 0 {
			// Arguments may arrive as an object or a JSON-encoded string.
			if err := json.Unmarshal(tc.Function.Arguments, &args); err != nil {
				var s string
				if err2 := json.Unmarshal(tc.Function.Arguments, &s); err2 == nil {
					_ = json.Unmarshal([]byte(s), &args)
				}
			}
		}
		reply.ToolCalls = append(reply.ToolCalls, ports.ToolCall{
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	c.log.Debug("Model reply received",
		zap.Duration("latency", time.Since(start)),
		zap.Int("tool_calls", len(reply.ToolCalls)),
	)

	return reply, nil
}

func (c *Client) do(ctx context.Context, payload []byte) (*chatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ollama: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEngineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrEngineUnavailable, resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrEngineUnavailable, err)
	}

	return &result, nil
}
