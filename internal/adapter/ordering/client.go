package ordering

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

// Client talks to the external ordering API. Submit calls carry the
// caller-generated idempotency key so a retry cannot create a second
// order. Failures surface as domain.ErrExternalActionFailed; the local
// order is never touched by this adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	log        *zap.Logger
}

func NewClient(cfg config.OrderingConfig, cbCfg config.CircuitBreakerConfig, log *zap.Logger) ports.OrderingGateway {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ordering-api",
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
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    breaker,
		log:        log,
	}
}

type createOrderRequest struct {
	SessionID string  `json:"session_id"`
	Currency  string  `json:"currency"`
	Total     float64 `json:"total"`
	Items     []struct {
		MenuItemID string   `json:"menu_item_id"`
		Name       string   `json:"name"`
		Quantity   int      `json:"quantity"`
		Modifiers  []string `json:"modifiers,omitempty"`
		UnitPrice  float64  `json:"unit_price"`
	} `json:"items"`
}

type apiResponse struct {
	OrderID       string `json:"order_id"`
	CorrelationID string `json:"correlation_id"`
	Status        string `json:"status"`
}

func (c *Client) CreateOrder(ctx context.Context, order *domain.Order) (string, string, error) {
	req := createOrderRequest{
		SessionID: order.SessionID,
		Currency:  order.Currency,
		Total:     order.Total(),
	}
	for _, li := range order.Items {
		req.Items = append(req.Items, struct {
			MenuItemID string   `json:"menu_item_id"`
			Name       string   `json:"name"`
			Quantity   int      `json:"quantity"`
			Modifiers  []string `json:"modifiers,omitempty"`
			UnitPrice  float64  `json:"unit_price"`
		}{li.MenuItemID, li.Name, li.Quantity, li.Modifiers, li.UnitPrice})
	}

	resp, err := c.post(ctx, "/v1/orders", "", req)
	if err != nil {
		return "", "", err
	}
	return resp.OrderID, resp.CorrelationID, nil
}

func (c *Client) SubmitOrder(ctx context.Context, externalID, idempotencyKey string) (string, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/v1/orders/%s/submit", externalID), idempotencyKey, nil)
	if err != nil {
		return "", err
	}
	return resp.CorrelationID, nil
}

func (c *Client) CancelOrder(ctx context.Context, externalID string) (string, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/v1/orders/%s/cancel", externalID), "", nil)
	if err != nil {
		return "", err
	}
	return resp.CorrelationID, nil
}

func (c *Client) post(ctx context.Context, path, idempotencyKey string, body any) (*apiResponse, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ordering: marshal request: %w", err)
		}
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("ordering: create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		if idempotencyKey != "" {
			req.Header.Set("Idempotency-Key", idempotencyKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrExternalActionFailed, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: status %d", domain.ErrExternalActionFailed, resp.StatusCode)
		}

		var out apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("%w: decode response: %v", domain.ErrExternalActionFailed, err)
		}
		return &out, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", domain.ErrExternalActionFailed)
		}
		return nil, err
	}

	return result.(*apiResponse), nil
}
