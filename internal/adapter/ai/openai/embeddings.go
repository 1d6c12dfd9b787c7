package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

// Client provides access to the OpenAI embeddings API for the menu index.
type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg config.EmbeddingsConfig, log *zap.Logger) ports.Embedder {
	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed generates one vector per input text, preserving input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: openai: API key not configured", domain.ErrRetrievalUnavailable)
	}

	reqBody := embeddingsRequest{
		Input: texts,
		Model: c.model,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: openai: send request: %v", domain.ErrRetrievalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: openai: API error status %d", domain.ErrRetrievalUnavailable, resp.StatusCode)
	}

	var result embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: openai: decode response: %v", domain.ErrRetrievalUnavailable, err)
	}

	embeddings := make([][]float32, len(result.Data))
	for _, d := range result.Data {
		embeddings[d.Index] = d.Embedding
	}

	c.log.Info("Generated embeddings",
		zap.Int("count", len(texts)),
		zap.Int("total_tokens", result.Usage.TotalTokens),
	)

	return embeddings, nil
}
