package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/observability/telemetry"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

// withRetry re-runs fn when the model is unavailable, with full-jitter
// backoff bounded by the engine config. Any other error returns
// immediately, as does a cancelled context.
func withRetry(ctx context.Context, cfg config.EngineConfig, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, domain.ErrEngineUnavailable) {
			return err
		}
		if attempt >= cfg.MaxRetries {
			return err
		}

		telemetry.ModelRetriesTotal.Inc()
		delay := cfg.RetryBaseDelay << attempt
		if delay > cfg.RetryMaxDelay {
			delay = cfg.RetryMaxDelay
		}
		jittered := time.Duration(rand.Int63n(int64(delay) + 1))

		select {
		case <-ctx.Done():
			return err
		case <-time.After(jittered):
		}
	}
}
