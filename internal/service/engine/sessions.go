package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/observability/telemetry"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

const leasePrefix = "turn:lease:"

// sessionGuard serializes turns per session. The in-process mutex orders
// turns inside one instance; the Redis lease extends that across
// replicas. It also tracks the cancel function of the in-flight turn so a
// newer utterance can barge in.
type sessionGuard struct {
	cache ports.Cache
	ttl   time.Duration
	log   *zap.Logger

	mu       sync.Mutex
	locks    map[string]*sessionLock
	inFlight map[string]context.CancelFunc
}

// sessionLock counts its holders and waiters so the guard can drop the
// map entry once the last turn for the session releases it.
type sessionLock struct {
	sync.Mutex
	refs int
}

func newSessionGuard(cache ports.Cache, ttl time.Duration, log *zap.Logger) *sessionGuard {
	return &sessionGuard{
		cache:    cache,
		ttl:      ttl,
		log:      log,
		locks:    make(map[string]*sessionLock),
		inFlight: make(map[string]context.CancelFunc),
	}
}

// interrupt cancels the in-flight turn for the session, if any. The new
// utterance supersedes whatever was being answered.
func (g *sessionGuard) interrupt(sessionID string) {
	g.mu.Lock()
	cancel, ok := g.inFlight[sessionID]
	g.mu.Unlock()
	if ok {
		cancel()
		telemetry.BargeInsTotal.Inc()
		g.log.Info("Turn interrupted by newer utterance", zap.String("session_id", sessionID))
	}
}

// acquire blocks until the session's turn slot is free, then records the
// turn's cancel function. The returned release must be called when the
// turn finishes.
func (g *sessionGuard) acquire(ctx context.Context, sessionID string, cancel context.CancelFunc) (release func(), err error) {
	g.mu.Lock()
	lock, ok := g.locks[sessionID]
	if !ok {
		lock = &sessionLock{}
		g.locks[sessionID] = lock
	}
	lock.refs++
	g.mu.Unlock()

	lock.Lock()

	leaseKey := leasePrefix + sessionID
	for {
		acquired, leaseErr := g.cache.SetNX(ctx, leaseKey, "1", g.ttl)
		if leaseErr != nil {
			// Redis being down must not stall the dining room; the local
			// mutex still serializes within this instance.
			g.log.Warn("Turn lease unavailable", zap.String("session_id", sessionID), zap.Error(leaseErr))
			break
		}
		if acquired {
			break
		}
		select {
		case <-ctx.Done():
			g.put(sessionID, lock)
			return nil, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	g.mu.Lock()
	g.inFlight[sessionID] = cancel
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.inFlight, sessionID)
		g.mu.Unlock()
		_ = g.cache.Delete(context.Background(), leaseKey)
		g.put(sessionID, lock)
	}, nil
}

// put releases the session's lock and drops the map entry once no turn
// holds or waits on it.
func (g *sessionGuard) put(sessionID string, lock *sessionLock) {
	g.mu.Lock()
	lock.refs--
	if lock.refs == 0 {
		delete(g.locks, sessionID)
	}
	g.mu.Unlock()
	lock.Unlock()
}
