package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/observability/telemetry"
	"github.com/seu-repo/ai-waiter/internal/ports"
	"github.com/seu-repo/ai-waiter/pkg/config"
)

// degradedReply is spoken when the model stays unavailable after retries.
// The order is never touched on this path.
const degradedReply = "Dạ, hệ thống của em đang gặp chút trục trặc. Quý khách vui lòng nói lại sau giây lát giúp em nhé?"

// TurnReply is what the transport layer sends back for one utterance.
type TurnReply struct {
	SessionID string `json:"session_id"`
	TurnSeq   int    `json:"turn_seq"`
	Text      string `json:"text"`
	Intent    string `json:"intent"`
	Outcome   string `json:"outcome"`
}

// Engine runs the per-turn decision loop: classify, branch, compose,
// persist. Exactly one branch runs per turn and every turn ends with a
// spoken reply, degraded if it must be.
type Engine struct {
	sessions ports.SessionRepository
	orders   ports.OrderRepository
	router   ports.IntentRouter
	executor ports.ActionExecutor
	composer ports.Composer
	index    ports.MenuIndex
	guard    *sessionGuard
	cfg      config.EngineConfig
	topK     int
	log      *zap.Logger
}

func NewEngine(
	sessions ports.SessionRepository,
	orders ports.OrderRepository,
	router ports.IntentRouter,
	executor ports.ActionExecutor,
	composer ports.Composer,
	index ports.MenuIndex,
	cache ports.Cache,
	cfg config.EngineConfig,
	retrieval config.RetrievalConfig,
	log *zap.Logger,
) *Engine {
	return &Engine{
		sessions: sessions,
		orders:   orders,
		router:   router,
		executor: executor,
		composer: composer,
		index:    index,
		guard:    newSessionGuard(cache, cfg.LockTTL, log),
		cfg:      cfg,
		topK:     retrieval.TopK,
		log:      log,
	}
}

// HandleTurn processes one utterance. A second utterance for the same
// session while a turn is in flight cancels that turn first.
func (e *Engine) HandleTurn(ctx context.Context, sessionID, text string) (*TurnReply, error) {
	e.guard.interrupt(sessionID)

	turnCtx, cancel := context.WithTimeout(ctx, e.cfg.TurnTimeout)
	defer cancel()

	release, err := e.guard.acquire(turnCtx, sessionID, cancel)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	reply, err := e.runTurn(turnCtx, sessionID, text)
	if err != nil {
		return nil, err
	}

	telemetry.TurnsTotal.WithLabelValues(reply.Intent, reply.Outcome).Inc()
	telemetry.TurnLatency.Observe(time.Since(start).Seconds())
	return reply, nil
}

func (e *Engine) runTurn(ctx context.Context, sessionID, text string) (*TurnReply, error) {
	session, err := e.loadOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	order, err := e.orders.FindActiveBySessionID(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load active order: %w", err)
	}
	history := session.RecentTurns(e.cfg.HistoryWindow)

	var intent *domain.Intent
	err = withRetry(ctx, e.cfg, func() error {
		var cerr error
		intent, cerr = e.router.Classify(ctx, history, text)
		return cerr
	})
	if err != nil {
		if errors.Is(err, domain.ErrEngineUnavailable) {
			return e.degrade(ctx, session, text, "classification unavailable")
		}
		return nil, err
	}

	var branch ports.BranchResult
	outcome := "ok"

	switch intent.Category {
	case domain.IntentInformationQuery:
		branch.Retrieved, err = e.index.Search(ctx, text, e.topK)
		if err != nil {
			// A cancelled turn surfaces to the transport; any other lookup
			// failure ends the turn with the fallback utterance, since a
			// grounded answer cannot be composed without retrieval.
			if ctx.Err() != nil {
				return nil, err
			}
			return e.degrade(ctx, session, text, "retrieval unavailable")
		}
	case domain.IntentActionRequest:
		order, branch.Actions = e.executeBatch(ctx, session, order, intent.Proposals)
		for _, r := range branch.Actions {
			if r.Err != nil {
				outcome = "rejected"
				break
			}
		}
	}

	var spoken string
	err = withRetry(ctx, e.cfg, func() error {
		var cerr error
		spoken, cerr = e.composer.Compose(ctx, intent, branch, history, text)
		return cerr
	})
	if err != nil {
		if errors.Is(err, domain.ErrEngineUnavailable) {
			return e.degrade(ctx, session, text, "composition unavailable")
		}
		return nil, err
	}

	turn := e.newTurn(session, text, spoken, string(intent.Category), outcome)
	if err := e.composer.Persist(ctx, session, order, turn); err != nil {
		return nil, err
	}
	return &TurnReply{
		SessionID: session.ID,
		TurnSeq:   turn.Seq,
		Text:      spoken,
		Intent:    turn.Intent,
		Outcome:   turn.Outcome,
	}, nil
}

// executeBatch runs the turn's proposals in order, stopping at the first
// failure. Earlier successes stand; the failed proposal is reported so
// the composer can ask a follow-up. The executor's returned order is kept
// even on failure, since a failed submit may have recorded the external
// order id it created.
func (e *Engine) executeBatch(ctx context.Context, session *domain.Session, order *domain.Order, proposals []domain.ActionProposal) (*domain.Order, []domain.ActionResult) {
	turnSeq := session.LastTurnSeq + 1
	results := make([]domain.ActionResult, 0, len(proposals))
	for step, p := range proposals {
		updated, result, err := e.executor.Execute(ctx, session, order, p, turnSeq, step)
		if err != nil {
			results = append(results, domain.ActionResult{Proposal: p, Err: err})
			return updated, results
		}
		order = updated
		results = append(results, *result)
	}
	return order, results
}

// degrade records the turn with the fallback utterance. No order state
// changes on this path.
func (e *Engine) degrade(ctx context.Context, session *domain.Session, text, reason string) (*TurnReply, error) {
	e.log.Warn("Turn degraded", zap.String("session_id", session.ID), zap.String("reason", reason))
	turn := e.newTurn(session, text, degradedReply, string(domain.IntentGeneralChat), "degraded")
	if err := e.composer.Persist(ctx, session, nil, turn); err != nil {
		return nil, err
	}
	return &TurnReply{
		SessionID: session.ID,
		TurnSeq:   turn.Seq,
		Text:      degradedReply,
		Intent:    turn.Intent,
		Outcome:   turn.Outcome,
	}, nil
}

func (e *Engine) newTurn(session *domain.Session, userText, systemText, intent, outcome string) *domain.Turn {
	return &domain.Turn{
		ID:         uuid.New().String(),
		SessionID:  session.ID,
		Seq:        session.LastTurnSeq + 1,
		UserText:   userText,
		SystemText: systemText,
		Intent:     intent,
		Outcome:    outcome,
		CreatedAt:  time.Now(),
	}
}

// loadOrCreateSession creates the session on its first utterance. An
// unknown id is accepted as a fresh session so the voice client can mint
// ids itself.
func (e *Engine) loadOrCreateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID != "" {
		session, err := e.sessions.FindByID(ctx, sessionID)
		if err == nil && session != nil {
			if session.Status == domain.SessionStatusClosed {
				return nil, domain.ErrSessionClosed
			}
			return session, nil
		}
	}

	now := time.Now()
	session := &domain.Session{
		ID:        sessionID,
		Status:    domain.SessionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	if err := e.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	telemetry.ActiveSessions.Inc()
	e.log.Info("Session started", zap.String("session_id", session.ID))
	return session, nil
}

// CloseSession ends the conversation explicitly. The active order, if
// any, is left as is for staff follow-up.
func (e *Engine) CloseSession(ctx context.Context, sessionID string) error {
	if err := e.sessions.Close(ctx, sessionID); err != nil {
		return err
	}
	telemetry.ActiveSessions.Dec()
	return nil
}

// SweepIdleSessions archives sessions with no activity past the idle
// timeout. Run periodically from main.
func (e *Engine) SweepIdleSessions(ctx context.Context) {
	cutoff := time.Now().Add(-e.cfg.IdleTimeout)
	idle, err := e.sessions.FindIdleSince(ctx, cutoff)
	if err != nil {
		e.log.Error("Idle session sweep failed", zap.Error(err))
		return
	}
	for _, s := range idle {
		if err := e.CloseSession(ctx, s.ID); err != nil {
			e.log.Error("Idle session close failed", zap.String("session_id", s.ID), zap.Error(err))
			continue
		}
		e.log.Info("Idle session archived", zap.String("session_id", s.ID))
	}
}
