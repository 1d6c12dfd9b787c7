package composer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/adapter/queue"
	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

// personaPrompt is the voice the assistant speaks with on every turn,
// whichever branch produced the material.
const personaPrompt = `Bạn là "Linh", nhân viên phục vụ thân thiện tại một nhà hàng Việt Nam.
Bạn nói chuyện tự nhiên, lịch sự và ngắn gọn vì câu trả lời sẽ được đọc thành tiếng.
Chỉ nói về món ăn, đồ uống và đơn hàng của khách. Không bịa ra món không có trong thực đơn.
Trả lời tối đa 2-3 câu.`

const groundedPrompt = personaPrompt + `

Dưới đây là các món trong thực đơn liên quan đến câu hỏi của khách.
Chỉ dùng thông tin trong danh sách này để trả lời:

%s`

// noResultsReply is spoken without a model round-trip when retrieval
// comes back empty.
const noResultsReply = "Dạ, hiện tại nhà hàng không có món nào phù hợp với yêu cầu của quý khách. Quý khách muốn em gợi ý món khác không ạ?"

// maxSpokenRunes bounds the utterance length so text-to-speech stays snappy.
const maxSpokenRunes = 600

type Composer struct {
	model    ports.LanguageModel
	sessions ports.SessionRepository
	orders   ports.OrderRepository
	turns    ports.TurnRepository
	mq       queue.MessageQueue
	window   int
	log      *zap.Logger
}

func NewComposer(model ports.LanguageModel, sessions ports.SessionRepository, orders ports.OrderRepository, turns ports.TurnRepository, mq queue.MessageQueue, historyWindow int, log *zap.Logger) *Composer {
	return &Composer{
		model:    model,
		sessions: sessions,
		orders:   orders,
		turns:    turns,
		mq:       mq,
		window:   historyWindow,
		log:      log,
	}
}

func (c *Composer) Compose(ctx context.Context, intent *domain.Intent, branch ports.BranchResult, history []domain.Turn, userText string) (string, error) {
	switch intent.Category {
	case domain.IntentInformationQuery:
		return c.composeInformation(ctx, branch.Retrieved, history, userText)
	case domain.IntentActionRequest:
		return c.composeActions(branch.Actions), nil
	default:
		return c.composeChat(ctx, history, userText)
	}
}

func (c *Composer) composeInformation(ctx context.Context, retrieved []domain.ScoredItem, history []domain.Turn, userText string) (string, error) {
	if len(retrieved) == 0 {
		return noResultsReply, nil
	}

	var b strings.Builder
	for i, s := range retrieved {
		fmt.Fprintf(&b, "%d. %s - %s %s. %s (Loại: %s)\n",
			i+1, s.Item.Name, formatPrice(s.Item.Price), s.Item.Currency, s.Item.Description, s.Item.Category)
	}

	system := fmt.Sprintf(groundedPrompt, b.String())
	reply, err := c.model.Chat(ctx, system, chatHistory(history, c.window), userText)
	if err != nil {
		return "", err
	}
	return clamp(reply), nil
}

// composeActions is deterministic: the executor already produced one
// summary sentence per result, and rejected proposals become a
// clarification instead of an apology.
func (c *Composer) composeActions(results []domain.ActionResult) string {
	if len(results) == 0 {
		return "Dạ, em chưa rõ quý khách muốn thay đổi gì trong đơn hàng. Quý khách nói lại giúp em nhé?"
	}
	parts := make([]string, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			parts = append(parts, clarification(r))
			continue
		}
		parts = append(parts, r.Summary)
	}
	return clamp(strings.Join(parts, " "))
}

func (c *Composer) composeChat(ctx context.Context, history []domain.Turn, userText string) (string, error) {
	reply, err := c.model.Chat(ctx, personaPrompt, chatHistory(history, c.window), userText)
	if err != nil {
		return "", err
	}
	return clamp(reply), nil
}

// clarification turns a rejected proposal into a next-step question the
// guest can answer, without surfacing internal detail.
func clarification(r domain.ActionResult) string {
	switch {
	case errors.Is(r.Err, domain.ErrUnknownMenuItem):
		return fmt.Sprintf("Dạ, em không tìm thấy món %q trong thực đơn. Quý khách muốn em đọc các món tương tự không ạ?", r.Proposal.ItemRef)
	case errors.Is(r.Err, domain.ErrInvalidTransition):
		switch r.Proposal.Name {
		case domain.ActionSubmitOrder:
			return "Dạ, quý khách vui lòng xác nhận đơn hàng trước khi em gửi xuống bếp ạ."
		case domain.ActionInitiatePayment:
			return "Dạ, đơn hàng cần được gửi xuống bếp trước khi thanh toán ạ."
		default:
			return "Dạ, em không thể thực hiện yêu cầu này với đơn hàng hiện tại. Quý khách kiểm tra lại giúp em nhé?"
		}
	case errors.Is(r.Err, domain.ErrExternalActionFailed):
		return "Dạ, hệ thống đang gặp trục trặc nên em chưa thực hiện được. Quý khách thử lại sau ít phút giúp em nhé?"
	default:
		return "Dạ, em chưa thực hiện được yêu cầu này. Quý khách nói lại giúp em nhé?"
	}
}

// Persist writes the finished turn and its side effects in one place so a
// turn is either fully recorded or not at all from the caller's view.
func (c *Composer) Persist(ctx context.Context, session *domain.Session, order *domain.Order, turn *domain.Turn) error {
	if order != nil {
		if err := c.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("persist order: %w", err)
		}
		session.OrderID = order.ID
	}
	if err := c.turns.Save(ctx, turn); err != nil {
		return fmt.Errorf("persist turn: %w", err)
	}
	session.LastTurnSeq = turn.Seq
	session.Turns = append(session.Turns, *turn)
	if err := c.sessions.Save(ctx, session); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	if err := queue.PublishJSON(c.mq, queue.SubjectTurnLogged, map[string]any{
		"session_id": session.ID,
		"turn_seq":   turn.Seq,
		"intent":     turn.Intent,
		"outcome":    turn.Outcome,
		"at":         time.Now().UTC(),
	}); err != nil {
		// Audit publish is best effort, the turn itself is already durable.
		c.log.Warn("Turn audit publish failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	return nil
}

func chatHistory(history []domain.Turn, window int) []ports.ChatMessage {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	msgs := make([]ports.ChatMessage, 0, len(history)*2)
	for _, t := range history {
		if t.UserText != "" {
			msgs = append(msgs, ports.ChatMessage{Role: "user", Content: t.UserText})
		}
		if t.SystemText != "" {
			msgs = append(msgs, ports.ChatMessage{Role: "assistant", Content: t.SystemText})
		}
	}
	return msgs
}

func clamp(s string) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= maxSpokenRunes {
		return s
	}
	cut := string(runes[:maxSpokenRunes])
	if i := strings.LastIndexAny(cut, ".!?"); i > maxSpokenRunes/2 {
		return cut[:i+1]
	}
	return cut
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.0f", p)
}
