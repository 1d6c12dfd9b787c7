package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/adapter/queue"
	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/observability/telemetry"
	"github.com/seu-repo/ai-waiter/internal/ports"
)

// Executor validates one proposal against the order's status before it
// touches the external ordering or payment API, at most once per accepted
// proposal. All mutation happens on a clone; on failure the caller gets
// the input order back, except that an external order id created before a
// failed submit is retained so a replay submits that order instead of
// creating a second one.
type Executor struct {
	index    ports.MenuIndex
	ordering ports.OrderingGateway
	payments ports.PaymentGateway
	mq       queue.MessageQueue
	log      *zap.Logger
}

func NewExecutor(index ports.MenuIndex, ordering ports.OrderingGateway, payments ports.PaymentGateway, mq queue.MessageQueue, log *zap.Logger) ports.ActionExecutor {
	return &Executor{
		index:    index,
		ordering: ordering,
		payments: payments,
		mq:       mq,
		log:      log,
	}
}

// idempotencyKey derives the per-proposal key from the session, the turn
// sequence number and the step index within the turn's batch. A retried
// turn reuses the same key, so the external API resolves it to the same
// order/charge.
func idempotencyKey(sessionID string, turnSeq, step int) string {
	return fmt.Sprintf("%s:%d:%d", sessionID, turnSeq, step)
}

func (e *Executor) Execute(ctx context.Context, session *domain.Session, order *domain.Order, proposal domain.ActionProposal, turnSeq, step int) (*domain.Order, *domain.ActionResult, error) {
	updated, result, err := e.execute(ctx, session, order, proposal, turnSeq, step)
	status := "ok"
	if err != nil {
		status = "rejected"
		if updated == nil {
			updated = order
		}
	}
	telemetry.ActionsTotal.WithLabelValues(string(proposal.Name), status).Inc()
	return updated, result, err
}

func (e *Executor) execute(ctx context.Context, session *domain.Session, order *domain.Order, proposal domain.ActionProposal, turnSeq, step int) (*domain.Order, *domain.ActionResult, error) {
	switch proposal.Name {
	case domain.ActionAddItem:
		return e.addItem(ctx, session, order, proposal)
	case domain.ActionRemoveItem:
		return e.removeItem(order, proposal)
	case domain.ActionModifyItem:
		return e.modifyItem(order, proposal)
	case domain.ActionConfirmOrder:
		return e.confirmOrder(order, proposal)
	case domain.ActionSubmitOrder:
		return e.submitOrder(ctx, session, order, proposal, turnSeq, step)
	case domain.ActionInitiatePayment:
		return e.initiatePayment(ctx, session, order, proposal, turnSeq, step)
	case domain.ActionCancelOrder:
		return e.cancelOrder(ctx, order, proposal)
	}
	return order, nil, fmt.Errorf("%w: %s", domain.ErrClassificationMalformed, proposal.Name)
}

func (e *Executor) addItem(ctx context.Context, session *domain.Session, order *domain.Order, p domain.ActionProposal) (*domain.Order, *domain.ActionResult, error) {
	if order != nil && !order.Status.Mutable() {
		return order, nil, fmt.Errorf("%w: cannot add items while order is %s", domain.ErrInvalidTransition, order.Status)
	}

	item, err := e.index.Resolve(ctx, p.ItemRef)
	if err != nil {
		return order, nil, err
	}

	updated := order.Clone()
	if updated == nil {
		now := time.Now()
		updated = &domain.Order{
			ID:        uuid.New().String(),
			SessionID: session.ID,
			Status:    domain.OrderStatusDraft,
			Currency:  item.Currency,
			CreatedAt: now,
		}
	}

	if existing := updated.FindItem(item.ID); existing != nil && sameModifiers(existing.Modifiers, p.Modifiers) {
		existing.Quantity += p.Quantity
	} else {
		updated.Items = append(updated.Items, domain.LineItem{
			ID:         uuid.New().String(),
			OrderID:    updated.ID,
			MenuItemID: item.ID,
			Name:       item.Name,
			Quantity:   p.Quantity,
			Modifiers:  p.Modifiers,
			UnitPrice:  item.Price, // price snapshot, immune to later menu edits
		})
	}
	// Any edit voids a prior confirmation.
	updated.Status = domain.OrderStatusDraft
	updated.UpdatedAt = time.Now()

	return updated, &domain.ActionResult{
		Proposal: p,
		Status:   updated.Status,
		Summary: fmt.Sprintf("Đã thêm %d x %s (%s %s/món) vào đơn.",
			p.Quantity, item.Name, formatPrice(item.Price), item.Currency),
	}, nil
}

func (e *Executor) removeItem(order *domain.Order, p domain.ActionProposal) (*domain.Order, *domain.ActionResult, error) {
	if order == nil || len(order.Items) == 0 {
		return order, nil, fmt.Errorf("%w: no order in progress", domain.ErrInvalidTransition)
	}
	if !order.Status.Mutable() {
		return order, nil, fmt.Errorf("%w: cannot remove items while order is %s", domain.ErrInvalidTransition, order.Status)
	}

	updated := order.Clone()
	idx := findLine(updated, p.ItemRef)
	if idx < 0 {
		return order, nil, fmt.Errorf("%w: %q is not in the order", domain.ErrUnknownMenuItem, p.ItemRef)
	}

	removed := updated.Items[idx]
	updated.Items = append(updated.Items[:idx], updated.Items[idx+1:]...)
	updated.Status = domain.OrderStatusDraft
	updated.UpdatedAt = time.Now()

	return updated, &domain.ActionResult{
		Proposal: p,
		Status:   updated.Status,
		Summary:  fmt.Sprintf("Đã bỏ món %s khỏi đơn.", removed.Name),
	}, nil
}

func (e *Executor) modifyItem(order *domain.Order, p domain.ActionProposal) (*domain.Order, *domain.ActionResult, error) {
	if order == nil || len(order.Items) == 0 {
		return order, nil, fmt.Errorf("%w: no order in progress", domain.ErrInvalidTransition)
	}
	if !order.Status.Mutable() {
		return order, nil, fmt.Errorf("%w: cannot modify items while order is %s", domain.ErrInvalidTransition, order.Status)
	}

	updated := order.Clone()
	idx := findLine(updated, p.ItemRef)
	if idx < 0 {
		return order, nil, fmt.Errorf("%w: %q is not in the order", domain.ErrUnknownMenuItem, p.ItemRef)
	}

	line := &updated.Items[idx]
	if p.Quantity > 0 {
		line.Quantity = p.Quantity
	}
	if p.Modifiers != nil {
		line.Modifiers = p.Modifiers
	}
	updated.Status = domain.OrderStatusDraft
	updated.UpdatedAt = time.Now()

	return updated, &domain.ActionResult{
		Proposal: p,
		Status:   updated.Status,
		Summary:  fmt.Sprintf("Đã cập nhật món %s: %d phần.", line.Name, line.Quantity),
	}, nil
}

func (e *Executor) confirmOrder(order *domain.Order, p domain.ActionProposal) (*domain.Order, *domain.ActionResult, error) {
	if order == nil || len(order.Items) == 0 {
		return order, nil, fmt.Errorf("%w: nothing to confirm", domain.ErrInvalidTransition)
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusConfirmed) {
		return order, nil, fmt.Errorf("%w: %s -> confirmed", domain.ErrInvalidTransition, order.Status)
	}

	updated := order.Clone()
	updated.Status = domain.OrderStatusConfirmed
	updated.UpdatedAt = time.Now()

	return updated, &domain.ActionResult{
		Proposal: p,
		Status:   updated.Status,
		Summary: fmt.Sprintf("Đơn hàng đã được xác nhận: %s. Tổng cộng %s %s.",
			itemList(updated), formatPrice(updated.Total()), updated.Currency),
	}, nil
}

func (e *Executor) submitOrder(ctx context.Context, session *domain.Session, order *domain.Order, p domain.ActionProposal, turnSeq, step int) (*domain.Order, *domain.ActionResult, error) {
	if order == nil {
		return order, nil, fmt.Errorf("%w: no order in progress", domain.ErrInvalidTransition)
	}
	// Confirmation is mandatory; a direct submit from draft is always
	// rejected so the composer can ask for confirmation first.
	if !order.Status.CanTransitionTo(domain.OrderStatusSubmitted) {
		return order, nil, fmt.Errorf("%w: %s -> submitted", domain.ErrInvalidTransition, order.Status)
	}

	key := idempotencyKey(session.ID, turnSeq, step)
	updated := order.Clone()

	if updated.ExternalID == "" {
		start := time.Now()
		externalID, corrID, err := e.ordering.CreateOrder(ctx, updated)
		telemetry.ExternalCallLatency.WithLabelValues("create_order").Observe(time.Since(start).Seconds())
		if err != nil {
			e.reportFailure(session.ID, p, corrID, err)
			return order, nil, err
		}
		updated.ExternalID = externalID
	}

	start := time.Now()
	corrID, err := e.ordering.SubmitOrder(ctx, updated.ExternalID, key)
	telemetry.ExternalCallLatency.WithLabelValues("submit_order").Observe(time.Since(start).Seconds())
	if err != nil {
		e.reportFailure(session.ID, p, corrID, err)
		// The remote order exists now even though the submit leg failed.
		// Keep its id so a replay submits the same order instead of
		// creating a second one.
		kept := order.Clone()
		kept.ExternalID = updated.ExternalID
		return kept, nil, err
	}

	updated.Status = domain.OrderStatusSubmitted
	updated.UpdatedAt = time.Now()

	result := &domain.ActionResult{
		Proposal:      p,
		Status:        updated.Status,
		CorrelationID: corrID,
		Summary: fmt.Sprintf("Đơn hàng đã được gửi xuống bếp. Tổng cộng %s %s.",
			formatPrice(updated.Total()), updated.Currency),
	}
	_ = queue.PublishJSON(e.mq, queue.SubjectOrderSubmitted, map[string]any{
		"order_id":       updated.ID,
		"session_id":     session.ID,
		"external_id":    updated.ExternalID,
		"correlation_id": corrID,
		"total":          updated.Total(),
	})
	return updated, result, nil
}

func (e *Executor) initiatePayment(ctx context.Context, session *domain.Session, order *domain.Order, p domain.ActionProposal, turnSeq, step int) (*domain.Order, *domain.ActionResult, error) {
	if order == nil {
		return order, nil, fmt.Errorf("%w: no order in progress", domain.ErrInvalidTransition)
	}
	if !order.Status.CanTransitionTo(domain.OrderStatusPaid) {
		return order, nil, fmt.Errorf("%w: %s -> paid", domain.ErrInvalidTransition, order.Status)
	}

	key := idempotencyKey(session.ID, turnSeq, step)
	start := time.Now()
	corrID, err := e.payments.Charge(ctx, key, order.Total(), strings.ToLower(order.Currency), map[string]string{
		"order_id":   order.ID,
		"session_id": session.ID,
	})
	telemetry.ExternalCallLatency.WithLabelValues("charge").Observe(time.Since(start).Seconds())
	if err != nil {
		e.reportFailure(session.ID, p, corrID, err)
		return order, nil, err
	}

	updated := order.Clone()
	updated.Status = domain.OrderStatusPaid
	updated.UpdatedAt = time.Now()

	result := &domain.ActionResult{
		Proposal:      p,
		Status:        updated.Status,
		CorrelationID: corrID,
		Summary: fmt.Sprintf("Thanh toán thành công %s %s. Cảm ơn quý khách!",
			formatPrice(updated.Total()), updated.Currency),
	}
	_ = queue.PublishJSON(e.mq, queue.SubjectOrderPaid, map[string]any{
		"order_id":       updated.ID,
		"session_id":     session.ID,
		"correlation_id": corrID,
		"amount":         updated.Total(),
	})
	return updated, result, nil
}

func (e *Executor) cancelOrder(ctx context.Context, order *domain.Order, p domain.ActionProposal) (*domain.Order, *domain.ActionResult, error) {
	if order == nil || order.Status.Terminal() {
		return order, nil, fmt.Errorf("%w: no cancellable order", domain.ErrInvalidTransition)
	}

	updated := order.Clone()
	if updated.ExternalID != "" {
		start := time.Now()
		corrID, err := e.ordering.CancelOrder(ctx, updated.ExternalID)
		telemetry.ExternalCallLatency.WithLabelValues("cancel_order").Observe(time.Since(start).Seconds())
		if err != nil {
			e.reportFailure(order.SessionID, p, corrID, err)
			return order, nil, err
		}
	}

	updated.Status = domain.OrderStatusCancelled
	updated.UpdatedAt = time.Now()

	_ = queue.PublishJSON(e.mq, queue.SubjectOrderCancelled, map[string]any{
		"order_id":   updated.ID,
		"session_id": updated.SessionID,
	})
	return updated, &domain.ActionResult{
		Proposal: p,
		Status:   updated.Status,
		Summary:  "Đơn hàng đã được hủy.",
	}, nil
}

// reportFailure logs and publishes an external failure for operator
// follow-up. The user-facing sentence is composed elsewhere without the
// internal detail.
func (e *Executor) reportFailure(sessionID string, p domain.ActionProposal, corrID string, err error) {
	e.log.Error("External action failed",
		zap.String("session_id", sessionID),
		zap.String("action", string(p.Name)),
		zap.String("correlation_id", corrID),
		zap.Error(err),
	)
	_ = queue.PublishJSON(e.mq, queue.SubjectActionFailed, map[string]any{
		"session_id":     sessionID,
		"action":         string(p.Name),
		"correlation_id": corrID,
		"error":          err.Error(),
	})
}

func findLine(order *domain.Order, ref string) int {
	needle := strings.ToLower(strings.TrimSpace(ref))
	for i := range order.Items {
		if order.Items[i].MenuItemID == ref || strings.ToLower(order.Items[i].Name) == needle {
			return i
		}
	}
	return -1
}

func sameModifiers(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func itemList(order *domain.Order) string {
	parts := make([]string, 0, len(order.Items))
	for _, li := range order.Items {
		parts = append(parts, fmt.Sprintf("%d x %s", li.Quantity, li.Name))
	}
	return strings.Join(parts, ", ")
}

func formatPrice(p float64) string {
	return fmt.Sprintf("%.0f", p)
}
