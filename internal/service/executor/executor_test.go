package executor

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/seu-repo/ai-waiter/internal/domain"
	"github.com/seu-repo/ai-waiter/internal/mocks"
)

func newTestLogger() *zap.Logger {
	logger, _ := zap.NewDevelopment()
	return logger
}

func phoBo() *domain.MenuItem {
	return &domain.MenuItem{
		ID: "menu-001", Name: "Phở bò", Price: 65000, Currency: "VND", Available: true,
	}
}

func resolvingIndex() *mocks.MockMenuIndex {
	return &mocks.MockMenuIndex{
		ResolveFunc: func(ctx context.Context, ref string) (*domain.MenuItem, error) {
			if ref == "Phở bò" || ref == "menu-001" {
				return phoBo(), nil
			}
			return nil, domain.ErrUnknownMenuItem
		},
	}
}

func newTestExecutor(index *mocks.MockMenuIndex, ordering *mocks.MockOrderingGateway, payments *mocks.MockPaymentGateway) *Executor {
	if index == nil {
		index = resolvingIndex()
	}
	if ordering == nil {
		ordering = &mocks.MockOrderingGateway{}
	}
	if payments == nil {
		payments = &mocks.MockPaymentGateway{}
	}
	return NewExecutor(index, ordering, payments, &mocks.MockQueue{}, newTestLogger()).(*Executor)
}

func testSession() *domain.Session {
	return &domain.Session{ID: "session-1", Status: domain.SessionStatusActive, LastTurnSeq: 3}
}

func draftOrder() *domain.Order {
	return &domain.Order{
		ID:        "order-1",
		SessionID: "session-1",
		Status:    domain.OrderStatusDraft,
		Currency:  "VND",
		Items: []domain.LineItem{
			{ID: "li-1", OrderID: "order-1", MenuItemID: "menu-001", Name: "Phở bò", Quantity: 1, UnitPrice: 65000},
		},
	}
}

func TestExecute_AddItemCreatesDraftOrder(t *testing.T) {
	// Arrange
	exec := newTestExecutor(nil, nil, nil)
	proposal := domain.ActionProposal{Name: domain.ActionAddItem, ItemRef: "Phở bò", Quantity: 2}

	// Act
	order, result, err := exec.Execute(context.Background(), testSession(), nil, proposal, 4, 0)

	// Assert
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order == nil {
		t.Fatal("expected a new order")
	}
	if order.Status != domain.OrderStatusDraft {
		t.Errorf("expected draft status, got %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Errorf("unexpected line items: %+v", order.Items)
	}
	if order.Items[0].UnitPrice != 65000 {
		t.Errorf("expected price snapshot 65000, got %v", order.Items[0].UnitPrice)
	}
	if result.Summary == "" {
		t.Error("expected a spoken summary")
	}
}

func TestExecute_AddItemMergesSameLine(t *testing.T) {
	exec := newTestExecutor(nil, nil, nil)
	proposal := domain.ActionProposal{Name: domain.ActionAddItem, ItemRef: "Phở bò", Quantity: 1}

	order, _, err := exec.Execute(context.Background(), testSession(), draftOrder(), proposal, 4, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(order.Items) != 1 {
		t.Fatalf("expected merged line, got %d lines", len(order.Items))
	}
	if order.Items[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", order.Items[0].Quantity)
	}
}

func TestExecute_AddUnknownItemLeavesOrderUnchanged(t *testing.T) {
	exec := newTestExecutor(nil, nil, nil)
	original := draftOrder()
	proposal := domain.ActionProposal{Name: domain.ActionAddItem, ItemRef: "Pizza hải sản", Quantity: 1}

	order, _, err := exec.Execute(context.Background(), testSession(), original, proposal, 4, 0)
	if !errors.Is(err, domain.ErrUnknownMenuItem) {
		t.Fatalf("expected ErrUnknownMenuItem, got %v", err)
	}
	if order != original {
		t.Error("expected the untouched input order back")
	}
	if len(original.Items) != 1 || original.Items[0].Quantity != 1 {
		t.Error("input order was mutated")
	}
}

func TestExecute_EditConfirmedOrderRevertsToDraft(t *testing.T) {
	exec := newTestExecutor(nil, nil, nil)
	confirmed := draftOrder()
	confirmed.Status = domain.OrderStatusConfirmed
	proposal := domain.ActionProposal{Name: domain.ActionAddItem, ItemRef: "Phở bò", Quantity: 1}

	order, _, err := exec.Execute(context.Background(), testSession(), confirmed, proposal, 4, 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if order.Status != domain.OrderStatusDraft {
		t.Errorf("expected edit to revert confirmation, got %s", order.Status)
	}
}

func TestExecute_RemoveAndModify(t *testing.T) {
	exec := newTestExecutor(nil, nil, nil)
	ctx := context.Background()
	session := testSession()

	modify := domain.ActionProposal{Name: domain.ActionModifyItem, ItemRef: "Phở bò", Quantity: 3}
	order, _, err := exec.Execute(ctx, session, draftOrder(), modify, 4, 0)
	if err != nil {
		t.Fatalf("modify failed: %v", err)
	}
	if order.Items[0].Quantity != 3 {
		t.Errorf("expected quantity 3, got %d", order.Items[0].Quantity)
	}

	remove := domain.ActionProposal{Name: domain.ActionRemoveItem, ItemRef: "phở bò"}
	order, _, err = exec.Execute(ctx, session, order, remove, 4, 1)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if len(order.Items) != 0 {
		t.Errorf("expected empty order, got %d items", len(order.Items))
	}

	notThere := domain.ActionProposal{Name: domain.ActionRemoveItem, ItemRef: "Cà phê sữa đá"}
	if _, _, err := exec.Execute(ctx, session, draftOrder(), notThere, 4, 2); !errors.Is(err, domain.ErrUnknownMenuItem) {
		t.Errorf("expected ErrUnknownMenuItem for absent line, got %v", err)
	}
}

func TestExecute_ConfirmRequiresItems(t *testing.T) {
	exec := newTestExecutor(nil, nil, nil)
	proposal := domain.ActionProposal{Name: domain.ActionConfirmOrder}

	if _, _, err := exec.Execute(context.Background(), testSession(), nil, proposal, 4, 0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for empty order, got %v", err)
	}

	order, result, err := exec.Execute(context.Background(), testSession(), draftOrder(), proposal, 4, 0)
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Errorf("expected confirmed, got %s", order.Status)
	}
	if result.Summary == "" {
		t.Error("expected confirmation summary")
	}
}

func TestExecute_SubmitRequiresConfirmation(t *testing.T) {
	// Arrange: draft order, submit must be rejected without touching the API
	calls := 0
	ordering := &mocks.MockOrderingGateway{
		CreateOrderFunc: func(ctx context.Context, order *domain.Order) (string, string, error) {
			calls++
			return "ext-1", "corr-1", nil
		},
	}
	exec := newTestExecutor(nil, ordering, nil)
	proposal := domain.ActionProposal{Name: domain.ActionSubmitOrder}

	// Act
	_, _, err := exec.Execute(context.Background(), testSession(), draftOrder(), proposal, 4, 0)

	// Assert
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if calls != 0 {
		t.Errorf("external API must not be called for rejected submit, got %d calls", calls)
	}
}

func TestExecute_SubmitUsesIdempotencyKey(t *testing.T) {
	// Arrange
	var gotKey string
	ordering := &mocks.MockOrderingGateway{
		SubmitOrderFunc: func(ctx context.Context, externalID, idempotencyKey string) (string, error) {
			gotKey = idempotencyKey
			return "corr-7", nil
		},
	}
	exec := newTestExecutor(nil, ordering, nil)
	confirmed := draftOrder()
	confirmed.Status = domain.OrderStatusConfirmed
	proposal := domain.ActionProposal{Name: domain.ActionSubmitOrder}

	// Act
	order, result, err := exec.Execute(context.Background(), testSession(), confirmed, proposal, 4, 2)

	// Assert
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if order.Status != domain.OrderStatusSubmitted {
		t.Errorf("expected submitted, got %s", order.Status)
	}
	if order.ExternalID != "ext-1" {
		t.Errorf("expected external id recorded, got %q", order.ExternalID)
	}
	if gotKey != "session-1:4:2" {
		t.Errorf("unexpected idempotency key %q", gotKey)
	}
	if result.CorrelationID != "corr-7" {
		t.Errorf("expected correlation id, got %q", result.CorrelationID)
	}
}

func TestExecute_SubmitFailureLeavesOrderUnchanged(t *testing.T) {
	// Arrange: the remote order is created but the submit leg fails
	ordering := &mocks.MockOrderingGateway{
		SubmitOrderFunc: func(ctx context.Context, externalID, idempotencyKey string) (string, error) {
			return "corr-9", domain.ErrExternalActionFailed
		},
	}
	exec := newTestExecutor(nil, ordering, nil)
	confirmed := draftOrder()
	confirmed.Status = domain.OrderStatusConfirmed
	proposal := domain.ActionProposal{Name: domain.ActionSubmitOrder}

	// Act
	order, _, err := exec.Execute(context.Background(), testSession(), confirmed, proposal, 4, 0)

	// Assert
	if !errors.Is(err, domain.ErrExternalActionFailed) {
		t.Fatalf("expected ErrExternalActionFailed, got %v", err)
	}
	if order.Status != domain.OrderStatusConfirmed {
		t.Errorf("order status changed on failure: %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 1 {
		t.Errorf("line items changed on failure: %+v", order.Items)
	}
	if order.ExternalID != "ext-1" {
		t.Errorf("expected created external id retained, got %q", order.ExternalID)
	}
	if confirmed.ExternalID != "" {
		t.Error("input order was mutated")
	}
}

func TestExecute_SubmitReplayDoesNotDuplicateRemoteOrder(t *testing.T) {
	// Arrange: submit fails once, then succeeds on the replay
	creates := 0
	submits := 0
	ordering := &mocks.MockOrderingGateway{
		CreateOrderFunc: func(ctx context.Context, order *domain.Order) (string, string, error) {
			creates++
			return "ext-1", "corr-1", nil
		},
		SubmitOrderFunc: func(ctx context.Context, externalID, idempotencyKey string) (string, error) {
			submits++
			if submits == 1 {
				return "", domain.ErrExternalActionFailed
			}
			return "corr-2", nil
		},
	}
	exec := newTestExecutor(nil, ordering, nil)
	confirmed := draftOrder()
	confirmed.Status = domain.OrderStatusConfirmed
	proposal := domain.ActionProposal{Name: domain.ActionSubmitOrder}

	// Act: same session, turn sequence and step on both attempts
	order, _, err := exec.Execute(context.Background(), testSession(), confirmed, proposal, 4, 0)
	if !errors.Is(err, domain.ErrExternalActionFailed) {
		t.Fatalf("expected first submit to fail, got %v", err)
	}
	order, _, err = exec.Execute(context.Background(), testSession(), order, proposal, 4, 0)

	// Assert
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if creates != 1 {
		t.Errorf("replay created %d remote orders, want 1", creates)
	}
	if submits != 2 {
		t.Errorf("expected 2 submit attempts, got %d", submits)
	}
	if order.Status != domain.OrderStatusSubmitted {
		t.Errorf("expected submitted after replay, got %s", order.Status)
	}
}

func TestExecute_PaymentRequiresSubmittedOrder(t *testing.T) {
	exec := newTestExecutor(nil, nil, nil)
	proposal := domain.ActionProposal{Name: domain.ActionInitiatePayment}

	if _, _, err := exec.Execute(context.Background(), testSession(), draftOrder(), proposal, 4, 0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for draft payment, got %v", err)
	}
}

func TestExecute_PaymentChargesTotalOnce(t *testing.T) {
	// Arrange
	var gotKey, gotCurrency string
	var gotAmount float64
	payments := &mocks.MockPaymentGateway{
		ChargeFunc: func(ctx context.Context, idempotencyKey string, amount float64, currency string, metadata map[string]string) (string, error) {
			gotKey, gotAmount, gotCurrency = idempotencyKey, amount, currency
			return "pi-42", nil
		},
	}
	exec := newTestExecutor(nil, nil, payments)
	submitted := draftOrder()
	submitted.Status = domain.OrderStatusSubmitted
	submitted.ExternalID = "ext-1"
	proposal := domain.ActionProposal{Name: domain.ActionInitiatePayment}

	// Act
	order, result, err := exec.Execute(context.Background(), testSession(), submitted, proposal, 5, 0)

	// Assert
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Errorf("expected paid, got %s", order.Status)
	}
	if gotKey != "session-1:5:0" {
		t.Errorf("unexpected idempotency key %q", gotKey)
	}
	if gotAmount != 65000 || gotCurrency != "vnd" {
		t.Errorf("unexpected charge %v %s", gotAmount, gotCurrency)
	}
	if result.CorrelationID != "pi-42" {
		t.Errorf("expected correlation id, got %q", result.CorrelationID)
	}
}

func TestExecute_CancelSubmittedOrderCallsExternal(t *testing.T) {
	// Arrange
	cancelled := ""
	ordering := &mocks.MockOrderingGateway{
		CancelOrderFunc: func(ctx context.Context, externalID string) (string, error) {
			cancelled = externalID
			return "corr-3", nil
		},
	}
	exec := newTestExecutor(nil, ordering, nil)
	submitted := draftOrder()
	submitted.Status = domain.OrderStatusSubmitted
	submitted.ExternalID = "ext-1"
	proposal := domain.ActionProposal{Name: domain.ActionCancelOrder}

	// Act
	order, _, err := exec.Execute(context.Background(), testSession(), submitted, proposal, 4, 0)

	// Assert
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
	if cancelled != "ext-1" {
		t.Errorf("expected external cancel for ext-1, got %q", cancelled)
	}
}

func TestExecute_CancelPaidOrderRejected(t *testing.T) {
	exec := newTestExecutor(nil, nil, nil)
	paid := draftOrder()
	paid.Status = domain.OrderStatusPaid
	proposal := domain.ActionProposal{Name: domain.ActionCancelOrder}

	if _, _, err := exec.Execute(context.Background(), testSession(), paid, proposal, 4, 0); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition for paid order, got %v", err)
	}
}
