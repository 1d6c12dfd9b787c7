package domain

import (
	"testing"
)

func TestOrderStatusTransitions(t *testing.T) {
	cases := []struct {
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{OrderStatusDraft, OrderStatusConfirmed, true},
		{OrderStatusDraft, OrderStatusCancelled, true},
		{OrderStatusDraft, OrderStatusSubmitted, false},
		{OrderStatusDraft, OrderStatusPaid, false},
		{OrderStatusConfirmed, OrderStatusDraft, true},
		{OrderStatusConfirmed, OrderStatusSubmitted, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusPaid, false},
		{OrderStatusSubmitted, OrderStatusPaid, true},
		{OrderStatusSubmitted, OrderStatusCancelled, true},
		{OrderStatusSubmitted, OrderStatusDraft, false},
		{OrderStatusPaid, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusDraft, false},
	}

	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.allowed, got)
		}
	}
}

func TestOrderStatusMutable(t *testing.T) {
	if !OrderStatusDraft.Mutable() {
		t.Error("draft should be mutable")
	}
	if !OrderStatusConfirmed.Mutable() {
		t.Error("confirmed should be mutable")
	}
	if OrderStatusSubmitted.Mutable() {
		t.Error("submitted must not be mutable")
	}
	if OrderStatusPaid.Mutable() {
		t.Error("paid must not be mutable")
	}
}

func TestOrderTotal(t *testing.T) {
	order := &Order{
		Items: []LineItem{
			{Name: "Phở bò", Quantity: 2, UnitPrice: 65000},
			{Name: "Cà phê sữa đá", Quantity: 1, UnitPrice: 29000},
		},
	}

	if got := order.Total(); got != 159000 {
		t.Errorf("expected total 159000, got %v", got)
	}
}

func TestOrderClone_DeepCopiesItems(t *testing.T) {
	order := &Order{
		ID:     "order-1",
		Status: OrderStatusDraft,
		Items: []LineItem{
			{ID: "li-1", Name: "Phở bò", Quantity: 1, UnitPrice: 65000},
		},
	}

	clone := order.Clone()
	clone.Items[0].Quantity = 5
	clone.Items = append(clone.Items, LineItem{ID: "li-2", Name: "Gỏi cuốn"})
	clone.Status = OrderStatusConfirmed

	if order.Items[0].Quantity != 1 {
		t.Errorf("clone mutation leaked into original: quantity %d", order.Items[0].Quantity)
	}
	if len(order.Items) != 1 {
		t.Errorf("clone append leaked into original: %d items", len(order.Items))
	}
	if order.Status != OrderStatusDraft {
		t.Errorf("clone status change leaked into original: %s", order.Status)
	}
}

func TestOrderClone_Nil(t *testing.T) {
	var order *Order
	if order.Clone() != nil {
		t.Error("expected nil clone of nil order")
	}
}

func TestActionProposalValidate(t *testing.T) {
	p := ActionProposal{Name: ActionAddItem, ItemRef: "Phở bò"}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid proposal, got %v", err)
	}
	if p.Quantity != 1 {
		t.Errorf("expected default quantity 1, got %d", p.Quantity)
	}

	missing := ActionProposal{Name: ActionRemoveItem}
	if err := missing.Validate(); err == nil {
		t.Error("expected error for remove_item without item reference")
	}

	unknown := ActionProposal{Name: ActionName("teleport_food")}
	if err := unknown.Validate(); err == nil {
		t.Error("expected error for unknown action name")
	}
}
