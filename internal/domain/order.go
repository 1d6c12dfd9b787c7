package domain

import (
	"time"
)

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// orderTransitions is the only legal status graph. Submit requires a prior
// confirm; a submitted order may only advance to paid or leave through the
// explicit cancel path.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDraft:     {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusDraft, OrderStatusSubmitted, OrderStatusCancelled},
	OrderStatusSubmitted: {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {},
	OrderStatusCancelled: {},
}

// CanTransitionTo reports whether moving from s to target is legal.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Mutable reports whether line items may still change under this status.
func (s OrderStatus) Mutable() bool {
	return s == OrderStatusDraft || s == OrderStatusConfirmed
}

// Terminal reports whether the order reached a final status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusPaid || s == OrderStatusCancelled
}

// LineItem snapshots the unit price at the moment the item was added, so a
// later menu change cannot alter what the customer was quoted.
type LineItem struct {
	ID         string   `json:"id" gorm:"primaryKey"`
	OrderID    string   `json:"order_id" gorm:"index"`
	MenuItemID string   `json:"menu_item_id"`
	Name       string   `json:"name"`
	Quantity   int      `json:"quantity"`
	Modifiers  []string `json:"modifiers,omitempty" gorm:"serializer:json"`
	UnitPrice  float64  `json:"unit_price"`
}

func (li *LineItem) Subtotal() float64 {
	return float64(li.Quantity) * li.UnitPrice
}

type Order struct {
	ID         string      `json:"id" gorm:"primaryKey"`
	SessionID  string      `json:"session_id" gorm:"index"`
	Status     OrderStatus `json:"status"`
	Items      []LineItem  `json:"items" gorm:"foreignKey:OrderID"`
	Currency   string      `json:"currency"`
	ExternalID string      `json:"external_id,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (o *Order) Total() float64 {
	var total float64
	for i := range o.Items {
		total += o.Items[i].Subtotal()
	}
	return total
}

// FindItem returns the line item referencing the given menu item id, or nil.
func (o *Order) FindItem(menuItemID string) *LineItem {
	for i := range o.Items {
		if o.Items[i].MenuItemID == menuItemID {
			return &o.Items[i]
		}
	}
	return nil
}

// Clone returns a deep copy. The executor mutates a copy and only publishes
// it back once the whole operation, external call included, has succeeded.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	cp.Items = make([]LineItem, len(o.Items))
	copy(cp.Items, o.Items)
	for i := range cp.Items {
		cp.Items[i].Modifiers = append([]string(nil), o.Items[i].Modifiers...)
	}
	return &cp
}
