package domain

import (
	"fmt"
)

type IntentCategory string

const (
	IntentInformationQuery IntentCategory = "information_query"
	IntentActionRequest    IntentCategory = "action_request"
	IntentGeneralChat      IntentCategory = "general_chat"
)

// ParseIntentCategory maps raw model output onto the closed category set.
func ParseIntentCategory(raw string) (IntentCategory, error) {
	switch IntentCategory(raw) {
	case IntentInformationQuery, IntentActionRequest, IntentGeneralChat:
		return IntentCategory(raw), nil
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrClassificationMalformed, raw)
}

// Intent is the router's verdict for one turn. For action requests it
// carries the ordered batch of validated proposals.
type Intent struct {
	Category   IntentCategory   `json:"category"`
	Confidence float64          `json:"confidence"`
	Proposals  []ActionProposal `json:"proposals,omitempty"`
}

type ActionName string

const (
	ActionAddItem         ActionName = "add_item"
	ActionRemoveItem      ActionName = "remove_item"
	ActionModifyItem      ActionName = "modify_item"
	ActionConfirmOrder    ActionName = "confirm_order"
	ActionSubmitOrder     ActionName = "submit_order"
	ActionInitiatePayment ActionName = "initiate_payment"
	ActionCancelOrder     ActionName = "cancel_order"
)

// ParseActionName rejects any function name outside the fixed vocabulary.
func ParseActionName(raw string) (ActionName, error) {
	switch ActionName(raw) {
	case ActionAddItem, ActionRemoveItem, ActionModifyItem,
		ActionConfirmOrder, ActionSubmitOrder, ActionInitiatePayment, ActionCancelOrder:
		return ActionName(raw), nil
	}
	return "", fmt.Errorf("%w: unknown function %q", ErrClassificationMalformed, raw)
}

// RequiresItem reports whether the action needs an item reference.
func (a ActionName) RequiresItem() bool {
	switch a {
	case ActionAddItem, ActionRemoveItem, ActionModifyItem:
		return true
	}
	return false
}

// ActionProposal is a validated, schema-constrained function call extracted
// from model output. It lives for one turn only.
type ActionProposal struct {
	Name      ActionName `json:"name"`
	ItemRef   string     `json:"item_ref,omitempty"` // menu item id or spoken dish name
	Quantity  int        `json:"quantity,omitempty"`
	Modifiers []string   `json:"modifiers,omitempty"`
}

// Validate checks required arguments before the proposal may reach the
// executor.
func (p *ActionProposal) Validate() error {
	if _, err := ParseActionName(string(p.Name)); err != nil {
		return err
	}
	if p.Name.RequiresItem() && p.ItemRef == "" {
		return fmt.Errorf("%w: %s missing item reference", ErrClassificationMalformed, p.Name)
	}
	if p.Name == ActionAddItem && p.Quantity <= 0 {
		p.Quantity = 1
	}
	return nil
}

// ActionResult reports one executed (or rejected) proposal back to the
// composer.
type ActionResult struct {
	Proposal      ActionProposal `json:"proposal"`
	Status        OrderStatus    `json:"status"`
	Summary       string         `json:"summary"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Err           error          `json:"-"`
}
