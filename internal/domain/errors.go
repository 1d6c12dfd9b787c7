package domain

import "errors"

var (
	// ErrClassificationMalformed means model output could not be parsed into
	// the closed category or function set. Recovered locally: the router
	// fails closed to general chat with confidence 0.
	ErrClassificationMalformed = errors.New("classification malformed")

	// ErrEngineUnavailable means the language model errored or timed out.
	// Retried with bounded backoff, then the turn degrades.
	ErrEngineUnavailable = errors.New("language model unavailable")

	// ErrRetrievalUnavailable means the menu index could not serve a lookup,
	// usually because the embedding provider errored. The turn degrades; a
	// grounded answer cannot be invented without retrieval.
	ErrRetrievalUnavailable = errors.New("menu retrieval unavailable")

	// ErrUnknownMenuItem means a proposal references an id that is not in
	// the current menu snapshot or is unavailable. Order unchanged.
	ErrUnknownMenuItem = errors.New("unknown menu item")

	// ErrInvalidTransition means the proposal is not legal for the order's
	// current status. Order unchanged.
	ErrInvalidTransition = errors.New("invalid order transition")

	// ErrExternalActionFailed means the ordering or payment API call failed
	// after local validation passed. Order unchanged; logged for follow-up.
	ErrExternalActionFailed = errors.New("external action failed")

	// ErrSessionClosed means a turn arrived for a closed or archived session.
	ErrSessionClosed = errors.New("session closed")
)
