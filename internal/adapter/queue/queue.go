package queue

import "encoding/json"

// Subjects for the audit stream. Turn records and order lifecycle events
// are published for operator follow-up and replay debugging.
const (
	SubjectTurnLogged     = "turns.logged"
	SubjectOrderSubmitted = "orders.submitted"
	SubjectOrderPaid      = "orders.paid"
	SubjectOrderCancelled = "orders.cancelled"
	SubjectActionFailed   = "actions.failed"
	SubjectMenuUpdated    = "menu.updated"
)

// MessageQueue defines the interface for a message queue adapter
type MessageQueue interface {
	Publish(subject string, data []byte) error
	Subscribe(subject string, handler func(data []byte) error) error
	Close() error
}

// PublishJSON marshals v and publishes it on subject.
func PublishJSON(mq MessageQueue, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return mq.Publish(subject, data)
}
