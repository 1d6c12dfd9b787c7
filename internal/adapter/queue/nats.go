package queue

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSQueue carries the audit stream: turn records, order lifecycle
// events and external-action failures. Losing an event must never fail a
// turn, so publishers treat errors as best-effort while the connection
// itself reconnects forever.
type NATSQueue struct {
	conn *nats.Conn
	log  *zap.Logger
}

func NewNATSQueue(url string, log *zap.Logger) (MessageQueue, error) {
	nc, err := nats.Connect(url,
		nats.Name("ai-waiter-audit"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("Audit stream disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("Audit stream reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	log.Info("Audit stream connected", zap.String("url", url))
	return &NATSQueue{conn: nc, log: log}, nil
}

func (q *NATSQueue) Publish(subject string, data []byte) error {
	return q.conn.Publish(subject, data)
}

// Subscribe registers a handler for a subject. Used by the menu reload
// fan-out so every instance rebuilds its index on menu.updated.
func (q *NATSQueue) Subscribe(subject string, handler func(data []byte) error) error {
	_, err := q.conn.Subscribe(subject, func(msg *nats.Msg) {
		if err := handler(msg.Data); err != nil {
			q.log.Error("Audit event handler failed", zap.String("subject", subject), zap.Error(err))
		}
	})
	return err
}

// Close drains the connection so buffered audit events are flushed
// before shutdown.
func (q *NATSQueue) Close() error {
	return q.conn.Drain()
}
