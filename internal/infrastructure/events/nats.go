package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATS publishes events on "<prefix>.<type>" subjects.
type NATS struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

// ConnectNATS dials the server. Reconnects are bounded so a missing
// broker surfaces instead of buffering forever.
func ConnectNATS(url, prefix string, logger *zap.Logger) (*NATS, error) {
	conn, err := nats.Connect(url,
		nats.Name("uibuilder"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(3),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATS{conn: conn, prefix: prefix, logger: logger}, nil
}

// Subject returns the wire subject for an event type.
func (n *NATS) Subject(eventType string) string {
	if n.prefix == "" {
		return eventType
	}
	return n.prefix + "." + eventType
}

func (n *NATS) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := e.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := n.conn.Publish(n.Subject(e.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Subscribe delivers decoded events of the given type to handler.
func (n *NATS) Subscribe(eventType string, handler func(Event)) (*nats.Subscription, error) {
	return n.conn.Subscribe(n.Subject(eventType), func(msg *nats.Msg) {
		e, err := Decode(msg.Data)
		if err != nil {
			n.logger.Warn("Dropping undecodable event", zap.String("subject", msg.Subject), zap.Error(err))
			return
		}
		handler(e)
	})
}

// Close drains pending publishes before disconnecting.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
