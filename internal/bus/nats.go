// AngelaMos | 2026
// nats.go

package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/carterperez-dev/eventhub/internal/config"
	"github.com/carterperez-dev/eventhub/internal/core"
)

const headerTraceID = "Trace-Id"

type NATSBus struct {
	conn *nats.Conn
}

func NewNATS(cfg config.NATSConfig) (*NATSBus, error) {
	conn, err := nats.Connect(
		cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	return &NATSBus{conn: conn}, nil
}

func (n *NATSBus) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", subject, err)
	}

	msg := nats.NewMsg(subject)
	msg.Data = payload
	if traceID := core.TraceIDFromContext(ctx); traceID != "" {
		msg.Header.Set(headerTraceID, traceID)
	}

	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	slog.DebugContext(ctx, "event published", "subject", subject)
	return nil
}

func (n *NATSBus) QueueSubscribe(subject, queue string, handler Handler) error {
	_, err := n.conn.QueueSubscribe(subject, queue, func(m *nats.Msg) {
		id := m.Header.Get(nats.MsgIdHdr)
		if id == "" {
			id = fmt.Sprintf("%d", time.Now().UnixNano())
		}

		handler(context.Background(), &Message{
			ID:         id,
			Subject:    m.Subject,
			Data:       m.Data,
			ReceivedAt: time.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}

	return nil
}

func (n *NATSBus) Ping(ctx context.Context) error {
	if n.conn.Status() != nats.CONNECTED {
		return errors.New("nats not connected: " + n.conn.Status().String())
	}

	deadline, ok := ctx.Deadline()
	timeout := 2 * time.Second
	if ok {
		timeout = time.Until(deadline)
	}

	return n.conn.FlushTimeout(timeout)
}

// Close drains subscriptions so in-flight handlers finish before the
// connection closes.
func (n *NATSBus) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
