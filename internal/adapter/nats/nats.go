// Package nats carries granule and product notifications over core NATS
// subjects as an alternative to Kafka.
package nats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/iasi-l2-converter/internal/config"
	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	natsgo "github.com/nats-io/nats.go"
)

const flushTimeout = 5 * time.Second

// Client owns one NATS connection shared by a Subscriber and a Publisher.
type Client struct {
	conn   *natsgo.Conn
	logger *slog.Logger
}

// Connect dials the configured NATS server. The connection reconnects
// indefinitely after the first success.
func Connect(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	opts := []natsgo.Option{
		natsgo.Name("iasi-l2-converter@" + cfg.ServerName),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		natsgo.ReconnectHandler(func(c *natsgo.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	}

	conn, err := natsgo.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", cfg.NATSURL, err)
	}
	logger.Info("nats connected", "url", conn.ConnectedUrl())
	return &Client{conn: conn, logger: logger}, nil
}

// CheckReadiness reports whether the connection is up.
func (c *Client) CheckReadiness(_ context.Context) error {
	if !c.conn.IsConnected() {
		return fmt.Errorf("nats connection %s", c.conn.Status())
	}
	return nil
}

// Close drains subscriptions and closes the connection.
func (c *Client) Close() error {
	return c.conn.Drain()
}

// Subscriber reads granule notifications from one subject.
// It implements pipeline.Subscriber.
type Subscriber struct {
	client *Client
	sub    *natsgo.Subscription
}

// Subscribe starts a synchronous subscription on subject.
func (c *Client) Subscribe(subject string) (*Subscriber, error) {
	sub, err := c.conn.SubscribeSync(subject)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return &Subscriber{client: c, sub: sub}, nil
}

// Receive blocks until a message arrives or ctx is done. Core NATS has no
// acknowledgement, so Commit is nil.
func (s *Subscriber) Receive(ctx context.Context) (domain.RawMessage, error) {
	msg, err := s.sub.NextMsgWithContext(ctx)
	if err != nil {
		return domain.RawMessage{}, err
	}
	return mapMsgToRawMessage(msg, time.Now()), nil
}

// CheckReadiness reports whether the subscription is live on a connected client.
func (s *Subscriber) CheckReadiness(ctx context.Context) error {
	if !s.sub.IsValid() {
		return fmt.Errorf("nats subscription %s closed", s.sub.Subject)
	}
	return s.client.CheckReadiness(ctx)
}

func (s *Subscriber) Close() error {
	return s.sub.Unsubscribe()
}

// Publisher announces product notifications on one subject.
// It implements pipeline.Publisher.
type Publisher struct {
	conn    *natsgo.Conn
	subject string
}

// Publisher returns a Publisher for subject.
func (c *Client) Publisher(subject string) *Publisher {
	return &Publisher{conn: c.conn, subject: subject}
}

// Publish sends n and waits for the server to acknowledge the flush.
func (p *Publisher) Publish(ctx context.Context, n domain.OutboundNotification) error {
	msg, err := buildMsg(p.subject, n)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}

	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	return p.conn.FlushWithContext(ctx)
}

func mapMsgToRawMessage(msg *natsgo.Msg, received time.Time) domain.RawMessage {
	headers := make(map[string]string, len(msg.Header))
	for k := range msg.Header {
		headers[k] = msg.Header.Get(k)
	}
	return domain.RawMessage{
		Value:     msg.Data,
		Headers:   headers,
		Source:    msg.Subject,
		Timestamp: received,
	}
}

func buildMsg(subject string, n domain.OutboundNotification) (*natsgo.Msg, error) {
	data, err := domain.EncodeOutbound(n)
	if err != nil {
		return nil, err
	}
	msg := natsgo.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Topic", n.Subject)
	msg.Header.Set("Kind", n.Kind)
	msg.Header.Set("Product", n.Product())
	msg.Header.Set("Uid", n.UID())
	return msg, nil
}
