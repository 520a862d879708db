package kafka

import (
	"context"
	"log/slog"
	"strings"

	"github.com/couchcryptid/iasi-l2-converter/internal/config"
	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces product notifications to a Kafka topic.
// It implements pipeline.Publisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes one notification.
func (w *Writer) Publish(ctx context.Context, n domain.OutboundNotification) error {
	msg, err := serializeToMessage(n)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a notification into a Kafka message. Both
// products of a granule share a key, so they land on one partition in
// publication order.
func serializeToMessage(n domain.OutboundNotification) (kafkago.Message, error) {
	data, err := domain.EncodeOutbound(n)
	if err != nil {
		return kafkago.Message{}, err
	}
	return kafkago.Message{
		Key:   []byte(granuleKey(n.UID())),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "subject", Value: []byte(n.Subject)},
			{Key: "kind", Value: []byte(n.Kind)},
			{Key: "product", Value: []byte(n.Product())},
		},
	}, nil
}

// granuleKey strips the variant suffix from a product file name.
func granuleKey(uid string) string {
	if i := strings.LastIndexByte(uid, '_'); i > 0 {
		return uid[:i]
	}
	return uid
}
