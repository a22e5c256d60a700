// README: Kafka transport; one topic, recipient channel as the message key.
package notify

import (
	"context"

	kafka "github.com/segmentio/kafka-go"
)

// Writer is the subset of the kafka writer the transport needs; it makes the
// transport testable without a broker.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaTransport struct {
	writer Writer
}

func NewKafkaTransport(w Writer) *KafkaTransport {
	return &KafkaTransport{writer: w}
}

func (t *KafkaTransport) Publish(ctx context.Context, channel string, payload []byte) error {
	return t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(channel),
		Value: payload,
	})
}

func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
