// README: Kafka writer initialization for the notification transport.
package infra

import "github.com/segmentio/kafka-go"

func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(broker),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}
