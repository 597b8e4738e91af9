package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaNotifier publishes lifecycle events to a Kafka topic so other
// systems (billing, analytics, customer messaging) can react without
// coupling into this service.
type KafkaNotifier struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewKafkaNotifier creates a notifier writing to the given topic.
func NewKafkaNotifier(brokers []string, topic string, log *slog.Logger) *KafkaNotifier {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaNotifier{writer: w, log: log}
}

type eventEnvelope struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
	SentAt  time.Time      `json:"sent_at"`
}

// Notify publishes the event. Errors are logged, never returned.
func (n *KafkaNotifier) Notify(ctx context.Context, event Event, payload map[string]any) {
	data, err := json.Marshal(eventEnvelope{Event: string(event), Payload: payload, SentAt: time.Now()})
	if err != nil {
		n.log.Error("failed to encode lifecycle event", "event", string(event), "error", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := n.writer.WriteMessages(writeCtx, kafka.Message{Key: []byte(event), Value: data}); err != nil {
		n.log.Error("failed to publish lifecycle event", "event", string(event), "error", err)
	}
}

// Close releases the underlying writer.
func (n *KafkaNotifier) Close() error {
	if n.writer == nil {
		return nil
	}
	return n.writer.Close()
}
