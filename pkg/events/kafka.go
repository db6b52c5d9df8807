package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"

	"github.com/klinvest/broker-etrade/pkg/metrics"
	"github.com/klinvest/broker-etrade/pkg/telemetry"
)

type KafkaPublisher struct {
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	brokers []string
	service string
}

func NewKafkaPublisher(brokers []string, service string) *KafkaPublisher {
	return &KafkaPublisher{
		writers: make(map[string]*kafka.Writer),
		brokers: brokers,
		service: service,
	}
}

func (p *KafkaPublisher) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	p.writers[topic] = w
	return w
}

// Publish writes the event keyed by its correlation ID (the order ID for
// order events) so every event of one order lands on the same partition.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	ctx, span := telemetry.StartProducerSpan(ctx, topic)
	span.SetAttributes(attribute.String("event.type", event.EventType))

	data, err := json.Marshal(event)
	if err != nil {
		telemetry.EndSpan(span, err)
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	telemetry.SetMessageAttributes(ctx, event.EventID, len(data))

	headers := make([]kafka.Header, 0, 2)
	telemetry.InjectTraceContext(ctx, &headers)

	key := event.CorrelationID
	if key == "" {
		key = event.EventID
	}

	err = p.getWriter(topic).WriteMessages(ctx, kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: headers,
	})
	if err != nil {
		telemetry.EndSpan(span, err)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.RecordKafkaMessageProduced(p.service, topic)
	telemetry.EndSpan(span, nil)
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, w := range p.writers {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}
