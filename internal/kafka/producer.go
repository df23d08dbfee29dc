package kafka

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"crosspost/internal/config"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const (
	deliveryTimeout = 30 * time.Second
	flushTimeout    = 15 * time.Second
)

// MessageProducer publishes keyed messages to a topic and waits for the
// delivery report.
type MessageProducer interface {
	SendMessage(ctx context.Context, topic string, key []byte, payload []byte, headers map[string]string) error
	Close()
}

// confluentProducer publishes through librdkafka. Delivery reports are read
// per message; the shared event channel only carries client errors.
type confluentProducer struct {
	producer *kafka.Producer
	done     chan struct{}
}

// NewConfluentKafkaProducer connects an idempotent producer to cfg.Brokers.
func NewConfluentKafkaProducer(cfg config.KafkaConfig) (MessageProducer, error) {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(cfg.Brokers, ","),
		"security.protocol":  cfg.Protocol,
		"enable.idempotence": true,
		"message.timeout.ms": int(deliveryTimeout / time.Millisecond),
	}
	if cfg.ClientID != "" {
		_ = configMap.SetKey("client.id", cfg.ClientID)
	}

	p, err := kafka.NewProducer(configMap)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	cp := &confluentProducer{producer: p, done: make(chan struct{})}
	go cp.logEvents()
	return cp, nil
}

func (p *confluentProducer) logEvents() {
	defer close(p.done)
	for e := range p.producer.Events() {
		switch ev := e.(type) {
		case kafka.Error:
			log.Printf("kafka producer: %v (fatal=%v)", ev, ev.IsFatal())
		case *kafka.Message:
			// reports without a per-message channel; none are expected
			if ev.TopicPartition.Error != nil {
				log.Printf("kafka producer: delivery to %v failed: %v", ev.TopicPartition.Topic, ev.TopicPartition.Error)
			}
		}
	}
}

// SendMessage publishes one message and blocks until the broker acknowledged
// it, the delivery timed out, or ctx ended.
func (p *confluentProducer) SendMessage(ctx context.Context, topic string, key []byte, payload []byte, headers map[string]string) error {
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            key,
		Value:          payload,
		Timestamp:      time.Now(),
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	reports := make(chan kafka.Event, 1)
	if err := p.producer.Produce(msg, reports); err != nil {
		// local failure, e.g. a full queue
		return fmt.Errorf("enqueue message for %s: %w", topic, err)
	}

	select {
	case e := <-reports:
		m, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery event for %s: %v", topic, e)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver message to %s: %w", topic, m.TopicPartition.Error)
		}
		return nil
	case <-ctx.Done():
		// the message may still be delivered
		return fmt.Errorf("wait for delivery to %s: %w", topic, ctx.Err())
	}
}

// Close flushes outstanding messages and closes the producer.
func (p *confluentProducer) Close() {
	if remaining := p.producer.Flush(int(flushTimeout / time.Millisecond)); remaining > 0 {
		log.Printf("kafka producer: %d messages undelivered at close", remaining)
	}
	p.producer.Close()
	<-p.done
	log.Println("kafka producer closed")
}
