// Package kafka publishes lifecycle events to a Kafka topic so the external
// lifecycle manager can react to unhealthy specialists asynchronously.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"ninefold/internal/lifecycle"
)

// Publisher produces lifecycle events to a single topic, keyed by specialist
// id so events for one specialist stay ordered within a partition.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers. The caller owns Close.
func New(brokers []string, topic string) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Publisher{client: client, topic: topic}, nil
}

// Publish produces one event synchronously. The prober treats a failed
// publish as non-fatal and logs it; health state is already updated.
func (p *Publisher) Publish(ctx context.Context, ev lifecycle.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal lifecycle event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(ev.SpecialistID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce lifecycle event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying client.
func (p *Publisher) Close() error {
	p.client.Close()
	return nil
}
